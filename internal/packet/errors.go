package packet

import "fmt"

// Gate stages at which required content can turn up missing.
const (
	GateResolution = "resolution"
	GateDownload   = "download"
	GateAssembly   = "assembly"
)

// RequiredMissingError aborts a run when one or more required slots cannot
// be filled. The gate runs after resolution, again after download, and
// once more after the assembly fold, so Stage names which check failed.
type RequiredMissingError struct {
	Positions []int
	Stage     string
	Mask      string
}

func (e *RequiredMissingError) Error() string {
	return fmt.Sprintf("missing required slots at positions %v (after %s)", e.Positions, e.Stage)
}
