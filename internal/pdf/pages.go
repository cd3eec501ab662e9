package pdf

import (
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Collect writes the given 1-indexed pages of inFile to outFile, in the
// order given.
func Collect(inFile, outFile string, pages []int) error {
	if len(pages) == 0 {
		return fmt.Errorf("no pages to collect")
	}
	selected := make([]string, len(pages))
	for i, p := range pages {
		selected[i] = strconv.Itoa(p)
	}
	if err := api.CollectFile(inFile, outFile, selected, conf()); err != nil {
		return fmt.Errorf("failed to collect %d pages: %w", len(pages), err)
	}
	return nil
}
