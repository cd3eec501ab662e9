// Package manifest defines the declarative structure of a packet: an
// ordered, uniqueness-checked collection of slots, each describing where
// and how to find its source file with heuristic hints rather than exact
// paths. Manifests are immutable once constructed and safe for concurrent
// use across requests.
package manifest

// MatchSpec holds the matching criteria for one slot. All fields are
// optional; an empty spec matches every PDF in the index.
type MatchSpec struct {
	// FolderHint narrows candidates to paths containing this substring
	// (case-insensitive, slash-normalized) anywhere in the full path.
	FolderHint string

	// FileHint narrows candidates to basenames containing every
	// whitespace-separated word of the hint, after separator and case
	// normalization. Word order does not matter.
	FileHint string

	// Patterns narrows candidates to basenames matching any one of the
	// compiled filename patterns.
	Patterns []Pattern

	// Tags carry informational labels for reporting. They never affect
	// matching.
	Tags []string

	// AllowDocx extends the extension filter to accept .docx candidates
	// in addition to .pdf. Converted to PDF during assembly.
	AllowDocx bool
}

// Slot is one named, ordered position in the output packet. Position is
// unique within a manifest and defines both output order and the grouping
// sort key; Name is the logical group label that drives separator
// insertion.
type Slot struct {
	Position int
	Name     string
	Required bool
	Match    MatchSpec
}
