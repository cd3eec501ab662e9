// Package resolver maps the ambiguous matching hints of a manifest onto a
// flat file index. Resolution is pure with respect to its inputs: the
// resolver holds no per-request state and independent requests may call it
// concurrently.
package resolver

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackzampolin/binder/internal/manifest"
)

// Resolution is the outcome for one slot. Produced once per resolve pass
// and never mutated afterward.
type Resolution struct {
	Slot manifest.Slot

	// CandidatePath is the selected file-index entry; empty when missing.
	CandidatePath string

	// Missing reports that no candidate survived the filter pipeline.
	Missing bool

	// Reason describes which criteria failed to match, for reporting.
	// Only set when Missing.
	Reason string

	// CandidateCount is the number of candidates that survived every
	// filter stage. A count above one means the selection was ambiguous
	// and the first index entry won.
	CandidateCount int
}

// Resolver applies the per-slot filter pipeline to a file index.
type Resolver struct {
	log *slog.Logger
}

// New returns a resolver that logs ambiguity and invalid-pattern warnings
// through the given logger.
func New(log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{log: log}
}

// Resolve produces one Resolution per slot, in input order. Candidates keep
// file-index order through every filter stage, and selection takes the
// first survivor, so results are deterministic for a given index order.
func (r *Resolver) Resolve(slots []manifest.Slot, index []string) []Resolution {
	r.log.Info("resolving slots", "slots", len(slots), "files", len(index))

	resolutions := make([]Resolution, 0, len(slots))
	for _, slot := range slots {
		res := r.resolveSlot(slot, index)
		resolutions = append(resolutions, res)

		if res.Missing {
			r.log.Warn("slot missing",
				"position", slot.Position,
				"name", slot.Name,
				"reason", res.Reason)
		} else {
			r.log.Debug("slot resolved",
				"position", slot.Position,
				"name", slot.Name,
				"path", res.CandidatePath)
		}
	}
	return resolutions
}

// resolveSlot narrows the full index through the fixed filter order:
// folder hint, file hint, filename patterns, extension. Each stage filters
// the survivors of the previous one.
func (r *Resolver) resolveSlot(slot manifest.Slot, index []string) Resolution {
	candidates := index
	spec := slot.Match

	if spec.FolderHint != "" {
		candidates = filterFolderHint(candidates, spec.FolderHint)
	}
	if spec.FileHint != "" {
		candidates = filterFileHint(candidates, spec.FileHint)
	}
	if len(spec.Patterns) > 0 {
		for _, p := range spec.Patterns {
			if p.Err != nil {
				r.log.Warn("invalid filename pattern",
					"position", slot.Position,
					"pattern", p.Raw,
					"error", p.Err)
			}
		}
		candidates = filterPatterns(candidates, spec.Patterns)
	}
	candidates = filterExtension(candidates, spec.AllowDocx)

	if len(candidates) == 0 {
		return Resolution{
			Slot:    slot,
			Missing: true,
			Reason:  missingReason(spec),
		}
	}

	if len(candidates) > 1 {
		r.log.Warn("multiple candidates for slot, taking first",
			"position", slot.Position,
			"name", slot.Name,
			"candidates", len(candidates))
	}

	return Resolution{
		Slot:           slot,
		CandidatePath:  candidates[0],
		CandidateCount: len(candidates),
	}
}

// filterFolderHint keeps candidates whose slash-normalized path contains
// the normalized hint as a substring anywhere.
func filterFolderHint(candidates []string, hint string) []string {
	normHint := normalizePath(hint)
	var kept []string
	for _, c := range candidates {
		if strings.Contains(normalizePath(c), normHint) {
			kept = append(kept, c)
		}
	}
	return kept
}

// filterFileHint keeps candidates whose normalized basename contains every
// word of the normalized hint, in any order.
func filterFileHint(candidates []string, hint string) []string {
	words := strings.Fields(normalizeName(hint))
	var kept []string
	for _, c := range candidates {
		name := normalizeName(basename(c))
		all := true
		for _, w := range words {
			if !strings.Contains(name, w) {
				all = false
				break
			}
		}
		if all {
			kept = append(kept, c)
		}
	}
	return kept
}

// filterPatterns keeps candidates whose basename matches any pattern.
func filterPatterns(candidates []string, patterns []manifest.Pattern) []string {
	var kept []string
	for _, c := range candidates {
		name := basename(c)
		for _, p := range patterns {
			if p.Matches(name) {
				kept = append(kept, c)
				break
			}
		}
	}
	return kept
}

// filterExtension keeps .pdf candidates, plus .docx when allowed. Every
// other extension is excluded regardless of earlier filters.
func filterExtension(candidates []string, allowDocx bool) []string {
	var kept []string
	for _, c := range candidates {
		lower := strings.ToLower(c)
		if strings.HasSuffix(lower, ".pdf") {
			kept = append(kept, c)
			continue
		}
		if allowDocx && strings.HasSuffix(lower, ".docx") {
			kept = append(kept, c)
		}
	}
	return kept
}

// missingReason enumerates the criteria a missing slot specified, so
// reports show what failed to match.
func missingReason(spec manifest.MatchSpec) string {
	var parts []string
	if spec.FolderHint != "" {
		parts = append(parts, fmt.Sprintf("folder_hint=%q", spec.FolderHint))
	}
	if spec.FileHint != "" {
		parts = append(parts, fmt.Sprintf("file_hint=%q", spec.FileHint))
	}
	if len(spec.Patterns) > 0 {
		raw := make([]string, len(spec.Patterns))
		for i, p := range spec.Patterns {
			raw[i] = p.Raw
		}
		parts = append(parts, fmt.Sprintf("patterns=%v", raw))
	}
	if len(parts) == 0 {
		return "no matching file found (pdf/docx)"
	}
	return "no PDF matching criteria: " + strings.Join(parts, ", ")
}
