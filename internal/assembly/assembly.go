// Package assembly turns resolved, downloaded files into one merged packet:
// it sorts by slot position, inserts a generated separator page at each
// group-name change, bridges DOCX sources through a converter, and
// concatenates the result by page-preserving append.
package assembly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jackzampolin/binder/internal/manifest"
	"github.com/jackzampolin/binder/internal/pdf"
)

// ErrEmpty reports that the filtered, converted sequence had zero entries.
// Distinct from a required-slot gate failure: nothing was mandatory, there
// was simply nothing left to merge.
var ErrEmpty = errors.New("no files to merge")

// Converter bridges non-PDF sources into PDFs. A failed conversion drops
// only that file; assembly continues.
type Converter interface {
	Convert(ctx context.Context, path string) (string, error)
}

// SeparatorFactory produces a single-page PDF titled with the uppercased
// group name, centered.
type SeparatorFactory interface {
	Make(title, outPath string) error
}

// ResolvedFile pairs a slot with its downloaded local copy.
type ResolvedFile struct {
	Slot      manifest.Slot
	LocalPath string
}

// Drop records one input excluded from the merge and why. Per-file drops
// are part of the engine's return value, not a side channel.
type Drop struct {
	Slot      manifest.Slot
	LocalPath string
	Reason    string
}

// Result reports one assembly pass: the merged artifact, the ordered
// sequence that went into it (separators included), and the drops.
type Result struct {
	Path    string
	Sources []string
	Dropped []Drop
}

// Engine applies the grouping, separator, conversion, and merge policy.
type Engine struct {
	converter  Converter
	separators SeparatorFactory
	log        *slog.Logger
}

// Config configures an assembly engine.
type Config struct {
	Converter  Converter
	Separators SeparatorFactory
	Logger     *slog.Logger
}

// New creates an assembly engine. When no separator factory is given the
// standard PDF factory is used.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	separators := cfg.Separators
	if separators == nil {
		separators = pdf.NewSeparatorFactory()
	}
	return &Engine{
		converter:  cfg.Converter,
		separators: separators,
		log:        logger,
	}
}

// Assemble merges the given files into outPath. Separator pages are
// written into workDir. The walk is an explicit fold: kept sources and
// dropped files both come back to the caller, and a drop never aborts the
// pass. Returns ErrEmpty when the final sequence has no entries.
func (e *Engine) Assemble(ctx context.Context, files []ResolvedFile, workDir, outPath string) (*Result, error) {
	if len(files) == 0 {
		e.log.Warn("no files to merge, skipping assembly")
		return nil, ErrEmpty
	}

	sorted := make([]ResolvedFile, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Slot.Position < sorted[j].Slot.Position
	})

	var (
		sources      []string
		dropped      []Drop
		currentGroup string
		haveGroup    bool
	)

	for _, f := range sorted {
		if !haveGroup || f.Slot.Name != currentGroup {
			currentGroup = f.Slot.Name
			haveGroup = true

			sepPath := filepath.Join(workDir, separatorFilename(currentGroup))
			if err := e.separators.Make(currentGroup, sepPath); err != nil {
				e.log.Error("failed to create separator page, continuing without it",
					"group", currentGroup, "error", err)
			} else {
				sources = append(sources, sepPath)
				e.log.Info("inserted separator page", "group", currentGroup)
			}
		}

		pdfPath, err := e.ensurePDF(ctx, f.LocalPath)
		if err != nil {
			e.log.Error("dropping file from packet",
				"position", f.Slot.Position,
				"name", f.Slot.Name,
				"path", f.LocalPath,
				"error", err)
			dropped = append(dropped, Drop{
				Slot:      f.Slot,
				LocalPath: f.LocalPath,
				Reason:    err.Error(),
			})
			continue
		}
		sources = append(sources, pdfPath)
	}

	if len(sources) == 0 {
		e.log.Warn("nothing left to merge after drops")
		return nil, ErrEmpty
	}

	e.log.Info("merging packet", "sources", len(sources), "output", outPath)
	if err := pdf.Merge(sources, outPath); err != nil {
		return nil, fmt.Errorf("merge failed: %w", err)
	}

	return &Result{Path: outPath, Sources: sources, Dropped: dropped}, nil
}

// ensurePDF returns a PDF path for the given source file: PDFs pass
// through untouched, DOCX sources go through the converter, anything else
// is unsupported.
func (e *Engine) ensurePDF(ctx context.Context, path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return path, nil
	case ".docx":
		if e.converter == nil {
			return "", fmt.Errorf("no converter configured for %s", filepath.Base(path))
		}
		e.log.Info("converting DOCX to PDF", "path", path)
		out, err := e.converter.Convert(ctx, path)
		if err != nil {
			return "", fmt.Errorf("conversion failed: %w", err)
		}
		if _, err := os.Stat(out); err != nil {
			return "", fmt.Errorf("converter produced no output: %w", err)
		}
		return out, nil
	default:
		return "", fmt.Errorf("unsupported file type %q (only pdf/docx)", filepath.Ext(path))
	}
}

var unsafeTitleChars = regexp.MustCompile(`[^a-zA-Z0-9_\-]+`)

// separatorFilename derives a filesystem-safe name for a group's
// separator page.
func separatorFilename(group string) string {
	return "separator_" + unsafeTitleChars.ReplaceAllString(group, "_") + ".pdf"
}
