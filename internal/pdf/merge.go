// Package pdf wraps the pdfcpu operations the packet pipeline needs:
// page-preserving merges, page counts, separator page generation, and
// page collection.
package pdf

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// conf returns a relaxed-validation configuration. Scanned and
// tool-generated PDFs in the wild frequently carry minor spec violations
// that strict validation rejects.
func conf() *model.Configuration {
	c := model.NewDefaultConfiguration()
	c.ValidationMode = model.ValidationRelaxed
	return c
}

// Merge concatenates the given PDFs into outPath by structural append.
// Document boundaries are preserved and no page content is transformed.
func Merge(files []string, outPath string) error {
	if len(files) == 0 {
		return fmt.Errorf("nothing to merge")
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("merge input missing: %w", err)
		}
	}
	if err := api.MergeCreateFile(files, outPath, false, conf()); err != nil {
		return fmt.Errorf("failed to merge %d files: %w", len(files), err)
	}
	return nil
}

// PageCount returns the number of pages in a PDF.
func PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	n, err := api.PageCount(f, conf())
	if err != nil {
		return 0, fmt.Errorf("failed to count pages in %s: %w", path, err)
	}
	return n, nil
}
