package pdf

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Separator page rendering defaults. Letter paper with a bold centered
// title matches the packets this replaces.
const (
	defaultSeparatorFont = "Helvetica-Bold"
	defaultSeparatorSize = 28
	defaultSeparatorPage = "Letter"
)

// SeparatorFactory generates single-page PDFs carrying an uppercased,
// centered group title. Pages are built from a pdfcpu create description.
type SeparatorFactory struct {
	FontName string
	FontSize int
	Paper    string
}

// NewSeparatorFactory returns a factory with the standard rendering
// settings.
func NewSeparatorFactory() *SeparatorFactory {
	return &SeparatorFactory{
		FontName: defaultSeparatorFont,
		FontSize: defaultSeparatorSize,
		Paper:    defaultSeparatorPage,
	}
}

// createDesc mirrors the subset of pdfcpu's JSON create format the factory
// uses: one page, one centered text box.
type createDesc struct {
	Paper string                `json:"paper"`
	Pages map[string]createPage `json:"pages"`
}

type createPage struct {
	Content createContent `json:"content"`
}

type createContent struct {
	Text []createText `json:"text"`
}

type createText struct {
	Value  string     `json:"value"`
	Anchor string     `json:"anchor"`
	Font   createFont `json:"font"`
}

type createFont struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// Make writes a single separator page titled with the uppercased group
// name to outPath.
func (f *SeparatorFactory) Make(title, outPath string) error {
	desc := createDesc{
		Paper: f.Paper,
		Pages: map[string]createPage{
			"1": {
				Content: createContent{
					Text: []createText{{
						Value:  strings.ToUpper(title),
						Anchor: "center",
						Font:   createFont{Name: f.FontName, Size: f.FontSize},
					}},
				},
			},
		},
	}

	data, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("failed to encode separator description: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("failed to create separator directory: %w", err)
	}

	descPath := outPath + ".json"
	if err := os.WriteFile(descPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write separator description: %w", err)
	}
	defer os.Remove(descPath)

	if err := api.CreateFile("", descPath, outPath, conf()); err != nil {
		return fmt.Errorf("failed to create separator page %q: %w", title, err)
	}
	return nil
}
