package manifest

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// DefaultDocument returns the built-in packet manifest document, used when
// a request supplies no manifest of its own.
func DefaultDocument() (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(defaultYAML, &doc); err != nil {
		return Document{}, fmt.Errorf("failed to decode built-in manifest: %w", err)
	}
	return doc, nil
}

// Default builds the built-in packet manifest.
func Default() (*Manifest, error) {
	doc, err := DefaultDocument()
	if err != nil {
		return nil, err
	}
	return doc.Build()
}
