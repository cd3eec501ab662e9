package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the wire and file form of a manifest, shared by the HTTP API
// and the on-disk loaders. Build converts it into a validated Manifest.
type Document struct {
	Name  string         `json:"name,omitempty" yaml:"name,omitempty"`
	Slots []SlotDocument `json:"slots" yaml:"slots"`
}

// SlotDocument is the wire form of one slot. Required defaults to true
// when omitted.
type SlotDocument struct {
	Position int          `json:"position" yaml:"position"`
	Name     string       `json:"name" yaml:"name"`
	Required *bool        `json:"required,omitempty" yaml:"required,omitempty"`
	Meta     MetaDocument `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// MetaDocument is the wire form of a slot's matching criteria.
type MetaDocument struct {
	FolderHint       string   `json:"folder_hint,omitempty" yaml:"folder_hint,omitempty"`
	FileHint         string   `json:"file_hint,omitempty" yaml:"file_hint,omitempty"`
	FilenamePatterns []string `json:"filename_patterns,omitempty" yaml:"filename_patterns,omitempty"`
	Tags             []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	AllowDocx        bool     `json:"allow_docx,omitempty" yaml:"allow_docx,omitempty"`
}

// Build compiles the document's patterns and constructs a validated
// Manifest. Position uniqueness and non-emptiness are enforced by New.
func (d Document) Build() (*Manifest, error) {
	slots := make([]Slot, len(d.Slots))
	for i, sd := range d.Slots {
		required := true
		if sd.Required != nil {
			required = *sd.Required
		}
		slots[i] = Slot{
			Position: sd.Position,
			Name:     sd.Name,
			Required: required,
			Match: MatchSpec{
				FolderHint: sd.Meta.FolderHint,
				FileHint:   sd.Meta.FileHint,
				Patterns:   CompilePatterns(sd.Meta.FilenamePatterns),
				Tags:       sd.Meta.Tags,
				AllowDocx:  sd.Meta.AllowDocx,
			},
		}
	}
	return New(d.Name, slots)
}

// ParseJSON decodes, schema-validates, and builds a manifest from a JSON
// document.
func ParseJSON(data []byte) (*Manifest, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}
	if err := ValidateDocument(generic); err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("malformed manifest: %v", err)}
	}
	return doc.Build()
}

// ParseYAML decodes, schema-validates, and builds a manifest from a YAML
// document.
func ParseYAML(data []byte) (*Manifest, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("malformed YAML: %v", err)}
	}
	if err := ValidateDocument(generic); err != nil {
		return nil, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("malformed manifest: %v", err)}
	}
	return doc.Build()
}

// Load reads a manifest file, dispatching on extension: .json is parsed as
// JSON, .yaml/.yml as YAML.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported manifest format %q (want .json, .yaml, or .yml)", filepath.Ext(path))
	}
}
