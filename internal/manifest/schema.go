package manifest

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// compiledSchema compiles the embedded manifest schema once.
func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("manifest.schema.json", bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("failed to load manifest schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("manifest.schema.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to compile manifest schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// ValidateDocument checks a decoded manifest document against the embedded
// JSON Schema. The doc must be the generic form produced by encoding/json
// or yaml.v3 unmarshaling into any.
func ValidateDocument(doc any) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := s.Validate(doc); err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	return nil
}
