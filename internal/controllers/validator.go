package controllers

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema/controllers-v1.json
var registrySchemaJSON string

type validator struct {
	schema *jsonschema.Schema
}

func newValidator() (*validator, error) {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource("controllers-v1.json",
		strings.NewReader(registrySchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile("controllers-v1.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &validator{schema: schema}, nil
}

// validateYAML checks a registry document against the schema. YAML is
// normalized through JSON so the validator sees plain JSON values.
func (v *validator) validateYAML(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("registry is not JSON compatible: %w", err)
	}

	var normalized interface{}
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := v.schema.Validate(normalized); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	return nil
}
