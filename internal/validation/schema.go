package validation

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	//go:embed schema/common-v1.json
	commonSchemaJSON string
	//go:embed schema/deploy-request-v1.json
	deploySchemaJSON string
	//go:embed schema/init-request-v1.json
	initSchemaJSON string
)

// SchemaValidator checks raw request bodies before they are bound.
type SchemaValidator struct {
	deploy *jsonschema.Schema
	init   *jsonschema.Schema
}

func NewSchemaValidator() (*SchemaValidator, error) {
	compiler := jsonschema.NewCompiler()

	resources := map[string]string{
		"common-v1.json":         commonSchemaJSON,
		"deploy-request-v1.json": deploySchemaJSON,
		"init-request-v1.json":   initSchemaJSON,
	}
	for name, src := range resources {
		if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
			return nil, fmt.Errorf("failed to add schema resource %s: %w", name, err)
		}
	}

	deploy, err := compiler.Compile("deploy-request-v1.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile deploy schema: %w", err)
	}
	initSchema, err := compiler.Compile("init-request-v1.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile init schema: %w", err)
	}

	return &SchemaValidator{deploy: deploy, init: initSchema}, nil
}

func (v *SchemaValidator) ValidateDeploy(data []byte) error {
	return validateJSON(v.deploy, data)
}

func (v *SchemaValidator) ValidateInit(data []byte) error {
	return validateJSON(v.init, data)
}

func validateJSON(schema *jsonschema.Schema, data []byte) error {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	return nil
}
