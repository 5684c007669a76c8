package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var rawContract []byte

var loadContract = sync.OnceValues(func() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawContract)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI contract: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI contract: %w", err)
	}
	return doc, nil
})

// Contract returns the parsed and validated OpenAPI document served at /openapi.yaml.
func Contract() (*openapi3.T, error) {
	return loadContract()
}

// RawContract returns the embedded OpenAPI document as YAML.
func RawContract() []byte {
	return rawContract
}

// validateBody checks a JSON request body against a schema of the contract's components.
func validateBody(schemaName string, body []byte) error {
	doc, err := Contract()
	if err != nil {
		return err
	}
	ref, ok := doc.Components.Schemas[schemaName]
	if !ok || ref.Value == nil {
		return fmt.Errorf("schema %q not found in contract", schemaName)
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return err
	}
	return ref.Value.VisitJSON(value)
}
