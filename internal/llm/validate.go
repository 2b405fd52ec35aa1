package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	schema, err := compileSchema("schema.json", schemaMap)
	if err != nil {
		return err
	}
	return validateCompiled(schema, data)
}

func compileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func validateCompiled(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// responseSchema pairs the map sent to the model with its compiled validator.
type responseSchema struct {
	doc      map[string]any
	compiled *jsonschema.Schema
	allowed  map[string]struct{} // top-level keys
}

type schemaSet struct {
	analysis      responseSchema
	summary       responseSchema
	consolidation responseSchema
	treatment     responseSchema
}

var loadSchemas = sync.OnceValues(func() (*schemaSet, error) {
	build := func(name string, doc map[string]any) (responseSchema, error) {
		c, err := compileSchema(name, doc)
		if err != nil {
			return responseSchema{}, fmt.Errorf("%s: %w", name, err)
		}
		allowed := map[string]struct{}{}
		if props, ok := doc["properties"].(map[string]any); ok {
			for k := range props {
				allowed[k] = struct{}{}
			}
		}
		return responseSchema{doc: doc, compiled: c, allowed: allowed}, nil
	}

	var (
		s   schemaSet
		err error
	)
	if s.analysis, err = build("analysis.json", BuildAnalysisJSONSchema()); err != nil {
		return nil, err
	}
	if s.summary, err = build("summary.json", BuildSummaryJSONSchema()); err != nil {
		return nil, err
	}
	if s.consolidation, err = build("consolidation.json", BuildConsolidationJSONSchema()); err != nil {
		return nil, err
	}
	if s.treatment, err = build("treatment.json", BuildTreatmentJSONSchema()); err != nil {
		return nil, err
	}
	return &s, nil
})
