package tracker

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compileSchema compiles the configured input schema. A nil document means
// no schema.
func compileSchema(doc map[string]any) (*jsonschema.Schema, error) {
	if doc == nil {
		return nil, nil
	}

	normalized, err := normalize(doc)
	if err != nil {
		return nil, fmt.Errorf("normalize input schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("input.json", normalized); err != nil {
		return nil, fmt.Errorf("add input schema resource: %w", err)
	}
	schema, err := c.Compile("input.json")
	if err != nil {
		return nil, fmt.Errorf("compile input schema: %w", err)
	}
	return schema, nil
}

// normalize round-trips v through JSON so it only holds the types the
// validator understands.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
