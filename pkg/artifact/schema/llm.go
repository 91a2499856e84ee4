package schema

import (
	"maps"
	"slices"
)

// LLM schema transformation utilities for provider structured output.

// TransformForOpenAI adapts a flattened schema for OpenAI's structured output
// requirements. OpenAI strict mode requires:
//   - type "object" at root level
//   - all properties must be in required array
//   - additionalProperties must be false
//
// Optional properties stay optional by being nullable, so the nullable error
// property added by Options.AllowError is compatible.
func TransformForOpenAI(schema map[string]any) map[string]any {
	out := maps.Clone(schema)
	delete(out, "$schema")
	if _, hasType := out["type"]; !hasType {
		out["type"] = "object"
	}
	ensureAllPropertiesRequired(out)
	return out
}

// ForOpenAI generates the document schema and adapts it for OpenAI strict mode.
func ForOpenAI(opts Options) (map[string]any, error) {
	s, err := NewGenerator(opts).GenerateFlattened()
	if err != nil {
		return nil, err
	}
	return TransformForOpenAI(s), nil
}

// ensureAllPropertiesRequired recursively ensures all object properties are in
// the required array.
func ensureAllPropertiesRequired(node any) {
	v, ok := node.(map[string]any)
	if !ok {
		return
	}
	if v["type"] != "object" {
		return
	}
	props, ok := v["properties"].(map[string]any)
	if !ok {
		return
	}

	// Sorted so the output is stable across runs.
	v["required"] = slices.Sorted(maps.Keys(props))
	v["additionalProperties"] = false

	for _, propSchema := range props {
		ensureAllPropertiesRequired(propSchema)
	}
}
