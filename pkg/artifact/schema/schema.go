// Package schema generates the JSON Schema that producers are asked to follow
// when they emit an artifact document.
package schema

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"github.com/deepankarm/artifactstream/pkg/artifact"
	"github.com/invopop/jsonschema"
)

// errorDescription documents the optional error key.
const errorDescription = "Set only when the request cannot be fulfilled; explains why. Leave null otherwise."

// Options allows customizing schema generation
type Options struct {
	Title       string
	Description string

	// AllowError adds a nullable "error" property so a producer can refuse a
	// request inside the structured output.
	AllowError bool
}

// Generator generates the JSON Schema of artifact.Document
type Generator struct {
	reflector *jsonschema.Reflector
	opts      Options
}

// NewGenerator creates a new schema generator
func NewGenerator(opts Options) *Generator {
	return &Generator{
		reflector: &jsonschema.Reflector{
			AllowAdditionalProperties: false,
		},
		opts: opts,
	}
}

// Generate generates JSON Schema for the document type
func (g *Generator) Generate() *jsonschema.Schema {
	s := g.reflector.Reflect(&artifact.Document{})
	if g.opts.Title != "" {
		s.Title = g.opts.Title
	}
	if g.opts.Description != "" {
		s.Description = g.opts.Description
	}
	return s
}

// GenerateFlattened generates a flattened JSON Schema suitable for LLM APIs
// that require the root object definition at the top level instead of a $ref.
func (g *Generator) GenerateFlattened() (map[string]any, error) {
	schemaJSON, err := json.Marshal(g.Generate())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}

	result := schemaMap
	if ref, hasRef := schemaMap["$ref"].(string); hasRef {
		defs, ok := schemaMap["$defs"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("$defs not found in schema")
		}
		if !strings.HasPrefix(ref, "#/$defs/") {
			return nil, fmt.Errorf("unexpected $ref format: %s", ref)
		}
		rootTypeName := ref[len("#/$defs/"):]
		rootDef, ok := defs[rootTypeName].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("root definition %s not found in $defs", rootTypeName)
		}

		result = make(map[string]any, len(rootDef))
		maps.Copy(result, rootDef)
		if len(defs) > 1 {
			result["$defs"] = defs
		}
	}

	// Title and description set on the root schema are lost with the $ref.
	if g.opts.Title != "" {
		result["title"] = g.opts.Title
	}
	if g.opts.Description != "" {
		result["description"] = g.opts.Description
	}
	if g.opts.AllowError {
		addErrorProperty(result)
	}
	return result, nil
}

// GenerateJSON generates the flattened schema as an indented JSON string
func (g *Generator) GenerateJSON() (string, error) {
	s, err := g.GenerateFlattened()
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Flattened returns the flattened document schema with default options.
func Flattened() (map[string]any, error) {
	return NewGenerator(Options{}).GenerateFlattened()
}

func addErrorProperty(s map[string]any) {
	props, ok := s["properties"].(map[string]any)
	if !ok {
		return
	}
	props["error"] = map[string]any{
		"type":        []any{"string", "null"},
		"description": errorDescription,
	}
}
