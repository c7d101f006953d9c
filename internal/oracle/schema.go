package oracle

import (
	"fmt"
	"strings"
)

// Schema declares the shape of a structured oracle response. It is the single
// source of truth for both invocation paths: the structured path submits it
// as a tool's input schema, the fallback path renders it as field-by-field
// prompt instructions.
type Schema struct {
	Name        string
	Description string
	Properties  []Property
}

// Property is one field of a schema.
type Property struct {
	Name        string
	Type        string // "string", "integer", "number", "boolean", "array", "object"
	Description string
	// Items describes array element type ("string" etc.); empty for non-arrays.
	Items string
	// Required marks fields the oracle must populate.
	Required bool
}

// ToInputSchema converts the schema to a JSON-Schema map suitable for a tool
// definition's input_schema.
func (s Schema) ToInputSchema() map[string]interface{} {
	props := make(map[string]interface{}, len(s.Properties))
	var required []string
	for _, p := range s.Properties {
		field := map[string]interface{}{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Type == "array" {
			items := p.Items
			if items == "" {
				items = "string"
			}
			field["items"] = map[string]interface{}{"type": items}
		}
		if p.Type == "object" {
			// Free-form mappings (e.g. symbol -> meaning).
			field["additionalProperties"] = map[string]interface{}{"type": "string"}
		}
		props[p.Name] = field
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// ToToolDefinition wraps the schema as a single callable tool.
func (s Schema) ToToolDefinition() ToolDefinition {
	return ToolDefinition{
		Name:        s.Name,
		Description: s.Description,
		InputSchema: s.ToInputSchema(),
	}
}

// RenderInstructions renders the schema as natural-language instructions to
// append to a prompt on the fallback path. The oracle is asked for a bare
// JSON object matching the declared fields.
func (s Schema) RenderInstructions() string {
	var b strings.Builder
	b.WriteString("Return ONLY a valid JSON object with these exact keys, nothing else:\n")
	for _, p := range s.Properties {
		typ := p.Type
		if p.Type == "array" {
			items := p.Items
			if items == "" {
				items = "string"
			}
			typ = fmt.Sprintf("array of %ss", items)
		}
		req := ""
		if p.Required {
			req = ", required"
		}
		fmt.Fprintf(&b, "- %q (%s%s): %s\n", p.Name, typ, req, p.Description)
	}
	b.WriteString("Do not wrap the JSON in markdown fences or add commentary.")
	return b.String()
}
