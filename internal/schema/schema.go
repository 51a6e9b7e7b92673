package schema

// Type is the primitive type marker of an inferred schema node.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// Property is a named child of an object schema.
type Property struct {
	Name   string
	Schema *Schema
}

// Schema is the output shape inferred from an example value.
type Schema struct {
	Type       Type
	Items      *Schema
	Properties []Property
}

// Infer walks an example value and returns its shape. Empty arrays default to
// arrays of strings, non-empty arrays take their element type from the first
// element, and null or unknown values fall back to the string type.
func Infer(v Value) *Schema {
	switch v.Kind {
	case KindNumber:
		return &Schema{Type: TypeNumber}
	case KindBoolean:
		return &Schema{Type: TypeBoolean}
	case KindArray:
		if len(v.Elems) == 0 {
			return &Schema{Type: TypeArray, Items: &Schema{Type: TypeString}}
		}
		return &Schema{Type: TypeArray, Items: Infer(v.Elems[0])}
	case KindObject:
		props := make([]Property, 0, len(v.Fields))
		for _, f := range v.Fields {
			props = append(props, Property{Name: f.Key, Schema: Infer(f.Value)})
		}
		return &Schema{Type: TypeObject, Properties: props}
	default:
		return &Schema{Type: TypeString}
	}
}

// InferExample is shorthand for Infer(Of(example)).
func InferExample(example any) *Schema {
	return Infer(Of(example))
}

// Keys returns the property names of an object schema in declaration order.
func (s *Schema) Keys() []string {
	keys := make([]string, 0, len(s.Properties))
	for _, p := range s.Properties {
		keys = append(keys, p.Name)
	}
	return keys
}

// JSONSchema renders the schema as JSON Schema compatible with OpenAI strict
// structured outputs: every property is required and no extras are allowed.
func (s *Schema) JSONSchema() map[string]any {
	if s == nil {
		return map[string]any{"type": string(TypeString)}
	}
	out := map[string]any{"type": string(s.Type)}
	switch s.Type {
	case TypeArray:
		out["items"] = s.Items.JSONSchema()
	case TypeObject:
		props := make(map[string]any, len(s.Properties))
		for _, p := range s.Properties {
			props[p.Name] = p.Schema.JSONSchema()
		}
		out["properties"] = props
		out["required"] = s.Keys()
		out["additionalProperties"] = false
	}
	return out
}

// GeminiSchema renders the schema in the OpenAPI subset accepted by the
// Gemini response_schema field.
func (s *Schema) GeminiSchema() map[string]any {
	if s == nil {
		return map[string]any{"type": "STRING"}
	}
	out := map[string]any{"type": geminiType(s.Type)}
	switch s.Type {
	case TypeArray:
		out["items"] = s.Items.GeminiSchema()
	case TypeObject:
		props := make(map[string]any, len(s.Properties))
		for _, p := range s.Properties {
			props[p.Name] = p.Schema.GeminiSchema()
		}
		out["properties"] = props
		if keys := s.Keys(); len(keys) > 0 {
			out["required"] = keys
			out["propertyOrdering"] = keys
		}
	}
	return out
}

func geminiType(t Type) string {
	switch t {
	case TypeNumber:
		return "NUMBER"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeArray:
		return "ARRAY"
	case TypeObject:
		return "OBJECT"
	default:
		return "STRING"
	}
}
