package openai

import (
	"fmt"
	"strings"

	"llmbridge/internal/schema"
)

// outputShape records how the text of a completion must be decoded.
type outputShape int

const (
	shapeText outputShape = iota
	// shapeJSON decodes the text as the requested JSON value.
	shapeJSON
	// shapeWrapped decodes the text and unwraps wrapKey. Strict json_schema
	// needs an object root, so array and primitive examples are nested.
	shapeWrapped
)

const (
	wrapKey = "result"

	// Batch custom ids carry the shape of their item so results can be
	// decoded per line.
	markJSON    = "~json"
	markWrapped = "~json." + wrapKey
)

func (s outputShape) structured() bool { return s != shapeText }

// wrappedSchema nests a non-object schema under wrapKey.
func wrappedSchema(inner *schema.Schema) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           map[string]any{wrapKey: inner.JSONSchema()},
		"required":             []string{wrapKey},
		"additionalProperties": false,
	}
}

// decodeOutput parses text according to shape. A wrapped reply that lacks
// wrapKey degrades to raw text like any other decode failure.
func decodeOutput(text string, shape outputShape) schema.Decoded {
	decoded := schema.DecodeIf(text, shape.structured())
	if shape != shapeWrapped || !decoded.Structured {
		return decoded
	}
	obj, _ := decoded.Value.(map[string]any)
	inner, ok := obj[wrapKey]
	if !ok {
		return schema.Decoded{Value: text, Err: fmt.Errorf("%w: reply has no %q field", schema.ErrDecode, wrapKey)}
	}
	return schema.Decoded{Value: inner, Structured: true}
}

func wireCustomID(id string, shape outputShape) string {
	switch shape {
	case shapeJSON:
		return id + markJSON
	case shapeWrapped:
		return id + markWrapped
	default:
		return id
	}
}

// parseCustomID splits a wire custom id into the correlation id and shape.
func parseCustomID(wire string) (string, outputShape) {
	if id, ok := strings.CutSuffix(wire, markWrapped); ok {
		return id, shapeWrapped
	}
	if id, ok := strings.CutSuffix(wire, markJSON); ok {
		return id, shapeJSON
	}
	return wire, shapeText
}
