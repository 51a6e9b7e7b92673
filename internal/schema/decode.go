package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrDecode marks a completion whose text could not be decoded as JSON. It is
// only ever attached to a Decoded result, never returned as a failure.
var ErrDecode = errors.New("structured output decode failed")

// Decoded is the outcome of parsing a completion's text. When Structured is
// false, Value holds the raw text and Err explains why structure was lost.
type Decoded struct {
	Value      any
	Structured bool
	Err        error
}

// Decode parses text as a single JSON document.
func Decode(text string) Decoded {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return Decoded{
			Value: text,
			Err:   fmt.Errorf("%w: %v (payload snippet: %s)", ErrDecode, err, snippet(text)),
		}
	}
	return Decoded{Value: value, Structured: true}
}

// Raw wraps text that was never meant to be structured.
func Raw(text string) Decoded {
	return Decoded{Value: text}
}

func snippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}

// DecodeIf decodes text only when structure was requested.
func DecodeIf(text string, structured bool) Decoded {
	if !structured {
		return Raw(text)
	}
	return Decode(text)
}
