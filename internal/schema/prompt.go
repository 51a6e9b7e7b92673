package schema

import (
	"strings"

	"llmbridge/internal/models"
)

const instructionPrefix = "Respond only with valid JSON that matches this structure exactly:"

// Describe renders the example as compact JSON followed by an instruction
// asking the model to answer in that shape. Arrays are collapsed to a single
// representative element so long samples do not bloat the prompt.
func Describe(v Value) string {
	data, err := collapse(v).MarshalJSON()
	if err != nil {
		data = []byte("{}")
	}
	var b strings.Builder
	b.WriteString(instructionPrefix)
	b.WriteString("\n")
	b.Write(data)
	return b.String()
}

func collapse(v Value) Value {
	switch v.Kind {
	case KindArray:
		rep := String("example")
		if len(v.Elems) > 0 {
			switch v.Elems[0].Kind {
			case KindObject, KindArray:
				rep = Value{Kind: KindObject, Fields: []Field{}}
			}
		}
		return Value{Kind: KindArray, Elems: []Value{rep}}
	case KindObject:
		fields := make([]Field, 0, len(v.Fields))
		for _, f := range v.Fields {
			fields = append(fields, Field{Key: f.Key, Value: collapse(f.Value)})
		}
		return Value{Kind: KindObject, Fields: fields}
	default:
		return v
	}
}

// Inject returns a copy of messages carrying the structure instruction for
// example. The instruction is appended to the last user message, or sent as a
// new trailing user message when the conversation has none. The input slice
// and its messages are left untouched.
func Inject(messages []models.Message, example any) []models.Message {
	instruction := Describe(Of(example))

	out := make([]models.Message, len(messages), len(messages)+1)
	copy(out, messages)

	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Role != models.RoleUser {
			continue
		}
		out[i].Content = out[i].Content + "\n\n" + instruction
		return out
	}
	return append(out, models.Message{Role: models.RoleUser, Content: instruction})
}

// MentionsJSON reports whether any message contains "json", ignoring case.
func MentionsJSON(messages []models.Message) bool {
	for _, m := range messages {
		if strings.Contains(strings.ToLower(m.Content), "json") {
			return true
		}
	}
	return false
}
