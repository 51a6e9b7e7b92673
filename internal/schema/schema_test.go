package schema

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"llmbridge/internal/models"
)

func TestOfPreservesRawKeyOrder(t *testing.T) {
	v := Of(json.RawMessage(`{"zeta":1,"alpha":"a","mid":{"b":true,"a":null}}`))
	if v.Kind != KindObject {
		t.Fatalf("kind = %s, want object", v.Kind)
	}
	var keys []string
	for _, f := range v.Fields {
		keys = append(keys, f.Key)
	}
	if want := []string{"zeta", "alpha", "mid"}; !reflect.DeepEqual(keys, want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got := string(data); got != `{"zeta":1,"alpha":"a","mid":{"b":true,"a":null}}` {
		t.Fatalf("round trip = %s", got)
	}
}

func TestOfStructKeepsFieldOrder(t *testing.T) {
	type country struct {
		Name    string   `json:"name"`
		Capital string   `json:"capital"`
		Cities  []string `json:"cities"`
	}
	s := InferExample(country{})
	if got := s.Keys(); !reflect.DeepEqual(got, []string{"name", "capital", "cities"}) {
		t.Fatalf("keys = %v", got)
	}
	// A nil slice marshals to null, which falls back to the string type.
	if s.Properties[2].Schema.Type != TypeString {
		t.Fatalf("cities type = %s", s.Properties[2].Schema.Type)
	}
}

func TestOfNeverFails(t *testing.T) {
	inputs := []any{
		nil,
		make(chan int),
		func() {},
		[]byte("not json"),
		json.RawMessage(`{"a":`),
		3.5,
		map[string]any{"b": 1, "a": []any{}},
	}
	for _, in := range inputs {
		_ = Infer(Of(in))
	}
	if got := Of(make(chan int)).Kind; got != KindString {
		t.Fatalf("unsupported value kind = %s, want string", got)
	}
}

func TestInfer(t *testing.T) {
	tests := []struct {
		name    string
		example string
		want    map[string]any
	}{
		{
			name:    "string",
			example: `"x"`,
			want:    map[string]any{"type": "string"},
		},
		{
			name:    "number",
			example: `42`,
			want:    map[string]any{"type": "number"},
		},
		{
			name:    "boolean",
			example: `false`,
			want:    map[string]any{"type": "boolean"},
		},
		{
			name:    "null falls back to string",
			example: `null`,
			want:    map[string]any{"type": "string"},
		},
		{
			name:    "empty array defaults to strings",
			example: `[]`,
			want:    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		{
			name:    "array uses first element",
			example: `[1,"two",true]`,
			want:    map[string]any{"type": "array", "items": map[string]any{"type": "number"}},
		},
		{
			name:    "object",
			example: `{"name":"","tags":[],"geo":{"lat":0}}`,
			want: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{"type": "string"},
					"tags": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"geo": map[string]any{
						"type":                 "object",
						"properties":           map[string]any{"lat": map[string]any{"type": "number"}},
						"required":             []string{"lat"},
						"additionalProperties": false,
					},
				},
				"required":             []string{"name", "tags", "geo"},
				"additionalProperties": false,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Infer(Of(json.RawMessage(tt.example))).JSONSchema()
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("JSONSchema() = %#v\nwant %#v", got, tt.want)
			}
		})
	}
}

func TestGeminiSchema(t *testing.T) {
	got := InferExample(json.RawMessage(`{"city":"","rank":1,"sights":[{"name":""}]}`)).GeminiSchema()
	if got["type"] != "OBJECT" {
		t.Fatalf("type = %v", got["type"])
	}
	if order := got["propertyOrdering"]; !reflect.DeepEqual(order, []string{"city", "rank", "sights"}) {
		t.Fatalf("propertyOrdering = %v", order)
	}
	props := got["properties"].(map[string]any)
	sights := props["sights"].(map[string]any)
	if sights["type"] != "ARRAY" {
		t.Fatalf("sights type = %v", sights["type"])
	}
	if items := sights["items"].(map[string]any); items["type"] != "OBJECT" {
		t.Fatalf("sights items type = %v", items["type"])
	}
	if rank := props["rank"].(map[string]any); rank["type"] != "NUMBER" {
		t.Fatalf("rank type = %v", rank["type"])
	}
}

func TestDescribeCollapsesArrays(t *testing.T) {
	got := Describe(Of(json.RawMessage(`{"tags":["a","b","c"],"items":[{"x":1},{"x":2}],"n":3}`)))
	if !strings.HasPrefix(got, instructionPrefix) {
		t.Fatalf("missing instruction prefix: %q", got)
	}
	if !strings.Contains(got, `{"tags":["example"],"items":[{}],"n":3}`) {
		t.Fatalf("unexpected description: %q", got)
	}
}

func TestInjectAppendsToLastUserMessage(t *testing.T) {
	in := []models.Message{
		{Role: models.RoleSystem, Content: "be brief"},
		{Role: models.RoleUser, Content: "first"},
		{Role: models.RoleAssistant, Content: "ok"},
		{Role: models.RoleUser, Content: "tell me about France"},
	}
	original := append([]models.Message(nil), in...)

	out := Inject(in, map[string]any{"name": "", "capital": ""})

	if !reflect.DeepEqual(in, original) {
		t.Fatalf("input messages were mutated")
	}
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := 0; i < 3; i++ {
		if out[i] != in[i] {
			t.Fatalf("message %d changed: %+v", i, out[i])
		}
	}
	last := out[3].Content
	if !strings.HasPrefix(last, "tell me about France") {
		t.Fatalf("original text not kept first: %q", last)
	}
	if !strings.Contains(last, `"name"`) || !strings.Contains(last, `"capital"`) {
		t.Fatalf("instruction does not mention keys: %q", last)
	}
	if !MentionsJSON(out) {
		t.Fatalf("instruction should mention JSON")
	}
}

func TestInjectAppendsUserMessageWhenNoneExists(t *testing.T) {
	in := []models.Message{{Role: models.RoleSystem, Content: "sys"}}
	out := Inject(in, []any{1, 2})
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[1].Role != models.RoleUser {
		t.Fatalf("role = %s", out[1].Role)
	}
	if !strings.HasPrefix(out[1].Content, instructionPrefix) {
		t.Fatalf("content = %q", out[1].Content)
	}
	if len(in) != 1 {
		t.Fatalf("input slice grew")
	}
}

func TestRequiresStructure(t *testing.T) {
	tests := []struct {
		name    string
		example any
		want    bool
	}{
		{"nil", nil, false},
		{"plain string", "an answer", false},
		{"raw json string", json.RawMessage(`"x"`), false},
		{"object", map[string]any{"a": 1}, true},
		{"array", []string{}, true},
		{"number", 3, true},
		{"bool", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RequiresStructure(tt.example); got != tt.want {
				t.Fatalf("RequiresStructure(%v) = %v, want %v", tt.example, got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	d := Decode(`{"name":"France","capital":"Paris","pop":68}`)
	if !d.Structured || d.Err != nil {
		t.Fatalf("expected structured decode, got %+v", d)
	}
	want := map[string]any{"name": "France", "capital": "Paris", "pop": float64(68)}
	if !reflect.DeepEqual(d.Value, want) {
		t.Fatalf("value = %#v", d.Value)
	}

	text := "Sure! Here is France: capital Paris"
	d = Decode(text)
	if d.Structured {
		t.Fatalf("expected fallback")
	}
	if d.Value != text {
		t.Fatalf("value = %#v, want raw text", d.Value)
	}
	if !errors.Is(d.Err, ErrDecode) {
		t.Fatalf("err = %v", d.Err)
	}
}
