package translator

import (
	"encoding/json"
	"errors"
	"testing"

	"llmbridge/internal/models"
	"llmbridge/internal/schema"
)

func TestCompleteRequestDecoding(t *testing.T) {
	body := `{
		"model": " openai/gpt-4o ",
		"messages": [
			{"role": "system", "content": "be brief"},
			{"role": "user", "content": [{"type": "text", "text": "hello "}, {"type": "text", "text": "json"}]}
		],
		"options": {"temperature": 0.5, "stop": "END", "seed": 42, "example": {"b": 1, "a": ""}}
	}`

	var req CompleteRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.Model != "openai/gpt-4o" {
		t.Fatalf("model not trimmed: %q", req.Model)
	}
	if req.Messages[1].Content != "hello json" {
		t.Fatalf("segments not joined: %q", req.Messages[1].Content)
	}

	opts := req.Options.ToUnified()
	if opts.Temperature == nil || *opts.Temperature != 0.5 {
		t.Fatalf("temperature lost: %+v", opts)
	}
	if stop, ok := opts.Extra["stop"].([]string); !ok || stop[0] != "END" {
		t.Fatalf("stop not normalised: %#v", opts.Extra["stop"])
	}
	if opts.Extra["seed"] != float64(42) {
		t.Fatalf("unknown keys should pass through: %#v", opts.Extra)
	}
	if _, ok := opts.Extra["example"]; ok {
		t.Fatalf("example must not leak into extras")
	}
	keys := schema.InferExample(opts.Example).Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Fatalf("example key order not preserved: %v", keys)
	}
}

func TestCompleteRequestValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{name: "missing model", body: `{"messages":[{"role":"user","content":"x"}]}`, want: errEmptyModel},
		{name: "no messages", body: `{"model":"openai/gpt-4o"}`, want: errEmptyMessages},
		{name: "bad role", body: `{"model":"m/x","messages":[{"role":"tool","content":"x"}]}`, want: errInvalidRole},
		{name: "empty content", body: `{"model":"m/x","messages":[{"role":"user","content":"  "}]}`, want: errInvalidContent},
		{name: "image segment", body: `{"model":"m/x","messages":[{"role":"user","content":[{"type":"image_url"}]}]}`, want: errInvalidContent},
		{name: "bad stop", body: `{"model":"m/x","messages":[{"role":"user","content":"x"}],"options":{"stop":[""]}}`, want: errUnsupportedStop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req CompleteRequest
			err := json.Unmarshal([]byte(tt.body), &req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestOptionsPlainStringExample(t *testing.T) {
	var opts Options
	if err := json.Unmarshal([]byte(`{"example":"just text"}`), &opts); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if schema.RequiresStructure(opts.ToUnified().Example) {
		t.Fatalf("a string example must not request structure")
	}

	var none Options
	if err := json.Unmarshal([]byte(`{"example":null}`), &none); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if none.ToUnified().Example != nil {
		t.Fatalf("null example should be dropped")
	}
}

func TestBatchRequestToUnified(t *testing.T) {
	body := `{
		"model": "openai/gpt-4o-mini",
		"name": "nightly",
		"timeout_seconds": 7200,
		"defaults": {"max_tokens": 100},
		"items": [
			{"messages": [{"role": "user", "content": "a"}]},
			{"id": "custom", "messages": [{"role": "user", "content": "b"}], "options": {"temperature": 1}}
		]
	}`
	var req BatchRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	items, opts := req.ToUnified()
	if len(items) != 2 || items[1].ID != "custom" || items[0].Options != nil {
		t.Fatalf("unexpected items %+v", items)
	}
	if items[1].Options == nil || *items[1].Options.Temperature != 1 {
		t.Fatalf("item options lost: %+v", items[1].Options)
	}
	if opts.Name != "nightly" || opts.TimeoutSeconds != 7200 || *opts.Defaults.MaxTokens != 100 {
		t.Fatalf("unexpected options %+v", opts)
	}
	if items[0].Messages[0].Role != models.RoleUser {
		t.Fatalf("role not converted: %+v", items[0].Messages)
	}
}

func TestBatchRequestValidation(t *testing.T) {
	var req BatchRequest
	if err := json.Unmarshal([]byte(`{"model":"openai/gpt-4o","items":[]}`), &req); !errors.Is(err, errEmptyItems) {
		t.Fatalf("expected empty items error, got %v", err)
	}
	if err := json.Unmarshal([]byte(`{"model":"openai/gpt-4o","timeout_seconds":-1,"items":[{"messages":[{"role":"user","content":"x"}]}]}`), &req); err == nil {
		t.Fatalf("expected negative timeout to be rejected")
	}
}

func TestFromDescriptorsUsesKeys(t *testing.T) {
	list := FromDescriptors([]models.ModelDescriptor{{ID: "gpt-4o", Name: "GPT-4o", Provider: "openai"}})
	if list.Data[0].ID != "openai/gpt-4o" {
		t.Fatalf("unexpected id %q", list.Data[0].ID)
	}
}
