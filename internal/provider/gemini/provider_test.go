package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"llmbridge/internal/config"
	"llmbridge/internal/models"
	"llmbridge/internal/provider"
	"llmbridge/internal/transport"
)

type capture struct {
	calls []transport.Request
	reply *transport.Response
}

func (c *capture) do(_ context.Context, req transport.Request) (*transport.Response, error) {
	c.calls = append(c.calls, req)
	return c.reply, nil
}

func newTestProvider(t *testing.T, c *capture) *Provider {
	t.Helper()
	p, err := New(config.ProviderConfig{APIKey: "g-key", BaseURL: "https://gen.test/v1beta/"}, WithTransport(c.do))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func reply(status int, body string) *transport.Response {
	return &transport.Response{StatusCode: status, Body: []byte(body)}
}

func requestBody(t *testing.T, req transport.Request) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(req.Body, &out); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	return out
}

func TestCompleteFormatsConversation(t *testing.T) {
	c := &capture{reply: reply(200, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Bonjour"},{"text":" !"}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":9,"candidatesTokenCount":2,"totalTokenCount":11}}`)}
	p := newTestProvider(t, c)

	maxTokens := 64
	messages := []models.Message{
		models.NewSystemMessage("Answer in French."),
		models.NewUserMessage("hello"),
		{Role: models.RoleAssistant, Content: "salut"},
		models.NewUserMessage("again"),
	}
	res, err := p.Complete(context.Background(), messages, "gemini-1.5-flash", models.RequestOptions{
		MaxTokens: &maxTokens,
		Extra:     map[string]any{"stop": []any{"END"}, "seed": 3},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	req := c.calls[0]
	if req.URL != "https://gen.test/v1beta/models/gemini-1.5-flash:generateContent" {
		t.Fatalf("unexpected url %s", req.URL)
	}
	if req.Header.Get("x-goog-api-key") != "g-key" {
		t.Fatalf("api key header missing")
	}
	if strings.Contains(req.URL, "g-key") {
		t.Fatalf("api key must not travel in the url")
	}

	body := requestBody(t, req)
	contents := body["contents"].([]any)
	if len(contents) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(contents))
	}
	if role := contents[1].(map[string]any)["role"]; role != "model" {
		t.Fatalf("assistant should map to model, got %v", role)
	}
	sys := body["systemInstruction"].(map[string]any)["parts"].([]any)
	if sys[0].(map[string]any)["text"] != "Answer in French." {
		t.Fatalf("unexpected system instruction %v", sys)
	}
	cfg := body["generationConfig"].(map[string]any)
	if cfg["max_output_tokens"] != float64(64) || cfg["seed"] != float64(3) {
		t.Fatalf("unexpected generation config %v", cfg)
	}
	if stop := cfg["stop_sequences"].([]any); stop[0] != "END" {
		t.Fatalf("stop not mapped: %v", cfg)
	}

	if res.Text != "Bonjour !" || res.Data != "Bonjour !" || res.Structured {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Usage != (models.Usage{PromptTokens: 9, CompletionTokens: 2, TotalTokens: 11}) {
		t.Fatalf("unexpected usage %+v", res.Usage)
	}
	if res.Provider != "gemini" || res.Model != "gemini-1.5-flash" {
		t.Fatalf("unexpected identity %+v", res)
	}
}

func TestCompleteNativeSchema(t *testing.T) {
	c := &capture{reply: reply(200, `{"candidates":[{"content":{"parts":[{"text":"[{\"city\":\"Paris\"}]"}]}}]}`)}
	p := newTestProvider(t, c)

	res, err := p.Complete(context.Background(), []models.Message{models.NewUserMessage("list cities")}, "gemini-2.0-flash", models.RequestOptions{
		Example: json.RawMessage(`[{"city":""}]`),
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	body := requestBody(t, c.calls[0])
	cfg := body["generationConfig"].(map[string]any)
	if cfg["response_mime_type"] != "application/json" {
		t.Fatalf("mime type not set: %v", cfg)
	}
	schema := cfg["response_schema"].(map[string]any)
	if schema["type"] != "ARRAY" || schema["items"].(map[string]any)["type"] != "OBJECT" {
		t.Fatalf("unexpected schema %v", schema)
	}
	text := body["contents"].([]any)[0].(map[string]any)["parts"].([]any)[0].(map[string]any)["text"]
	if text != "list cities" {
		t.Fatalf("native mode must not inject: %v", text)
	}

	rows, ok := res.Data.([]any)
	if !res.Structured || !ok || len(rows) != 1 {
		t.Fatalf("unexpected data %#v", res.Data)
	}
}

func TestCompletePromptInjection(t *testing.T) {
	c := &capture{reply: reply(200, `{"candidates":[{"content":{"parts":[{"text":"{\"name\":\"France\",\"capital\":\"Paris\"}"}]}}]}`)}
	p := newTestProvider(t, c)

	res, err := p.Complete(context.Background(), []models.Message{models.NewUserMessage("tell me about France")}, "gemini-1.0-pro", models.RequestOptions{
		Example: map[string]any{"name": "", "capital": ""},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	body := requestBody(t, c.calls[0])
	if _, ok := body["generationConfig"]; ok {
		t.Fatalf("no generation config expected: %v", body["generationConfig"])
	}
	text := body["contents"].([]any)[0].(map[string]any)["parts"].([]any)[0].(map[string]any)["text"].(string)
	if !strings.HasPrefix(text, "tell me about France\n\n") || !strings.Contains(text, `"capital"`) {
		t.Fatalf("instruction not injected: %q", text)
	}
	if !res.Structured {
		t.Fatalf("expected decoded data, got %+v", res)
	}
}

func TestCompleteUpstreamError(t *testing.T) {
	const payload = `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`
	c := &capture{reply: reply(400, payload)}
	p := newTestProvider(t, c)

	_, err := p.Complete(context.Background(), []models.Message{models.NewUserMessage("hi")}, "gemini-1.5-pro", models.RequestOptions{})
	ue, ok := provider.AsUpstreamError(err)
	if !ok || string(ue.Body) != payload || !strings.Contains(ue.Error(), "INVALID_ARGUMENT") {
		t.Fatalf("expected upstream error with payload, got %v", err)
	}
}

func TestCompleteRejectsSystemOnlyConversation(t *testing.T) {
	c := &capture{}
	p := newTestProvider(t, c)

	_, err := p.Complete(context.Background(), []models.Message{models.NewSystemMessage("only system")}, "gemini-1.5-pro", models.RequestOptions{})
	if !errors.Is(err, provider.ErrValidation) || len(c.calls) != 0 {
		t.Fatalf("expected validation error without calls, got %v (%d calls)", err, len(c.calls))
	}
}

func TestBatchOperationsUnsupported(t *testing.T) {
	c := &capture{}
	p := newTestProvider(t, c)
	ctx := context.Background()

	_, err := p.CreateBatch(ctx, "gemini-1.5-pro", []models.BatchItem{{Messages: []models.Message{models.NewUserMessage("x")}}}, models.BatchOptions{})
	if !errors.Is(err, provider.ErrCapabilityUnsupported) || !strings.Contains(err.Error(), "gemini/gemini-1.5-pro") {
		t.Fatalf("CreateBatch: %v", err)
	}
	if _, err := p.CheckBatch(ctx, "job"); !errors.Is(err, provider.ErrCapabilityUnsupported) {
		t.Fatalf("CheckBatch: %v", err)
	}
	if _, err := p.RetrieveBatch(ctx, "job"); !errors.Is(err, provider.ErrCapabilityUnsupported) {
		t.Fatalf("RetrieveBatch: %v", err)
	}
	if ok, err := p.CancelBatch(ctx, "job"); ok || !errors.Is(err, provider.ErrCapabilityUnsupported) {
		t.Fatalf("CancelBatch: %v %v", ok, err)
	}
	if len(c.calls) != 0 {
		t.Fatalf("batch operations must not touch the network, got %d calls", len(c.calls))
	}
}
