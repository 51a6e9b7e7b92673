package router

import (
	"context"
	"errors"
	"strings"
	"testing"

	"llmbridge/internal/config"
	"llmbridge/internal/models"
	"llmbridge/internal/provider"
	"llmbridge/internal/provider/factory"
	"llmbridge/internal/transport"
)

func newTestRouter(t *testing.T, fn transport.Func) *Router {
	t.Helper()
	cfg := config.Config{Providers: config.ProvidersConfig{
		OpenAI: config.ProviderConfig{APIKey: "sk", BaseURL: "https://openai.test/v1"},
		Gemini: config.ProviderConfig{APIKey: "g", BaseURL: "https://gemini.test/v1beta"},
	}}
	registry := provider.NewRegistry()
	if err := factory.RegisterConfiguredProviders(context.Background(), cfg, registry, factory.Options{Transport: fn}); err != nil {
		t.Fatalf("register providers: %v", err)
	}
	return New(registry)
}

func TestCompleteDispatchesByKey(t *testing.T) {
	var urls []string
	r := newTestRouter(t, func(_ context.Context, req transport.Request) (*transport.Response, error) {
		urls = append(urls, req.URL)
		if strings.HasPrefix(req.URL, "https://gemini.test") {
			return &transport.Response{StatusCode: 200, Body: []byte(`{"candidates":[{"content":{"parts":[{"text":"from gemini"}]}}]}`)}, nil
		}
		return &transport.Response{StatusCode: 200, Body: []byte(`{"choices":[{"message":{"role":"assistant","content":"from openai"}}]}`)}, nil
	})

	messages := []models.Message{models.NewUserMessage("hi")}
	res, desc, err := r.Complete(context.Background(), "gemini/gemini-1.5-flash", messages, models.RequestOptions{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.Text != "from gemini" || desc.Provider != "gemini" {
		t.Fatalf("unexpected result %+v %+v", res, desc)
	}

	res, _, err = r.Complete(context.Background(), "openai/gpt-4o", messages, models.RequestOptions{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.Text != "from openai" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(urls) != 2 {
		t.Fatalf("expected two calls, got %v", urls)
	}
}

func TestCompleteErrors(t *testing.T) {
	r := newTestRouter(t, func(context.Context, transport.Request) (*transport.Response, error) {
		return &transport.Response{StatusCode: 500, Body: []byte(`{"error":{"message":"down"}}`)}, nil
	})
	messages := []models.Message{models.NewUserMessage("hi")}

	tests := []struct {
		key  string
		want error
	}{
		{key: "claude/sonnet", want: provider.ErrUnsupportedProvider},
		{key: "gpt-4o", want: provider.ErrUnsupportedProvider},
		{key: "openai/gpt-unknown", want: provider.ErrModelNotFound},
		{key: "openai/gpt-4o", want: provider.ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			_, _, err := r.Complete(context.Background(), tt.key, messages, models.RequestOptions{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestBatchOnGeminiIsRejected(t *testing.T) {
	calls := 0
	r := newTestRouter(t, func(context.Context, transport.Request) (*transport.Response, error) {
		calls++
		return &transport.Response{StatusCode: 200}, nil
	})

	items := []models.BatchItem{{Messages: []models.Message{models.NewUserMessage("x")}}}
	_, err := r.CreateBatch(context.Background(), "gemini/gemini-1.5-pro", items, models.BatchOptions{})
	if !errors.Is(err, provider.ErrCapabilityUnsupported) {
		t.Fatalf("expected capability error, got %v", err)
	}
	if _, err := r.CheckBatch(context.Background(), "gemini", "job"); !errors.Is(err, provider.ErrCapabilityUnsupported) {
		t.Fatalf("expected capability error, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no network calls, got %d", calls)
	}
}

func TestCheckBatchUnknownProvider(t *testing.T) {
	r := newTestRouter(t, nil)
	if _, err := r.CancelBatch(context.Background(), "mistral", "job"); !errors.Is(err, provider.ErrUnsupportedProvider) {
		t.Fatalf("expected unsupported provider, got %v", err)
	}
}
