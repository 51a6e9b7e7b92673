package provider

import (
	"context"
	"errors"
	"testing"

	"llmbridge/internal/models"
	"llmbridge/internal/transport"
)

type stubProvider struct {
	name    string
	catalog Catalog
}

func (s stubProvider) Name() string { return s.name }

func (s stubProvider) ListModels(context.Context) ([]models.ModelDescriptor, error) {
	return s.catalog.List(), nil
}

func (s stubProvider) Complete(context.Context, []models.Message, string, models.RequestOptions) (*models.CompletionResult, error) {
	return &models.CompletionResult{}, nil
}

func (s stubProvider) CreateBatch(context.Context, string, []models.BatchItem, models.BatchOptions) (*models.BatchSubmission, error) {
	return nil, Unsupported(s.name, "", "batch requests")
}

func (s stubProvider) CheckBatch(context.Context, string) (*models.BatchStatus, error) {
	return nil, Unsupported(s.name, "", "batch requests")
}

func (s stubProvider) RetrieveBatch(context.Context, string) ([]models.CompletionResult, error) {
	return nil, Unsupported(s.name, "", "batch requests")
}

func (s stubProvider) CancelBatch(context.Context, string) (bool, error) {
	return false, Unsupported(s.name, "", "batch requests")
}

func newStub(name string, ids ...string) stubProvider {
	list := make([]models.ModelDescriptor, 0, len(ids))
	for _, id := range ids {
		list = append(list, models.ModelDescriptor{ID: id})
	}
	return stubProvider{name: name, catalog: NewCatalog(name, list, nil)}
}

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(newStub("openai", "gpt-4o")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(newStub("openai", "gpt-4o")); !errors.Is(err, ErrDuplicateProvider) {
		t.Fatalf("duplicate register err = %v", err)
	}

	p, desc, err := reg.Resolve(context.Background(), "OpenAI/gpt-4o")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Name() != "openai" || desc.ID != "gpt-4o" || desc.Provider != "openai" {
		t.Fatalf("unexpected resolution: %s %+v", p.Name(), desc)
	}

	tests := []struct {
		key  string
		want error
	}{
		{"anthropic/claude", ErrUnsupportedProvider},
		{"gpt-4o", ErrUnsupportedProvider},
		{"openai/", ErrUnsupportedProvider},
		{"openai/gpt-5", ErrModelNotFound},
	}
	for _, tt := range tests {
		if _, _, err := reg.Resolve(context.Background(), tt.key); !errors.Is(err, tt.want) {
			t.Fatalf("Resolve(%q) err = %v, want %v", tt.key, err, tt.want)
		}
	}
}

func TestSplitKeyKeepsNestedSlashes(t *testing.T) {
	p, m, err := SplitKey("gemini/tunedModels/my-model")
	if err != nil {
		t.Fatalf("SplitKey: %v", err)
	}
	if p != "gemini" || m != "tunedModels/my-model" {
		t.Fatalf("got %q %q", p, m)
	}
}

func TestCatalogExtrasOverrideBuiltins(t *testing.T) {
	c := NewCatalog("openai",
		[]models.ModelDescriptor{{ID: "a", Name: "A"}, {ID: "b"}},
		[]models.ModelDescriptor{{ID: "b", Name: "Bee", Capabilities: models.Capabilities{BatchRequests: true}}, {ID: "c"}},
	)
	list := c.List()
	if len(list) != 3 {
		t.Fatalf("len = %d", len(list))
	}
	if list[1].Name != "Bee" || !list[1].Capabilities.BatchRequests {
		t.Fatalf("override not applied: %+v", list[1])
	}
	if list[2].Name != "c" || list[2].Provider != "openai" {
		t.Fatalf("defaults not applied: %+v", list[2])
	}
	list[0].ID = "mutated"
	if _, err := c.Lookup("a"); err != nil {
		t.Fatalf("catalogue mutated through List copy: %v", err)
	}
}

func TestNewUpstreamError(t *testing.T) {
	body := []byte(`{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`)
	err := error(NewUpstreamError("openai", &transport.Response{StatusCode: 401, Body: body}))
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("not tagged ErrUpstream")
	}
	ue, ok := AsUpstreamError(err)
	if !ok {
		t.Fatalf("AsUpstreamError failed")
	}
	if string(ue.Body) != string(body) {
		t.Fatalf("body not kept verbatim: %s", ue.Body)
	}
	if want := "openai error (http 401): invalid_request_error: Incorrect API key"; ue.Error() != want {
		t.Fatalf("Error() = %q, want %q", ue.Error(), want)
	}

	plain := NewUpstreamError("gemini", &transport.Response{StatusCode: 503, Body: []byte("overloaded")})
	if plain.Error() != "gemini error (http 503): overloaded" {
		t.Fatalf("Error() = %q", plain.Error())
	}
}
