package factory

import (
	"context"
	"errors"
	"testing"

	"llmbridge/internal/config"
	"llmbridge/internal/provider"
	"llmbridge/internal/transport"
)

func noNetwork(t *testing.T) transport.Func {
	return func(context.Context, transport.Request) (*transport.Response, error) {
		t.Fatal("unexpected network call")
		return nil, nil
	}
}

func TestRegisterConfiguredProvidersSkipsDisabled(t *testing.T) {
	cfg := config.Config{Providers: config.ProvidersConfig{
		OpenAI: config.ProviderConfig{APIKey: "sk"},
	}}
	registry := provider.NewRegistry()
	if err := RegisterConfiguredProviders(context.Background(), cfg, registry, Options{Transport: noNetwork(t)}); err != nil {
		t.Fatalf("RegisterConfiguredProviders: %v", err)
	}

	names := registry.Names()
	if len(names) != 1 || names[0] != "openai" {
		t.Fatalf("unexpected providers %v", names)
	}
	if _, _, err := registry.Resolve(context.Background(), "gemini/gemini-1.5-pro"); !errors.Is(err, provider.ErrUnsupportedProvider) {
		t.Fatalf("disabled provider should be unknown, got %v", err)
	}
}

func TestRegisterConfiguredProvidersBoth(t *testing.T) {
	cfg := config.Config{Providers: config.ProvidersConfig{
		OpenAI: config.ProviderConfig{APIKey: "sk"},
		Gemini: config.ProviderConfig{APIKey: "g", Models: []config.ModelConfig{{ID: "gemini-exp"}}},
	}}
	registry := provider.NewRegistry()
	if err := RegisterConfiguredProviders(context.Background(), cfg, registry, Options{Transport: noNetwork(t)}); err != nil {
		t.Fatalf("RegisterConfiguredProviders: %v", err)
	}

	_, desc, err := registry.Resolve(context.Background(), "gemini/gemini-exp")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if desc.Provider != "gemini" || desc.Name != "Gemini Exp" {
		t.Fatalf("unexpected descriptor %+v", desc)
	}
}

func TestRegisterConfiguredProvidersNone(t *testing.T) {
	err := RegisterConfiguredProviders(context.Background(), config.Config{}, provider.NewRegistry(), Options{})
	if err == nil {
		t.Fatal("expected error when no provider has credentials")
	}
}

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New("claude", config.ProviderConfig{}, Options{}); !errors.Is(err, provider.ErrUnsupportedProvider) {
		t.Fatalf("expected unsupported provider, got %v", err)
	}
}
