package factory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"llmbridge/internal/config"
	"llmbridge/internal/logging"
	"llmbridge/internal/provider"
	geminiProvider "llmbridge/internal/provider/gemini"
	openaiProvider "llmbridge/internal/provider/openai"
	"llmbridge/internal/transport"
)

// Options carries the dependencies shared by every adapter.
type Options struct {
	// Transport performs HTTP exchanges. Nil selects transport.HTTP(nil).
	Transport transport.Func
	Logger    *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return logging.NewNop()
	}
	return o.Logger
}

// New constructs the adapter called name.
func New(name string, cfg config.ProviderConfig, opts Options) (provider.Provider, error) {
	logger := opts.logger().With("provider", strings.ToLower(name))
	fn := transport.WithLogging(opts.Transport, logger)

	switch strings.ToLower(strings.TrimSpace(name)) {
	case config.ProviderOpenAI:
		return openaiProvider.New(cfg, openaiProvider.WithTransport(fn), openaiProvider.WithLogger(logger))
	case config.ProviderGemini:
		return geminiProvider.New(cfg, geminiProvider.WithTransport(fn), geminiProvider.WithLogger(logger))
	}
	return nil, fmt.Errorf("%w: %q", provider.ErrUnsupportedProvider, name)
}

// RegisterConfiguredProviders constructs every provider that has credentials
// and stores it in the registry.
func RegisterConfiguredProviders(ctx context.Context, cfg config.Config, registry *provider.Registry, opts Options) error {
	if registry == nil {
		return errors.New("registry must not be nil")
	}
	if opts.Transport == nil {
		opts.Transport = transport.HTTP(nil)
	}

	configured := []struct {
		name string
		cfg  config.ProviderConfig
	}{
		{config.ProviderOpenAI, cfg.Providers.OpenAI},
		{config.ProviderGemini, cfg.Providers.Gemini},
	}

	for _, entry := range configured {
		if !entry.cfg.Enabled() {
			opts.logger().DebugContext(ctx, "provider disabled: no api key", "provider", entry.name)
			continue
		}
		p, err := New(entry.name, entry.cfg, opts)
		if err != nil {
			return fmt.Errorf("initialise %s provider: %w", entry.name, err)
		}
		if err := registry.Register(p); err != nil {
			return fmt.Errorf("register %s provider: %w", entry.name, err)
		}
	}

	if len(registry.Names()) == 0 {
		return errors.New("no providers configured")
	}
	return nil
}
