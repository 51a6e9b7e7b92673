// Package agent binds a name, a base prompt and one "<provider>/<model>"
// selection into a reusable facade over a provider adapter.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"llmbridge/internal/config"
	"llmbridge/internal/models"
	"llmbridge/internal/provider"
	"llmbridge/internal/provider/factory"
	"llmbridge/internal/transport"
)

// Options configures a standalone agent.
type Options struct {
	Name       string
	BasePrompt string
	// Model is a "<provider>/<model>" key.
	Model   string
	APIKey  string
	BaseURL string
	Headers map[string]string
	// Transport replaces the default HTTP transport.
	Transport transport.Func
	// Example is the default structured-output example for completions.
	Example any
	Logger  *slog.Logger
}

// Agent is safe for concurrent use; it holds no per-call state.
type Agent struct {
	name       string
	basePrompt string
	example    any
	provider   provider.Provider
	model      models.ModelDescriptor
}

// New builds the adapter for opts.Model and binds the agent to it. An unknown
// provider segment fails with provider.ErrUnsupportedProvider and an unknown
// model with provider.ErrModelNotFound.
func New(ctx context.Context, opts Options) (*Agent, error) {
	providerName, modelID, err := provider.SplitKey(opts.Model)
	if err != nil {
		return nil, err
	}
	p, err := factory.New(providerName, config.ProviderConfig{
		APIKey:  opts.APIKey,
		BaseURL: opts.BaseURL,
		Headers: opts.Headers,
	}, factory.Options{Transport: opts.Transport, Logger: opts.Logger})
	if err != nil {
		return nil, err
	}
	return bind(ctx, opts.Name, opts.BasePrompt, opts.Example, p, modelID)
}

// FromRegistry binds a configured agent to an already registered adapter.
func FromRegistry(ctx context.Context, registry *provider.Registry, cfg config.AgentConfig) (*Agent, error) {
	providerName, modelID, err := provider.SplitKey(cfg.Model)
	if err != nil {
		return nil, err
	}
	p, err := registry.Provider(providerName)
	if err != nil {
		return nil, err
	}
	return bind(ctx, cfg.Name, cfg.BasePrompt, nil, p, modelID)
}

func bind(ctx context.Context, name, basePrompt string, example any, p provider.Provider, modelID string) (*Agent, error) {
	list, err := p.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models for provider %q: %w", p.Name(), err)
	}
	desc, err := provider.Lookup(list, modelID)
	if err != nil {
		return nil, err
	}
	return &Agent{
		name:       strings.TrimSpace(name),
		basePrompt: basePrompt,
		example:    example,
		provider:   p,
		model:      desc,
	}, nil
}

// Name returns the agent name.
func (a *Agent) Name() string { return a.name }

// Model returns the descriptor the agent is bound to.
func (a *Agent) Model() models.ModelDescriptor { return a.model }

// Complete prepends the base prompt and runs one completion. The agent
// example and name fill in opts.Example and opts.CallerID when unset.
func (a *Agent) Complete(ctx context.Context, messages []models.Message, opts models.RequestOptions) (*models.CompletionResult, error) {
	return a.provider.Complete(ctx, WithSystemPrompt(a.basePrompt, messages), a.model.ID, a.requestOptions(&opts))
}

// CreateBatch prepends the base prompt to every item and submits the batch.
// The agent name becomes the batch name and caller id when those are unset.
func (a *Agent) CreateBatch(ctx context.Context, items []models.BatchItem, opts models.BatchOptions) (*models.BatchSubmission, error) {
	prepared := make([]models.BatchItem, len(items))
	for i, item := range items {
		prepared[i] = models.BatchItem{
			ID:       item.ID,
			Messages: WithSystemPrompt(a.basePrompt, item.Messages),
		}
		if item.Options != nil {
			o := a.requestOptions(item.Options)
			prepared[i].Options = &o
		}
	}
	if opts.Name == "" {
		opts.Name = a.name
	}
	if opts.CallerID == "" {
		opts.CallerID = a.name
	}
	opts.Defaults = a.requestOptions(&opts.Defaults)

	sub, err := a.provider.CreateBatch(ctx, a.model.ID, prepared, opts)
	return sub, a.wrap(err)
}

// CheckBatch polls a batch job.
func (a *Agent) CheckBatch(ctx context.Context, jobID string) (*models.BatchStatus, error) {
	status, err := a.provider.CheckBatch(ctx, jobID)
	return status, a.wrap(err)
}

// RetrieveBatch fetches the results of a completed batch job.
func (a *Agent) RetrieveBatch(ctx context.Context, jobID string) ([]models.CompletionResult, error) {
	results, err := a.provider.RetrieveBatch(ctx, jobID)
	return results, a.wrap(err)
}

// CancelBatch cancels a batch job.
func (a *Agent) CancelBatch(ctx context.Context, jobID string) (bool, error) {
	ok, err := a.provider.CancelBatch(ctx, jobID)
	return ok, a.wrap(err)
}

func (a *Agent) requestOptions(in *models.RequestOptions) models.RequestOptions {
	out := in.Clone()
	if out.Example == nil {
		out.Example = a.example
	}
	if out.CallerID == "" {
		out.CallerID = a.name
	}
	return out
}

func (a *Agent) wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, provider.ErrCapabilityUnsupported) {
		return fmt.Errorf("agent %q: model %q does not support batch requests: %w", a.name, a.model.Key(), err)
	}
	return err
}

// WithSystemPrompt returns a new conversation with prompt as a leading system
// message. The input slice is never modified; an empty prompt yields a copy.
func WithSystemPrompt(prompt string, messages []models.Message) []models.Message {
	if strings.TrimSpace(prompt) == "" {
		out := make([]models.Message, len(messages))
		copy(out, messages)
		return out
	}
	out := make([]models.Message, 0, len(messages)+1)
	out = append(out, models.NewSystemMessage(prompt))
	return append(out, messages...)
}
