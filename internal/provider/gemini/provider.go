// Package gemini adapts the Google Generative Language generateContent API.
// The adapter has no batch support; batch operations are rejected without
// contacting the backend.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"llmbridge/internal/config"
	"llmbridge/internal/logging"
	"llmbridge/internal/models"
	"llmbridge/internal/provider"
	"llmbridge/internal/schema"
	"llmbridge/internal/transport"
)

// Name is the registry key of this adapter.
const Name = config.ProviderGemini

const userAgent = "llmbridge/0.1"

// Provider implements provider.Provider for Gemini.
type Provider struct {
	apiKey  string
	baseURL string
	headers map[string]string
	do      transport.Func
	catalog provider.Catalog
	logger  *slog.Logger
}

// Option customises a Provider at construction.
type Option func(*Provider)

// WithTransport replaces the HTTP transport.
func WithTransport(fn transport.Func) Option {
	return func(p *Provider) {
		if fn != nil {
			p.do = fn
		}
	}
}

// WithLogger sets the adapter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates the adapter.
func New(cfg config.ProviderConfig, opts ...Option) (*Provider, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = config.DefaultGeminiBaseURL
	}
	p := &Provider{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		headers: cfg.Headers,
		catalog: provider.NewCatalog(Name, builtinModels, cfg.Descriptors(Name)),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.do == nil {
		p.do = transport.HTTP(nil)
	}
	return p, nil
}

func (p *Provider) Name() string {
	return Name
}

func (p *Provider) ListModels(ctx context.Context) ([]models.ModelDescriptor, error) {
	return p.catalog.List(), nil
}

// Complete runs one generateContent call.
func (p *Provider) Complete(ctx context.Context, messages []models.Message, model string, opts models.RequestOptions) (*models.CompletionResult, error) {
	desc, err := p.catalog.Lookup(model)
	if err != nil {
		return nil, err
	}

	payload, structured, err := buildGeneratePayload(desc, messages, opts)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "application/json")
	header.Set("User-Agent", userAgent)
	header.Set("x-goog-api-key", p.apiKey)
	for k, v := range p.headers {
		header.Set(k, v)
	}

	resp, err := transport.Do(ctx, p.do, transport.Request{
		Method: http.MethodPost,
		URL:    p.baseURL + "/models/" + url.PathEscape(desc.ID) + ":generateContent",
		Header: header,
		Body:   body,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	if !resp.OK() {
		return nil, provider.NewUpstreamError(Name, resp)
	}

	var out generateResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}

	text, ok := out.text()
	if !ok {
		reason := ""
		if out.PromptFeedback != nil {
			reason = out.PromptFeedback.BlockReason
		}
		p.logger.WarnContext(ctx, "gemini response did not include candidates", "model", desc.ID, "block_reason", reason)
	}

	decoded := schema.DecodeIf(text, structured)
	if decoded.Err != nil {
		p.logger.DebugContext(ctx, "structured output fell back to text", "model", desc.ID, "error", decoded.Err)
	}
	return &models.CompletionResult{
		Text:       text,
		Data:       decoded.Value,
		Structured: decoded.Structured,
		Usage:      out.UsageMetadata.toUnified(),
		Model:      desc.ID,
		Provider:   Name,
	}, nil
}

// CreateBatch is not available on this backend.
func (p *Provider) CreateBatch(ctx context.Context, model string, items []models.BatchItem, opts models.BatchOptions) (*models.BatchSubmission, error) {
	return nil, provider.Unsupported(Name, model, "batch requests")
}

// CheckBatch is not available on this backend.
func (p *Provider) CheckBatch(ctx context.Context, jobID string) (*models.BatchStatus, error) {
	return nil, provider.Unsupported(Name, "", "batch requests")
}

// RetrieveBatch is not available on this backend.
func (p *Provider) RetrieveBatch(ctx context.Context, jobID string) ([]models.CompletionResult, error) {
	return nil, provider.Unsupported(Name, "", "batch requests")
}

// CancelBatch is not available on this backend.
func (p *Provider) CancelBatch(ctx context.Context, jobID string) (bool, error) {
	return false, provider.Unsupported(Name, "", "batch requests")
}
