package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"llmbridge/internal/config"
	"llmbridge/internal/logging"
	"llmbridge/internal/models"
	"llmbridge/internal/provider"
	"llmbridge/internal/transport"
)

// Name is the registry key of this adapter.
const Name = config.ProviderOpenAI

const (
	contentTypeJSON = "application/json"
	userAgent       = "llmbridge/0.1"
)

// Provider implements provider.Provider for the OpenAI chat completions, files
// and batches APIs.
type Provider struct {
	apiKey  string
	baseURL string
	headers map[string]string
	do      transport.Func
	catalog provider.Catalog
	logger  *slog.Logger
	now     func() time.Time
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

// WithLogger sets the logger used for warnings and debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock overrides the time source used for fallback correlation ids.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates the adapter. Models declared in cfg extend or override the
// built-in catalogue.
func New(cfg config.ProviderConfig, opts ...Option) (*Provider, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = config.DefaultOpenAIBaseURL
	}

	p := &Provider{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		headers: cfg.Headers,
		catalog: provider.NewCatalog(Name, builtinModels, cfg.Descriptors(Name)),
		logger:  logging.NewNop(),
		now:     time.Now,
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

// Complete runs one chat completion.
func (p *Provider) Complete(ctx context.Context, messages []models.Message, model string, opts models.RequestOptions) (*models.CompletionResult, error) {
	desc, err := p.catalog.Lookup(model)
	if err != nil {
		return nil, err
	}

	payload, shape, err := buildChatPayload(desc, messages, opts)
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := p.sendJSON(ctx, http.MethodPost, "/chat/completions", payload, &resp); err != nil {
		return nil, err
	}

	text, ok := resp.text()
	if !ok {
		p.logger.WarnContext(ctx, "openai response did not include choices", "model", desc.ID, "id", resp.ID)
	}
	return p.toResult(ctx, desc.ID, text, shape, resp.Usage), nil
}

func (p *Provider) toResult(ctx context.Context, model, text string, shape outputShape, usage *usageBlock) *models.CompletionResult {
	decoded := decodeOutput(text, shape)
	if decoded.Err != nil {
		p.logger.DebugContext(ctx, "structured output fell back to text", "model", model, "error", decoded.Err)
	}
	return &models.CompletionResult{
		Text:       text,
		Data:       decoded.Value,
		Structured: decoded.Structured,
		Usage:      usage.toUnified(),
		Model:      model,
		Provider:   Name,
	}
}

// sendJSON posts payload (when non-nil) and decodes a successful reply into target.
func (p *Provider) sendJSON(ctx context.Context, method, path string, payload, target any) error {
	var body []byte
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = data
	}

	header := p.header()
	if body != nil {
		header.Set("Content-Type", contentTypeJSON)
	}

	resp, err := p.send(ctx, transport.Request{Method: method, URL: p.baseURL + path, Header: header, Body: body})
	if err != nil {
		return err
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, target); err != nil {
		return fmt.Errorf("decode openai response: %w", err)
	}
	return nil
}

// send performs one exchange and converts non-2xx replies into UpstreamError.
func (p *Provider) send(ctx context.Context, req transport.Request) (*transport.Response, error) {
	resp, err := transport.Do(ctx, p.do, req)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if !resp.OK() {
		return nil, provider.NewUpstreamError(Name, resp)
	}
	return resp, nil
}

func (p *Provider) header() http.Header {
	h := make(http.Header)
	h.Set("Accept", contentTypeJSON)
	h.Set("User-Agent", userAgent)
	h.Set("Authorization", "Bearer "+p.apiKey)
	for k, v := range p.headers {
		h.Set(k, v)
	}
	return h
}
