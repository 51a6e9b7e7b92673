package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"llmbridge/internal/schema"
	"llmbridge/internal/transport"
)

var (
	// ErrModelNotFound indicates the requested model is not in the provider catalogue.
	ErrModelNotFound = errors.New("model not found")

	// ErrUnsupportedProvider indicates the provider segment of a model key is unknown.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrValidation indicates a request was rejected before any network call.
	ErrValidation = errors.New("validation error")

	// ErrCapabilityUnsupported indicates the model cannot perform the requested operation.
	ErrCapabilityUnsupported = errors.New("capability unsupported")

	// ErrNotReady indicates batch results were requested before the job completed.
	ErrNotReady = errors.New("batch not ready")

	// ErrUpstream is the base error for non-success backend responses.
	ErrUpstream = errors.New("upstream error")

	// ErrDecode marks structured output that could not be decoded. Adapters
	// never return it; it only travels on schema.Decoded.
	ErrDecode = schema.ErrDecode
)

// UpstreamError carries a backend's non-success reply. Body is the error
// payload exactly as the backend sent it.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Message    string
	Body       []byte
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.TrimSpace(string(e.Body))
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s error (http %d): %s", e.Provider, e.StatusCode, msg)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// NewUpstreamError builds an UpstreamError from a response, lifting the
// human-readable message out of the usual {"error":{"message":...}} envelope.
func NewUpstreamError(providerName string, resp *transport.Response) *UpstreamError {
	e := &UpstreamError{
		Provider:   providerName,
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
	}
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body, &envelope); err == nil && envelope.Error.Message != "" {
		kind := firstNonEmpty(envelope.Error.Type, envelope.Error.Status)
		if kind != "" {
			e.Message = fmt.Sprintf("%s: %s", kind, envelope.Error.Message)
		} else {
			e.Message = envelope.Error.Message
		}
	}
	return e
}

// AsUpstreamError extracts an UpstreamError from an error chain.
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// Validationf returns an error tagged with ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Unsupported returns an error tagged with ErrCapabilityUnsupported naming the
// provider, model and operation.
func Unsupported(providerName, model, operation string) error {
	if model == "" {
		return fmt.Errorf("%w: provider %s does not support %s", ErrCapabilityUnsupported, providerName, operation)
	}
	return fmt.Errorf("%w: model %s/%s does not support %s", ErrCapabilityUnsupported, providerName, model, operation)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
