package translator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"llmbridge/internal/models"
)

var (
	errEmptyModel      = errors.New("model must be provided")
	errEmptyMessages   = errors.New("at least one message is required")
	errEmptyItems      = errors.New("at least one item is required")
	errUnsupportedStop = errors.New("unsupported stop value")
	errInvalidRole     = errors.New("invalid role")
	errInvalidContent  = errors.New("invalid message content")
)

// CompleteRequest is the body of POST /v1/complete.
type CompleteRequest struct {
	Model    string
	Messages []ChatMessage
	Options  Options
}

// UnmarshalJSON implements custom parsing to enforce validation.
func (r *CompleteRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Model    string        `json:"model"`
		Messages []ChatMessage `json:"messages"`
		Options  Options       `json:"options"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode complete request: %w", err)
	}

	r.Model = strings.TrimSpace(raw.Model)
	r.Messages = raw.Messages
	r.Options = raw.Options

	if r.Model == "" {
		return errEmptyModel
	}
	if len(r.Messages) == 0 {
		return errEmptyMessages
	}
	return nil
}

// AgentCompleteRequest is the body of POST /v1/agents/:name/complete. The
// model is fixed by the agent.
type AgentCompleteRequest struct {
	Messages []ChatMessage `json:"messages"`
	Options  Options       `json:"options"`
}

// Validate checks the request after decoding.
func (r AgentCompleteRequest) Validate() error {
	if len(r.Messages) == 0 {
		return errEmptyMessages
	}
	return nil
}

// BatchRequest is the body of POST /v1/batches.
type BatchRequest struct {
	Model          string
	Name           string
	CallerID       string
	TimeoutSeconds int
	Metadata       map[string]string
	Defaults       Options
	Items          []BatchItemRequest
}

// BatchItemRequest is one entry of BatchRequest.Items.
type BatchItemRequest struct {
	ID       string        `json:"id"`
	Messages []ChatMessage `json:"messages"`
	Options  *Options      `json:"options"`
}

// UnmarshalJSON implements custom parsing to enforce validation. Per-item
// message limits are enforced by the provider.
func (r *BatchRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Model          string             `json:"model"`
		Name           string             `json:"name"`
		CallerID       string             `json:"caller_id"`
		TimeoutSeconds int                `json:"timeout_seconds"`
		Metadata       map[string]string  `json:"metadata"`
		Defaults       Options            `json:"defaults"`
		Items          []BatchItemRequest `json:"items"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode batch request: %w", err)
	}

	r.Model = strings.TrimSpace(raw.Model)
	r.Name = strings.TrimSpace(raw.Name)
	r.CallerID = strings.TrimSpace(raw.CallerID)
	r.TimeoutSeconds = raw.TimeoutSeconds
	r.Metadata = raw.Metadata
	r.Defaults = raw.Defaults
	r.Items = raw.Items

	if r.Model == "" {
		return errEmptyModel
	}
	if len(r.Items) == 0 {
		return errEmptyItems
	}
	if r.TimeoutSeconds < 0 {
		return errors.New("timeout_seconds must not be negative")
	}
	return nil
}

// ToUnified converts the request into batch items and options.
func (r BatchRequest) ToUnified() ([]models.BatchItem, models.BatchOptions) {
	items := make([]models.BatchItem, 0, len(r.Items))
	for _, item := range r.Items {
		unified := models.BatchItem{
			ID:       strings.TrimSpace(item.ID),
			Messages: ToMessages(item.Messages),
		}
		if item.Options != nil {
			opts := item.Options.ToUnified()
			unified.Options = &opts
		}
		items = append(items, unified)
	}
	return items, models.BatchOptions{
		Name:           r.Name,
		CallerID:       r.CallerID,
		TimeoutSeconds: r.TimeoutSeconds,
		Metadata:       r.Metadata,
		Defaults:       r.Defaults.ToUnified(),
	}
}

// Options carries generation parameters. Unknown keys are kept and forwarded
// to the provider as pass-through parameters.
type Options struct {
	Temperature      *float64
	TopP             *float64
	TopK             *int
	MaxTokens        *int
	FrequencyPenalty *float64
	PresencePenalty  *float64
	Stop             []string
	CallerID         string
	Example          json.RawMessage
	Extra            map[string]any
}

var knownOptionKeys = map[string]struct{}{
	"temperature": {}, "top_p": {}, "top_k": {}, "max_tokens": {},
	"frequency_penalty": {}, "presence_penalty": {}, "stop": {},
	"caller_id": {}, "example": {},
}

// UnmarshalJSON implements custom parsing to enforce validation.
func (o *Options) UnmarshalJSON(data []byte) error {
	var raw struct {
		Temperature      *float64        `json:"temperature"`
		TopP             *float64        `json:"top_p"`
		TopK             *int            `json:"top_k"`
		MaxTokens        *int            `json:"max_tokens"`
		FrequencyPenalty *float64        `json:"frequency_penalty"`
		PresencePenalty  *float64        `json:"presence_penalty"`
		Stop             json.RawMessage `json:"stop"`
		CallerID         string          `json:"caller_id"`
		Example          json.RawMessage `json:"example"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}

	stop, err := parseStop(raw.Stop)
	if err != nil {
		return err
	}
	if raw.MaxTokens != nil && *raw.MaxTokens <= 0 {
		return errors.New("max_tokens must be positive")
	}

	*o = Options{
		Temperature:      raw.Temperature,
		TopP:             raw.TopP,
		TopK:             raw.TopK,
		MaxTokens:        raw.MaxTokens,
		FrequencyPenalty: raw.FrequencyPenalty,
		PresencePenalty:  raw.PresencePenalty,
		Stop:             stop,
		CallerID:         strings.TrimSpace(raw.CallerID),
	}
	if len(raw.Example) > 0 && string(raw.Example) != "null" {
		o.Example = raw.Example
	}
	for k, v := range all {
		if _, ok := knownOptionKeys[k]; ok {
			continue
		}
		if o.Extra == nil {
			o.Extra = make(map[string]any)
		}
		o.Extra[k] = v
	}
	return nil
}

// ToUnified converts the options into their canonical form.
func (o Options) ToUnified() models.RequestOptions {
	out := models.RequestOptions{
		Temperature:      o.Temperature,
		TopP:             o.TopP,
		TopK:             o.TopK,
		MaxTokens:        o.MaxTokens,
		FrequencyPenalty: o.FrequencyPenalty,
		PresencePenalty:  o.PresencePenalty,
		CallerID:         o.CallerID,
	}
	if o.Example != nil {
		out.Example = o.Example
	}
	if len(o.Extra) > 0 || len(o.Stop) > 0 {
		out.Extra = make(map[string]any, len(o.Extra)+1)
		for k, v := range o.Extra {
			out.Extra[k] = v
		}
		if len(o.Stop) > 0 {
			out.Extra["stop"] = o.Stop
		}
	}
	return out
}

// ChatMessage captures a single message within a request.
type ChatMessage struct {
	Role    string
	Content string
}

// UnmarshalJSON supports string and array-of-text content formats.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	type alias struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}

	content, err := extractMessageContent(raw.Content)
	if err != nil {
		return err
	}

	m.Role = strings.ToLower(strings.TrimSpace(raw.Role))
	m.Content = content

	return m.validate()
}

func (m *ChatMessage) validate() error {
	if !models.Role(m.Role).Valid() {
		return fmt.Errorf("%w: %s", errInvalidRole, m.Role)
	}
	if strings.TrimSpace(m.Content) == "" {
		return fmt.Errorf("%w: message content must not be empty", errInvalidContent)
	}
	return nil
}

// ToMessages converts request messages into the unified message type.
func ToMessages(in []ChatMessage) []models.Message {
	out := make([]models.Message, 0, len(in))
	for _, m := range in {
		out = append(out, models.Message{Role: models.Role(m.Role), Content: m.Content})
	}
	return out
}

func extractMessageContent(raw json.RawMessage) (string, error) {
	if raw == nil {
		return "", fmt.Errorf("%w: missing content", errInvalidContent)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}

	var segments []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &segments); err == nil {
		var builder strings.Builder
		for _, segment := range segments {
			if segment.Type != "text" {
				return "", fmt.Errorf("%w: segment type %q not supported", errInvalidContent, segment.Type)
			}
			builder.WriteString(segment.Text)
		}
		return builder.String(), nil
	}

	return "", fmt.Errorf("%w: unsupported content structure", errInvalidContent)
}

func parseStop(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if strings.TrimSpace(single) == "" {
			return nil, errUnsupportedStop
		}
		return []string{single}, nil
	}

	var multi []string
	if err := json.Unmarshal(raw, &multi); err == nil {
		out := make([]string, 0, len(multi))
		for _, item := range multi {
			item = strings.TrimSpace(item)
			if item == "" {
				return nil, errUnsupportedStop
			}
			out = append(out, item)
		}
		return out, nil
	}
	return nil, errUnsupportedStop
}
