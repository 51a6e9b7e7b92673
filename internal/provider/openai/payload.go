package openai

import (
	"encoding/json"

	"llmbridge/internal/models"
	"llmbridge/internal/provider"
	"llmbridge/internal/schema"
)

const schemaName = "response"

// Keys of RequestOptions.Extra that map onto typed fields. Anything else is
// copied into the request body verbatim.
var knownExtraKeys = []string{"seed", "stop", "user", "logit_bias", "metadata", "response_format"}

type chatPayload struct {
	Model            string             `json:"model"`
	Messages         []chatMessage      `json:"messages"`
	MaxTokens        *int               `json:"max_tokens,omitempty"`
	Temperature      *float64           `json:"temperature,omitempty"`
	TopP             *float64           `json:"top_p,omitempty"`
	FrequencyPenalty *float64           `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64           `json:"presence_penalty,omitempty"`
	Stop             []string           `json:"stop,omitempty"`
	ResponseFormat   map[string]any     `json:"response_format,omitempty"`
	Seed             *int               `json:"seed,omitempty"`
	LogitBias        map[string]float64 `json:"logit_bias,omitempty"`
	Metadata         map[string]any     `json:"metadata,omitempty"`
	User             string             `json:"user,omitempty"`

	extra map[string]any
}

// MarshalJSON merges pass-through parameters into the body. Typed fields win
// over extra keys of the same name.
func (p chatPayload) MarshalJSON() ([]byte, error) {
	type alias chatPayload
	return provider.MergeExtra(alias(p), p.extra)
}

// buildChatPayload turns one completion request into a chat completions body.
// It reports how the reply text must be decoded.
func buildChatPayload(desc models.ModelDescriptor, messages []models.Message, opts models.RequestOptions) (chatPayload, outputShape, error) {
	if len(messages) == 0 {
		return chatPayload{}, shapeText, provider.Validationf("at least one message is required")
	}

	outgoing := messages
	var responseFormat map[string]any

	shape := shapeText
	if schema.RequiresStructure(opts.Example) {
		inferred := schema.InferExample(opts.Example)
		if desc.Capabilities.StructuredOutput {
			shape = shapeJSON
			jsonSchema := inferred.JSONSchema()
			if inferred.Type != schema.TypeObject {
				shape = shapeWrapped
				jsonSchema = wrappedSchema(inferred)
			}
			responseFormat = map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   schemaName,
					"schema": jsonSchema,
					"strict": true,
				},
			}
		} else {
			shape = shapeJSON
			outgoing = schema.Inject(messages, opts.Example)
		}
		if !schema.MentionsJSON(outgoing) {
			return chatPayload{}, shapeText, provider.Validationf("openai requires the word \"json\" in the messages when structured output is requested")
		}
	}

	wire, err := toWireMessages(outgoing)
	if err != nil {
		return chatPayload{}, shapeText, err
	}

	payload := chatPayload{
		Model:            desc.ID,
		Messages:         wire,
		MaxTokens:        opts.MaxTokens,
		Temperature:      opts.Temperature,
		TopP:             opts.TopP,
		FrequencyPenalty: opts.FrequencyPenalty,
		PresencePenalty:  opts.PresencePenalty,
		ResponseFormat:   responseFormat,
		User:             opts.CallerID,
		extra:            provider.Remaining(opts.Extra, knownExtraKeys...),
	}

	if v, ok := provider.ExtractInt(opts.Extra, "seed"); ok {
		payload.Seed = &v
	}
	if stop, ok := provider.ExtractStringSlice(opts.Extra, "stop"); ok {
		payload.Stop = stop
	}
	if user, ok := provider.ExtractString(opts.Extra, "user"); ok {
		payload.User = user
	}
	if bias, ok := extractLogitBias(opts.Extra); ok {
		payload.LogitBias = bias
	}
	if metadata, ok := provider.ExtractMap(opts.Extra, "metadata"); ok {
		payload.Metadata = metadata
	}
	if payload.ResponseFormat == nil {
		if rf, ok := provider.ExtractMap(opts.Extra, "response_format"); ok {
			payload.ResponseFormat = rf
		}
	}

	return payload, shape, nil
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *usageBlock  `json:"usage,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type usageBlock struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (u *usageBlock) toUnified() models.Usage {
	if u == nil {
		return models.Usage{}
	}
	total := u.TotalTokens
	if total == 0 {
		total = u.PromptTokens + u.CompletionTokens
	}
	return models.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      total,
	}
}

func extractLogitBias(options map[string]any) (map[string]float64, bool) {
	if options == nil {
		return nil, false
	}
	value, ok := options["logit_bias"]
	if !ok {
		return nil, false
	}
	switch v := value.(type) {
	case map[string]float64:
		return v, true
	case map[string]any:
		out := make(map[string]float64, len(v))
		for key, rawVal := range v {
			switch val := rawVal.(type) {
			case float64:
				out[key] = val
			case float32:
				out[key] = float64(val)
			case int:
				out[key] = float64(val)
			case json.Number:
				f, err := val.Float64()
				if err != nil {
					return nil, false
				}
				out[key] = f
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}
