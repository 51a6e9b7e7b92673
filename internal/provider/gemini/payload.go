package gemini

import (
	"llmbridge/internal/models"
	"llmbridge/internal/provider"
	"llmbridge/internal/schema"
)

const mimeJSON = "application/json"

var knownExtraKeys = []string{"stop", "safety_settings"}

type generatePayload struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
	SafetySettings    []any             `json:"safetySettings,omitempty"`
}

type generationConfig struct {
	Temperature      *float64       `json:"temperature,omitempty"`
	TopP             *float64       `json:"top_p,omitempty"`
	TopK             *int           `json:"top_k,omitempty"`
	MaxOutputTokens  *int           `json:"max_output_tokens,omitempty"`
	FrequencyPenalty *float64       `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64       `json:"presence_penalty,omitempty"`
	StopSequences    []string       `json:"stop_sequences,omitempty"`
	ResponseMIMEType string         `json:"response_mime_type,omitempty"`
	ResponseSchema   map[string]any `json:"response_schema,omitempty"`

	extra map[string]any
}

// MarshalJSON folds pass-through parameters into the generation config.
func (g generationConfig) MarshalJSON() ([]byte, error) {
	type alias generationConfig
	return provider.MergeExtra(alias(g), g.extra)
}

func (g *generationConfig) empty() bool {
	return g.Temperature == nil && g.TopP == nil && g.TopK == nil && g.MaxOutputTokens == nil &&
		g.FrequencyPenalty == nil && g.PresencePenalty == nil && len(g.StopSequences) == 0 &&
		g.ResponseMIMEType == "" && g.ResponseSchema == nil && len(g.extra) == 0
}

// buildGeneratePayload turns one completion request into a generateContent
// body and reports whether structured output was requested.
func buildGeneratePayload(desc models.ModelDescriptor, messages []models.Message, opts models.RequestOptions) (generatePayload, bool, error) {
	if len(messages) == 0 {
		return generatePayload{}, false, provider.Validationf("at least one message is required")
	}

	cfg := &generationConfig{
		Temperature:      opts.Temperature,
		TopP:             opts.TopP,
		TopK:             opts.TopK,
		MaxOutputTokens:  opts.MaxTokens,
		FrequencyPenalty: opts.FrequencyPenalty,
		PresencePenalty:  opts.PresencePenalty,
		extra:            provider.Remaining(opts.Extra, knownExtraKeys...),
	}
	if stop, ok := provider.ExtractStringSlice(opts.Extra, "stop"); ok {
		cfg.StopSequences = stop
	}

	outgoing := messages
	structured := schema.RequiresStructure(opts.Example)
	if structured {
		if desc.Capabilities.StructuredOutput {
			cfg.ResponseMIMEType = mimeJSON
			cfg.ResponseSchema = schema.InferExample(opts.Example).GeminiSchema()
		} else {
			outgoing = schema.Inject(messages, opts.Example)
		}
	}

	turns, system, err := toContents(outgoing)
	if err != nil {
		return generatePayload{}, false, err
	}

	payload := generatePayload{Contents: turns, SystemInstruction: system}
	if !cfg.empty() {
		payload.GenerationConfig = cfg
	}
	if settings, ok := opts.Extra["safety_settings"].([]any); ok {
		payload.SafetySettings = settings
	}
	return payload, structured, nil
}

type generateResponse struct {
	Candidates     []candidate    `json:"candidates"`
	UsageMetadata  *usageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion   string         `json:"modelVersion"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

func (u *usageMetadata) toUnified() models.Usage {
	if u == nil {
		return models.Usage{}
	}
	total := u.TotalTokenCount
	if total == 0 {
		total = u.PromptTokenCount + u.CandidatesTokenCount
	}
	return models.Usage{
		PromptTokens:     u.PromptTokenCount,
		CompletionTokens: u.CandidatesTokenCount,
		TotalTokens:      total,
	}
}
