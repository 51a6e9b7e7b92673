package models

// Role tags the author of a message within a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one the adapters know how to map.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleDeveloper, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message represents a single conversational message in the unified schema.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewUserMessage is shorthand for a user-authored message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewSystemMessage is shorthand for a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// RequestOptions carries generation parameters for a single completion.
// Nil pointers fall back to backend defaults.
type RequestOptions struct {
	Temperature      *float64
	TopP             *float64
	TopK             *int
	MaxTokens        *int
	FrequencyPenalty *float64
	PresencePenalty  *float64

	// Example, when set to anything other than a plain string, requests a
	// structured result shaped like it.
	Example any

	// CallerID identifies the agent or end user issuing the request.
	CallerID string

	// Extra holds provider-specific parameters passed through to the backend.
	Extra map[string]any
}

// Clone returns a copy that shares no maps with the receiver.
func (o *RequestOptions) Clone() RequestOptions {
	if o == nil {
		return RequestOptions{}
	}
	out := *o
	if o.Extra != nil {
		out.Extra = make(map[string]any, len(o.Extra))
		for k, v := range o.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Usage records token accounting information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResult is the unified outcome of one completion.
//
// Text is always the raw model output. Data holds the decoded JSON value when
// Structured is true and the raw text otherwise.
type CompletionResult struct {
	Text          string `json:"text"`
	Data          any    `json:"data"`
	Structured    bool   `json:"structured"`
	Usage         Usage  `json:"usage"`
	Model         string `json:"model"`
	Provider      string `json:"provider"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Capabilities lists optional features a model supports.
type Capabilities struct {
	StructuredOutput bool `json:"structured_output"`
	BatchRequests    bool `json:"batch_requests"`
}

// ModelDescriptor identifies a selectable model with provider metadata.
type ModelDescriptor struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Provider     string       `json:"provider"`
	Capabilities Capabilities `json:"capabilities"`
}

// Key returns the "<provider>/<model>" selector for the descriptor.
func (d ModelDescriptor) Key() string {
	return d.Provider + "/" + d.ID
}
