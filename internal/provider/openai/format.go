package openai

import (
	"llmbridge/internal/models"
	"llmbridge/internal/provider"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Refusal string `json:"refusal,omitempty"`
}

// toWireMessages maps unified messages onto the chat completions vocabulary,
// which uses the same role names.
func toWireMessages(messages []models.Message) ([]chatMessage, error) {
	out := make([]chatMessage, 0, len(messages))
	for i, m := range messages {
		if !m.Role.Valid() {
			return nil, provider.Validationf("message[%d]: unsupported role %q", i, m.Role)
		}
		out = append(out, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out, nil
}

// text recovers the assistant text from the first choice.
func (r chatResponse) text() (string, bool) {
	if len(r.Choices) == 0 {
		return "", false
	}
	msg := r.Choices[0].Message
	if msg.Content == "" && msg.Refusal != "" {
		return msg.Refusal, true
	}
	return msg.Content, true
}
