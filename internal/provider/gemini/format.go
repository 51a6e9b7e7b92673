package gemini

import (
	"strings"

	"llmbridge/internal/models"
	"llmbridge/internal/provider"
)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

// toContents splits unified messages into conversation turns and the system
// instruction. Assistant turns become "model"; system and developer messages
// are collected, in order, into the instruction parts.
func toContents(messages []models.Message) ([]content, *content, error) {
	turns := make([]content, 0, len(messages))
	var system []part
	for i, m := range messages {
		switch m.Role {
		case models.RoleSystem, models.RoleDeveloper:
			system = append(system, part{Text: m.Content})
		case models.RoleUser:
			turns = append(turns, content{Role: "user", Parts: []part{{Text: m.Content}}})
		case models.RoleAssistant:
			turns = append(turns, content{Role: "model", Parts: []part{{Text: m.Content}}})
		default:
			return nil, nil, provider.Validationf("message[%d]: unsupported role %q", i, m.Role)
		}
	}
	if len(turns) == 0 {
		return nil, nil, provider.Validationf("at least one user or assistant message is required")
	}
	if len(system) == 0 {
		return turns, nil, nil
	}
	return turns, &content{Parts: system}, nil
}

// text joins the parts of the first candidate.
func (r generateResponse) text() (string, bool) {
	if len(r.Candidates) == 0 {
		return "", false
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), true
}
