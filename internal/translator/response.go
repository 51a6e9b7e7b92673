package translator

import "llmbridge/internal/models"

// CompleteResponse is returned by the completion endpoints.
type CompleteResponse struct {
	Object     string       `json:"object"`
	Created    int64        `json:"created"`
	Model      string       `json:"model"`
	Provider   string       `json:"provider"`
	Text       string       `json:"text"`
	Data       any          `json:"data"`
	Structured bool         `json:"structured"`
	Usage      models.Usage `json:"usage"`
}

// FromResult builds the response body for one completion.
func FromResult(createdUnix int64, res *models.CompletionResult) CompleteResponse {
	return CompleteResponse{
		Object:     "completion",
		Created:    createdUnix,
		Model:      res.Model,
		Provider:   res.Provider,
		Text:       res.Text,
		Data:       res.Data,
		Structured: res.Structured,
		Usage:      res.Usage,
	}
}

// ModelList is returned by GET /v1/models.
type ModelList struct {
	Object string       `json:"object"`
	Data   []ModelEntry `json:"data"`
}

// ModelEntry describes one selectable model.
type ModelEntry struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Provider     string              `json:"provider"`
	Capabilities models.Capabilities `json:"capabilities"`
}

// FromDescriptors lists models under their "<provider>/<model>" keys.
func FromDescriptors(list []models.ModelDescriptor) ModelList {
	out := ModelList{Object: "list", Data: make([]ModelEntry, 0, len(list))}
	for _, d := range list {
		out.Data = append(out.Data, ModelEntry{
			ID:           d.Key(),
			Name:         d.Name,
			Provider:     d.Provider,
			Capabilities: d.Capabilities,
		})
	}
	return out
}

// BatchCreated is returned by POST /v1/batches.
type BatchCreated struct {
	Object         string   `json:"object"`
	Provider       string   `json:"provider"`
	JobID          string   `json:"job_id"`
	CorrelationIDs []string `json:"correlation_ids"`
	WindowHours    int      `json:"window_hours"`
}

// FromSubmission builds the creation response.
func FromSubmission(providerName string, sub *models.BatchSubmission) BatchCreated {
	return BatchCreated{
		Object:         "batch",
		Provider:       providerName,
		JobID:          sub.JobID,
		CorrelationIDs: sub.CorrelationIDs,
		WindowHours:    sub.WindowHours,
	}
}

// BatchResults is returned by GET /v1/batches/:provider/:id/results.
type BatchResults struct {
	Object string                    `json:"object"`
	JobID  string                    `json:"job_id"`
	Data   []models.CompletionResult `json:"data"`
}

// FromResults wraps retrieved batch results.
func FromResults(jobID string, results []models.CompletionResult) BatchResults {
	if results == nil {
		results = []models.CompletionResult{}
	}
	return BatchResults{Object: "list", JobID: jobID, Data: results}
}

// BatchCancelled is returned by POST /v1/batches/:provider/:id/cancel.
type BatchCancelled struct {
	JobID     string `json:"job_id"`
	Cancelled bool   `json:"cancelled"`
}
