package openai

import "llmbridge/internal/models"

// builtinModels is the catalogue served without any configuration. Every chat
// model may be batched; only the newer families accept json_schema.
var builtinModels = []models.ModelDescriptor{
	{ID: "gpt-4o", Name: "GPT-4o", Capabilities: models.Capabilities{StructuredOutput: true, BatchRequests: true}},
	{ID: "gpt-4o-mini", Name: "GPT-4o mini", Capabilities: models.Capabilities{StructuredOutput: true, BatchRequests: true}},
	{ID: "gpt-4.1", Name: "GPT-4.1", Capabilities: models.Capabilities{StructuredOutput: true, BatchRequests: true}},
	{ID: "gpt-4.1-mini", Name: "GPT-4.1 mini", Capabilities: models.Capabilities{StructuredOutput: true, BatchRequests: true}},
	{ID: "gpt-4-turbo", Name: "GPT-4 Turbo", Capabilities: models.Capabilities{StructuredOutput: false, BatchRequests: true}},
	{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", Capabilities: models.Capabilities{StructuredOutput: false, BatchRequests: true}},
}
