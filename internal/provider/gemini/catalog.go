package gemini

import "llmbridge/internal/models"

// builtinModels lists the generateContent models served without configuration.
// None of them can be batched through this adapter.
var builtinModels = []models.ModelDescriptor{
	{ID: "gemini-2.0-flash", Name: "Gemini 2.0 Flash", Capabilities: models.Capabilities{StructuredOutput: true}},
	{ID: "gemini-1.5-pro", Name: "Gemini 1.5 Pro", Capabilities: models.Capabilities{StructuredOutput: true}},
	{ID: "gemini-1.5-flash", Name: "Gemini 1.5 Flash", Capabilities: models.Capabilities{StructuredOutput: true}},
	{ID: "gemini-1.0-pro", Name: "Gemini 1.0 Pro"},
}
