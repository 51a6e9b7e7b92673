package provider

import "llmbridge/internal/models"

// Catalog is the fixed set of models an adapter serves. It is built once at
// construction and only ever handed out as copies.
type Catalog struct {
	models []models.ModelDescriptor
}

// NewCatalog merges the built-in descriptors with extra ones. An extra entry
// replaces a built-in entry with the same id; new ids are appended in order.
func NewCatalog(providerName string, builtin, extra []models.ModelDescriptor) Catalog {
	out := make([]models.ModelDescriptor, 0, len(builtin)+len(extra))
	index := make(map[string]int, len(builtin)+len(extra))
	for _, list := range [][]models.ModelDescriptor{builtin, extra} {
		for _, m := range list {
			m.Provider = providerName
			if m.Name == "" {
				m.Name = m.ID
			}
			if i, ok := index[m.ID]; ok {
				out[i] = m
				continue
			}
			index[m.ID] = len(out)
			out = append(out, m)
		}
	}
	return Catalog{models: out}
}

// List returns a copy of the catalogue.
func (c Catalog) List() []models.ModelDescriptor {
	result := make([]models.ModelDescriptor, len(c.models))
	copy(result, c.models)
	return result
}

// Lookup finds a model by id.
func (c Catalog) Lookup(modelID string) (models.ModelDescriptor, error) {
	return Lookup(c.models, modelID)
}
