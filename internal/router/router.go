package router

import (
	"context"
	"fmt"

	"llmbridge/internal/models"
	"llmbridge/internal/provider"
)

// Router dispatches unified requests to the provider named by a
// "<provider>/<model>" key.
type Router struct {
	registry *provider.Registry
}

// New constructs a router backed by the provided registry.
func New(registry *provider.Registry) *Router {
	return &Router{
		registry: registry,
	}
}

// Registry exposes the underlying provider registry.
func (r *Router) Registry() *provider.Registry {
	return r.registry
}

// ListModels returns the catalogue of every registered provider.
func (r *Router) ListModels(ctx context.Context) ([]models.ModelDescriptor, error) {
	return r.registry.ListModels(ctx)
}

// Complete routes one completion to the provider named by key.
func (r *Router) Complete(ctx context.Context, key string, messages []models.Message, opts models.RequestOptions) (*models.CompletionResult, models.ModelDescriptor, error) {
	providerImpl, modelInfo, err := r.registry.Resolve(ctx, key)
	if err != nil {
		return nil, models.ModelDescriptor{}, err
	}

	resp, err := providerImpl.Complete(ctx, cloneMessages(messages), modelInfo.ID, opts.Clone())
	if err != nil {
		return nil, models.ModelDescriptor{}, fmt.Errorf("provider %s complete request: %w", providerImpl.Name(), err)
	}
	return resp, modelInfo, nil
}

// CreateBatch submits a batch job to the provider named by key.
func (r *Router) CreateBatch(ctx context.Context, key string, items []models.BatchItem, opts models.BatchOptions) (*models.BatchSubmission, error) {
	providerImpl, modelInfo, err := r.registry.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}

	sub, err := providerImpl.CreateBatch(ctx, modelInfo.ID, items, opts)
	if err != nil {
		return nil, fmt.Errorf("provider %s create batch: %w", providerImpl.Name(), err)
	}
	return sub, nil
}

// CheckBatch polls a job on the named provider.
func (r *Router) CheckBatch(ctx context.Context, providerName, jobID string) (*models.BatchStatus, error) {
	providerImpl, err := r.registry.Provider(providerName)
	if err != nil {
		return nil, err
	}
	status, err := providerImpl.CheckBatch(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("provider %s check batch %s: %w", providerImpl.Name(), jobID, err)
	}
	return status, nil
}

// RetrieveBatch downloads the results of a completed job.
func (r *Router) RetrieveBatch(ctx context.Context, providerName, jobID string) ([]models.CompletionResult, error) {
	providerImpl, err := r.registry.Provider(providerName)
	if err != nil {
		return nil, err
	}
	results, err := providerImpl.RetrieveBatch(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("provider %s retrieve batch %s: %w", providerImpl.Name(), jobID, err)
	}
	return results, nil
}

// CancelBatch cancels a job on the named provider.
func (r *Router) CancelBatch(ctx context.Context, providerName, jobID string) (bool, error) {
	providerImpl, err := r.registry.Provider(providerName)
	if err != nil {
		return false, err
	}
	ok, err := providerImpl.CancelBatch(ctx, jobID)
	if err != nil {
		return false, fmt.Errorf("provider %s cancel batch %s: %w", providerImpl.Name(), jobID, err)
	}
	return ok, nil
}

func cloneMessages(messages []models.Message) []models.Message {
	if len(messages) == 0 {
		return nil
	}
	out := make([]models.Message, len(messages))
	copy(out, messages)
	return out
}
