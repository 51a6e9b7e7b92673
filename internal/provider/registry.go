package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"llmbridge/internal/models"
)

// ErrDuplicateProvider indicates an attempt to register the same provider twice.
var ErrDuplicateProvider = errors.New("provider already registered")

// Provider is the contract every backend adapter fulfils. Batch operations are
// part of the contract; adapters without batch support reject them with
// ErrCapabilityUnsupported before touching the network.
type Provider interface {
	Name() string
	ListModels(ctx context.Context) ([]models.ModelDescriptor, error)
	Complete(ctx context.Context, messages []models.Message, model string, opts models.RequestOptions) (*models.CompletionResult, error)

	CreateBatch(ctx context.Context, model string, items []models.BatchItem, opts models.BatchOptions) (*models.BatchSubmission, error)
	CheckBatch(ctx context.Context, jobID string) (*models.BatchStatus, error)
	RetrieveBatch(ctx context.Context, jobID string) ([]models.CompletionResult, error)
	CancelBatch(ctx context.Context, jobID string) (bool, error)
}

// Registry maintains a mapping of provider names to adapters.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Provider
}

// NewRegistry constructs an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Provider),
	}
}

// Register adds the provider under its own name.
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return errors.New("provider must not be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[p.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, p.Name())
	}
	r.byName[p.Name()] = p
	return nil
}

// Provider returns the adapter registered under name.
func (r *Registry) Provider(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}
	return p, nil
}

// Names lists registered providers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve splits a "<provider>/<model>" key and returns the adapter along with
// the model descriptor.
func (r *Registry) Resolve(ctx context.Context, key string) (Provider, models.ModelDescriptor, error) {
	providerName, modelID, err := SplitKey(key)
	if err != nil {
		return nil, models.ModelDescriptor{}, err
	}
	p, err := r.Provider(providerName)
	if err != nil {
		return nil, models.ModelDescriptor{}, err
	}
	list, err := p.ListModels(ctx)
	if err != nil {
		return nil, models.ModelDescriptor{}, fmt.Errorf("list models for provider %q: %w", p.Name(), err)
	}
	desc, err := Lookup(list, modelID)
	if err != nil {
		return nil, models.ModelDescriptor{}, err
	}
	return p, desc, nil
}

// ListModels returns every model of every registered provider.
func (r *Registry) ListModels(ctx context.Context) ([]models.ModelDescriptor, error) {
	var out []models.ModelDescriptor
	for _, name := range r.Names() {
		p, err := r.Provider(name)
		if err != nil {
			return nil, err
		}
		list, err := p.ListModels(ctx)
		if err != nil {
			return nil, fmt.Errorf("list models for provider %q: %w", name, err)
		}
		out = append(out, list...)
	}
	return out, nil
}

// SplitKey parses "<provider>/<model>". Only the first slash separates the
// two, so model ids may themselves contain slashes.
func SplitKey(key string) (providerName, modelID string, err error) {
	key = strings.TrimSpace(key)
	idx := strings.Index(key, "/")
	if idx <= 0 || idx == len(key)-1 {
		return "", "", fmt.Errorf("%w: model key %q must look like <provider>/<model>", ErrUnsupportedProvider, key)
	}
	return strings.ToLower(key[:idx]), key[idx+1:], nil
}

// Lookup finds a model by id in a catalogue.
func Lookup(list []models.ModelDescriptor, modelID string) (models.ModelDescriptor, error) {
	for _, m := range list {
		if m.ID == modelID {
			return m, nil
		}
	}
	return models.ModelDescriptor{}, fmt.Errorf("%w: %s", ErrModelNotFound, modelID)
}
