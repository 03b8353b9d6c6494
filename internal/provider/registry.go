package provider

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"quran-ai/internal/models"
)

// ErrUnknownProvider indicates the requested provider is not registered.
var ErrUnknownProvider = errors.New("unknown provider")

// ErrDuplicateProvider indicates an attempt to register the same provider twice.
var ErrDuplicateProvider = errors.New("provider already registered")

// ErrNoProviderAvailable indicates every provider reported an empty catalog.
var ErrNoProviderAvailable = errors.New("no provider available")

// ErrUpstreamTimeout indicates the upstream call exceeded its deadline. Callers may retry.
var ErrUpstreamTimeout = errors.New("upstream timeout")

// Provider adapts one upstream completion service to the fragment contract.
type Provider interface {
	ID() models.ProviderID
	DefaultModel() string
	ListModels(ctx context.Context) ([]models.ModelDescriptor, error)
	// Generate opens the upstream stream. A failed handshake is returned here,
	// before any fragment is produced.
	Generate(ctx context.Context, prompt, model string) (Stream, error)
}

// UpstreamError carries the status of a failed upstream handshake.
type UpstreamError struct {
	Provider models.ProviderID
	Status   int
	Message  string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s upstream error status %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s upstream error status %d: %s", e.Provider, e.Status, e.Message)
}

// Registry maps provider identities to adapters. It is populated once at
// startup and only read afterwards.
type Registry struct {
	byID map[models.ProviderID]Provider
}

// NewRegistry constructs an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[models.ProviderID]Provider),
	}
}

// Register adds an adapter for its identity.
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return errors.New("provider must not be nil")
	}
	if !p.ID().Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, p.ID())
	}
	if _, exists := r.byID[p.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, p.ID())
	}
	r.byID[p.ID()] = p
	return nil
}

// Lookup returns the adapter registered for id.
func (r *Registry) Lookup(id models.ProviderID) (Provider, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, id)
	}
	return p, nil
}

// Ordered returns the registered adapters in preference order.
func (r *Registry) Ordered() []Provider {
	out := make([]Provider, 0, len(r.byID))
	for _, id := range models.PreferenceOrder {
		if p, ok := r.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// IDs lists registered identities in preference order.
func (r *Registry) IDs() []models.ProviderID {
	ids := make([]models.ProviderID, 0, len(r.byID))
	for _, id := range models.PreferenceOrder {
		if _, ok := r.byID[id]; ok {
			ids = append(ids, id)
		}
	}
	return slices.Clip(ids)
}
