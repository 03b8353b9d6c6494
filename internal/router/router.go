package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"quran-ai/internal/config"
	"quran-ai/internal/models"
	"quran-ai/internal/provider"
)

// Router dispatches relay requests to the matching provider adapter.
type Router struct {
	registry *provider.Registry
	timeouts map[models.ProviderID]time.Duration
}

// New constructs a router backed by the provided registry. Each upstream
// call is bounded by its provider's configured timeout.
func New(registry *provider.Registry, cfg config.ProvidersConfig) *Router {
	timeouts := make(map[models.ProviderID]time.Duration, len(models.PreferenceOrder))
	for _, id := range models.PreferenceOrder {
		if p, ok := cfg.Provider(id); ok {
			timeouts[id] = p.Timeout
		}
	}
	return &Router{
		registry: registry,
		timeouts: timeouts,
	}
}

// Dispatch validates req, resolves its adapter and opens the fragment stream.
// The returned stream must be closed by the caller.
func (r *Router) Dispatch(ctx context.Context, req models.GenerationRequest) (provider.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	providerImpl, err := r.registry.Lookup(req.Provider)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := r.bound(ctx, req.Provider)
	stream, err := providerImpl.Generate(callCtx, req.Prompt, req.Model)
	if err != nil {
		err = classify(callCtx, fmt.Errorf("provider %s generate: %w", req.Provider, err))
		cancel()
		return nil, err
	}
	return &boundStream{stream: stream, ctx: callCtx, cancel: cancel}, nil
}

// ListModels returns the catalog of a single provider.
func (r *Router) ListModels(ctx context.Context, id models.ProviderID) ([]models.ModelDescriptor, error) {
	providerImpl, err := r.registry.Lookup(id)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := r.bound(ctx, id)
	defer cancel()

	catalog, err := providerImpl.ListModels(callCtx)
	if err != nil {
		return nil, classify(callCtx, fmt.Errorf("provider %s list models: %w", id, err))
	}
	return catalog, nil
}

// SelectBest picks a provider and model in the fixed preference order.
func (r *Router) SelectBest(ctx context.Context) (models.Selection, error) {
	return provider.SelectBest(ctx, r.sources(), provider.PreferredModelHints)
}

func (r *Router) sources() []provider.CatalogSource {
	ids := r.registry.IDs()
	out := make([]provider.CatalogSource, 0, len(ids))
	for _, id := range ids {
		out = append(out, routedSource{router: r, id: id})
	}
	return out
}

// routedSource lists through the router so selection gets the same timeouts.
type routedSource struct {
	router *Router
	id     models.ProviderID
}

func (s routedSource) ID() models.ProviderID { return s.id }

func (s routedSource) ListModels(ctx context.Context) ([]models.ModelDescriptor, error) {
	return s.router.ListModels(ctx, s.id)
}

func (r *Router) bound(ctx context.Context, id models.ProviderID) (context.Context, context.CancelFunc) {
	if d := r.timeouts[id]; d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// classify maps an expired call deadline to provider.ErrUpstreamTimeout.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, provider.ErrUpstreamTimeout) {
		return fmt.Errorf("%w: %v", provider.ErrUpstreamTimeout, err)
	}
	return err
}

type boundStream struct {
	stream provider.Stream
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *boundStream) Recv() (string, error) {
	frag, err := s.stream.Recv()
	if err != nil && !errors.Is(err, io.EOF) {
		return "", classify(s.ctx, err)
	}
	return frag, err
}

func (s *boundStream) Close() error {
	err := s.stream.Close()
	s.cancel()
	return err
}
