// Package fake provides a scriptable provider for tests.
package fake

import (
	"context"
	"time"

	"quran-ai/internal/models"
	"quran-ai/internal/provider"
)

// Provider replays a fixed script. Fragments are emitted in order; Err, when
// set, ends the stream after them. GenerateErr fails the handshake instead.
type Provider struct {
	Identity    models.ProviderID
	Catalog     []models.ModelDescriptor
	ListErr     error
	Fragments   []string
	Err         error
	GenerateErr error
	// Delay is waited before every fragment, honouring ctx.
	Delay time.Duration
	// Block holds the stream open after the fragments until ctx ends.
	Block bool

	// Prompts records every prompt passed to Generate.
	Prompts []string
	Models  []string
}

func (p *Provider) ID() models.ProviderID {
	return p.Identity
}

func (p *Provider) DefaultModel() string {
	if len(p.Catalog) > 0 {
		return p.Catalog[0].ID
	}
	return ""
}

func (p *Provider) ListModels(ctx context.Context) ([]models.ModelDescriptor, error) {
	if p.ListErr != nil {
		return nil, p.ListErr
	}
	if p.Delay > 0 {
		if err := sleep(ctx, p.Delay); err != nil {
			return nil, err
		}
	}
	out := make([]models.ModelDescriptor, len(p.Catalog))
	copy(out, p.Catalog)
	return out, nil
}

func (p *Provider) Generate(ctx context.Context, prompt, model string) (provider.Stream, error) {
	p.Prompts = append(p.Prompts, prompt)
	p.Models = append(p.Models, model)
	if p.GenerateErr != nil {
		return nil, p.GenerateErr
	}
	return provider.NewStream(ctx, func(ctx context.Context, emit func(string) error) error {
		for _, frag := range p.Fragments {
			if p.Delay > 0 {
				if err := sleep(ctx, p.Delay); err != nil {
					return err
				}
			}
			if err := emit(frag); err != nil {
				return err
			}
		}
		if p.Err != nil {
			return p.Err
		}
		if p.Block {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}, nil), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
