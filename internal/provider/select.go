package provider

import (
	"context"
	"log/slog"
	"strings"

	"quran-ai/internal/models"
)

// PreferredModelHints are substrings that mark a model as a good default.
var PreferredModelHints = []string{"together", "llama", "mixtral", "gemma"}

// CatalogSource is anything able to list models for one provider identity.
// Adapters satisfy it directly; the relay client satisfies it over HTTP.
type CatalogSource interface {
	ID() models.ProviderID
	ListModels(ctx context.Context) ([]models.ModelDescriptor, error)
}

// ChooseModel returns the first catalog entry whose ID contains any of the
// preferred substrings, falling back to the first entry.
func ChooseModel(catalog []models.ModelDescriptor, preferred []string) (models.ModelDescriptor, bool) {
	if len(catalog) == 0 {
		return models.ModelDescriptor{}, false
	}
	for _, m := range catalog {
		for _, hint := range preferred {
			if hint != "" && strings.Contains(m.ID, hint) {
				return m, true
			}
		}
	}
	return catalog[0], true
}

// SelectBest walks sources in order and picks a model from the first one
// reporting a non-empty catalog. Listing failures count as empty catalogs.
func SelectBest(ctx context.Context, sources []CatalogSource, preferred []string) (models.Selection, error) {
	for _, src := range sources {
		catalog, err := src.ListModels(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return models.Selection{}, ctx.Err()
			}
			slog.Warn("list models failed", "provider", src.ID(), "err", err)
			continue
		}
		model, ok := ChooseModel(catalog, preferred)
		if !ok {
			continue
		}
		return models.Selection{Provider: src.ID(), Model: model.ID}, nil
	}
	return models.Selection{}, ErrNoProviderAvailable
}
