package provider_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quran-ai/internal/models"
	"quran-ai/internal/provider"
	"quran-ai/internal/provider/fake"
)

func catalog(ids ...string) []models.ModelDescriptor {
	out := make([]models.ModelDescriptor, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.ModelDescriptor{ID: id, DisplayName: id})
	}
	return out
}

func TestChooseModel(t *testing.T) {
	m, ok := provider.ChooseModel(catalog("x-7b", "llama-70b", "y"), provider.PreferredModelHints)
	require.True(t, ok)
	assert.Equal(t, "llama-70b", m.ID)

	m, ok = provider.ChooseModel(catalog("x", "y"), provider.PreferredModelHints)
	require.True(t, ok)
	assert.Equal(t, "x", m.ID)

	_, ok = provider.ChooseModel(nil, provider.PreferredModelHints)
	assert.False(t, ok)
}

func TestSelectBest_PreferenceOrder(t *testing.T) {
	sources := []provider.CatalogSource{
		&fake.Provider{Identity: models.ProviderTogether},
		&fake.Provider{Identity: models.ProviderGroq, ListErr: errors.New("down")},
		&fake.Provider{Identity: models.ProviderOpenRouter, Catalog: catalog("a:free", "google/gemma:free")},
	}

	sel, err := provider.SelectBest(context.Background(), sources, provider.PreferredModelHints)
	require.NoError(t, err)
	assert.Equal(t, models.Selection{Provider: models.ProviderOpenRouter, Model: "google/gemma:free"}, sel)
}

func TestSelectBest_FirstNonEmptyWins(t *testing.T) {
	sources := []provider.CatalogSource{
		&fake.Provider{Identity: models.ProviderTogether, Catalog: catalog("meta-llama/Llama-3.3-70B-Instruct-Turbo-Free")},
		&fake.Provider{Identity: models.ProviderGroq, Catalog: catalog("llama3")},
	}

	sel, err := provider.SelectBest(context.Background(), sources, provider.PreferredModelHints)
	require.NoError(t, err)
	assert.Equal(t, models.ProviderTogether, sel.Provider)
}

func TestSelectBest_NoneAvailable(t *testing.T) {
	sources := []provider.CatalogSource{
		&fake.Provider{Identity: models.ProviderTogether},
		&fake.Provider{Identity: models.ProviderGroq},
		&fake.Provider{Identity: models.ProviderOpenRouter},
	}

	_, err := provider.SelectBest(context.Background(), sources, provider.PreferredModelHints)
	assert.ErrorIs(t, err, provider.ErrNoProviderAvailable)
}

func TestSelectBest_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sources := []provider.CatalogSource{
		&fake.Provider{Identity: models.ProviderGroq, Catalog: catalog("m"), Delay: time.Hour},
	}

	_, err := provider.SelectBest(ctx, sources, provider.PreferredModelHints)
	assert.ErrorIs(t, err, context.Canceled)
}
