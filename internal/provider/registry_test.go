package provider_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quran-ai/internal/models"
	"quran-ai/internal/provider"
	"quran-ai/internal/provider/fake"
)

func TestRegistry(t *testing.T) {
	r := provider.NewRegistry()
	require.NoError(t, r.Register(&fake.Provider{Identity: models.ProviderOpenRouter}))
	require.NoError(t, r.Register(&fake.Provider{Identity: models.ProviderTogether}))

	err := r.Register(&fake.Provider{Identity: models.ProviderTogether})
	assert.ErrorIs(t, err, provider.ErrDuplicateProvider)

	err = r.Register(&fake.Provider{Identity: "claude"})
	assert.ErrorIs(t, err, provider.ErrUnknownProvider)

	_, err = r.Lookup(models.ProviderGroq)
	assert.ErrorIs(t, err, provider.ErrUnknownProvider)

	p, err := r.Lookup(models.ProviderTogether)
	require.NoError(t, err)
	assert.Equal(t, models.ProviderTogether, p.ID())

	assert.Equal(t, []models.ProviderID{models.ProviderTogether, models.ProviderOpenRouter}, r.IDs())
	assert.Len(t, r.Ordered(), 2)
}
