package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quran-ai/internal/config"
	"quran-ai/internal/models"
	"quran-ai/internal/provider"
)

func TestRegisterConfiguredProviders(t *testing.T) {
	registry := provider.NewRegistry()
	require.NoError(t, RegisterConfiguredProviders(config.Default(), registry, nil))

	assert.Equal(t, models.PreferenceOrder, registry.IDs())

	together, err := registry.Lookup(models.ProviderTogether)
	require.NoError(t, err)
	assert.Equal(t, "meta-llama/Llama-3.3-70B-Instruct-Turbo-Free", together.DefaultModel())

	err = RegisterConfiguredProviders(config.Default(), registry, nil)
	assert.ErrorIs(t, err, provider.ErrDuplicateProvider)
}

func TestRegisterConfiguredProviders_NilRegistry(t *testing.T) {
	assert.Error(t, RegisterConfiguredProviders(config.Default(), nil, nil))
}

func TestNewHTTPClient_NoOverallTimeout(t *testing.T) {
	c := NewHTTPClient()
	assert.Zero(t, c.Timeout)
	assert.NotNil(t, c.Transport)
}
