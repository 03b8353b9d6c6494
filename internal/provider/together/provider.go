// Package together adapts Together.ai. Its catalog is pinned to a single
// free model, so no discovery call is made.
package together

import (
	"net/http"

	"quran-ai/internal/config"
	"quran-ai/internal/metrics"
	"quran-ai/internal/models"
	"quran-ai/internal/provider/openaicompat"
)

// FreeModel is the only model offered through this provider.
const FreeModel = "meta-llama/Llama-3.3-70B-Instruct-Turbo-Free"

// New constructs the Together.ai adapter.
func New(cfg config.ProviderConfig, client *http.Client, m *metrics.Collector) (*openaicompat.Provider, error) {
	model := cfg.DefaultModel
	if model == "" {
		model = FreeModel
	}
	return openaicompat.New(openaicompat.Options{
		ID:           models.ProviderTogether,
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		DefaultModel: model,
		Headers:      cfg.Headers,
		Client:       client,
		Metrics:      m,
		Catalog:      []models.ModelDescriptor{{ID: model, DisplayName: model}},
	})
}
