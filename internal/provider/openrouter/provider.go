// Package openrouter adapts OpenRouter, restricted to its free models.
package openrouter

import (
	"net/http"
	"strings"

	"quran-ai/internal/config"
	"quran-ai/internal/metrics"
	"quran-ai/internal/models"
	"quran-ai/internal/provider/openaicompat"
)

const (
	temperature = 0.7
	maxTokens   = 1024
)

// New constructs the OpenRouter adapter.
func New(cfg config.ProviderConfig, client *http.Client, m *metrics.Collector) (*openaicompat.Provider, error) {
	temp, limit := temperature, maxTokens
	return openaicompat.New(openaicompat.Options{
		ID:           models.ProviderOpenRouter,
		APIKey:       cfg.APIKey,
		BaseURL:      cfg.BaseURL,
		DefaultModel: cfg.DefaultModel,
		Headers:      cfg.Headers,
		Client:       client,
		Metrics:      m,
		Temperature:  &temp,
		MaxTokens:    &limit,
		Filter:       IsFree,
	})
}

// IsFree keeps models priced at zero or labelled free.
func IsFree(m openaicompat.UpstreamModel) bool {
	if m.Pricing != nil && m.Pricing.Prompt == "0" && m.Pricing.Completion == "0" {
		return true
	}
	return strings.Contains(strings.ToLower(m.Name), "free") ||
		strings.Contains(strings.ToLower(m.ID), "free")
}
