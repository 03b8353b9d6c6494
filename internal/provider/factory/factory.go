package factory

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"quran-ai/internal/config"
	"quran-ai/internal/metrics"
	"quran-ai/internal/models"
	"quran-ai/internal/provider"
	groqProvider "quran-ai/internal/provider/groq"
	openrouterProvider "quran-ai/internal/provider/openrouter"
	togetherProvider "quran-ai/internal/provider/together"
)

const (
	defaultDialTimeout           = 10 * time.Second
	defaultKeepAlive             = 30 * time.Second
	defaultIdleConnTimeout       = 90 * time.Second
	defaultResponseHeaderTimeout = 60 * time.Second
)

// RegisterConfiguredProviders constructs one adapter per provider and stores
// them in the registry. Adapters are immutable once built.
func RegisterConfiguredProviders(cfg config.Config, registry *provider.Registry, m *metrics.Collector) error {
	if registry == nil {
		return errors.New("registry must not be nil")
	}

	togetherAdapter, err := togetherProvider.New(cfg.Providers.Together, NewHTTPClient(), m)
	if err != nil {
		return fmt.Errorf("initialise together provider: %w", err)
	}
	if err := registry.Register(togetherAdapter); err != nil {
		return fmt.Errorf("register together provider: %w", err)
	}

	groqAdapter, err := groqProvider.New(cfg.Providers.Groq, NewHTTPClient(), m)
	if err != nil {
		return fmt.Errorf("initialise groq provider: %w", err)
	}
	if err := registry.Register(groqAdapter); err != nil {
		return fmt.Errorf("register groq provider: %w", err)
	}

	openrouterAdapter, err := openrouterProvider.New(cfg.Providers.OpenRouter, NewHTTPClient(), m)
	if err != nil {
		return fmt.Errorf("initialise openrouter provider: %w", err)
	}
	if err := registry.Register(openrouterAdapter); err != nil {
		return fmt.Errorf("register openrouter provider: %w", err)
	}

	for _, id := range models.PreferenceOrder {
		if p, _ := cfg.Providers.Provider(id); p.APIKey == "" {
			slog.Warn("provider has no api key; requests will likely be rejected upstream", "provider", id)
		}
	}
	return nil
}

// NewHTTPClient returns a client suited to long-lived streaming responses:
// connection setup is bounded but there is no overall timeout, which would
// cut streams short. Per-call deadlines come from the request context.
func NewHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: defaultResponseHeaderTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Transport: transport,
	}
}
