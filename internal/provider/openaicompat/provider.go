// Package openaicompat implements the streaming chat adapter shared by
// providers that speak the OpenAI chat-completions wire format with
// `data: <json>` framing.
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"quran-ai/internal/metrics"
	"quran-ai/internal/models"
	"quran-ai/internal/prompts"
	"quran-ai/internal/provider"
	"quran-ai/internal/provider/eventstream"
)

const (
	contentTypeJSON = "application/json"
	eventStream     = "text/event-stream"
	userAgent       = "quran-ai/0.1"

	maxErrorBody = 64 * 1024
	maxLogChunk  = 256
)

// UpstreamModel is one entry of an upstream /models listing.
type UpstreamModel struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Pricing *Pricing `json:"pricing,omitempty"`
}

// Pricing is the per-token price block some catalogs include.
type Pricing struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// Options configures a Provider.
type Options struct {
	ID           models.ProviderID
	APIKey       string
	BaseURL      string
	DefaultModel string
	Headers      map[string]string
	Client       *http.Client
	Metrics      *metrics.Collector

	// Temperature and MaxTokens are omitted from the payload when nil.
	Temperature *float64
	MaxTokens   *int

	// Catalog, when set, is returned by ListModels without a discovery call.
	Catalog []models.ModelDescriptor
	// Filter, when set, drops discovered models it returns false for.
	Filter func(UpstreamModel) bool
}

// Provider streams chat completions from an OpenAI-compatible endpoint.
type Provider struct {
	id           models.ProviderID
	apiKey       string
	defaultModel string
	headers      map[string]string
	client       *http.Client
	metrics      *metrics.Collector
	temperature  *float64
	maxTokens    *int
	catalog      []models.ModelDescriptor
	filter       func(UpstreamModel) bool
	chatURL      string
	modelsURL    string
}

// New creates a new OpenAI-compatible provider.
func New(opts Options) (*Provider, error) {
	if opts.Client == nil {
		return nil, errors.New("http client must not be nil")
	}
	if !opts.ID.Valid() {
		return nil, fmt.Errorf("%w: %q", provider.ErrUnknownProvider, opts.ID)
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.New("base url must not be empty")
	}

	catalog := make([]models.ModelDescriptor, len(opts.Catalog))
	copy(catalog, opts.Catalog)

	return &Provider{
		id:           opts.ID,
		apiKey:       opts.APIKey,
		defaultModel: opts.DefaultModel,
		headers:      opts.Headers,
		client:       opts.Client,
		metrics:      opts.Metrics,
		temperature:  opts.Temperature,
		maxTokens:    opts.MaxTokens,
		catalog:      catalog,
		filter:       opts.Filter,
		chatURL:      baseURL + "/chat/completions",
		modelsURL:    baseURL + "/models",
	}, nil
}

func (p *Provider) ID() models.ProviderID {
	return p.id
}

func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

func (p *Provider) ListModels(ctx context.Context) ([]models.ModelDescriptor, error) {
	if len(p.catalog) > 0 {
		result := make([]models.ModelDescriptor, len(p.catalog))
		copy(result, p.catalog)
		return result, nil
	}

	result, err := p.discover(ctx)
	if err != nil {
		p.metrics.ModelList(string(p.id), "error")
		return nil, err
	}
	p.metrics.ModelList(string(p.id), "ok")
	return result, nil
}

func (p *Provider) discover(ctx context.Context) ([]models.ModelDescriptor, error) {
	httpReq, err := p.newRequest(ctx, http.MethodGet, p.modelsURL, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", contentTypeJSON)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s models request failed: %w", p.id, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, parseAPIError(p.id, httpResp)
	}

	var listing struct {
		Data []UpstreamModel `json:"data"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode %s models response: %w", p.id, err)
	}

	result := make([]models.ModelDescriptor, 0, len(listing.Data))
	for _, m := range listing.Data {
		if m.ID == "" {
			continue
		}
		if p.filter != nil && !p.filter(m) {
			continue
		}
		name := m.Name
		if name == "" {
			name = m.ID
		}
		result = append(result, models.ModelDescriptor{ID: m.ID, DisplayName: name})
	}
	return result, nil
}

// Generate opens a streaming chat completion. Non-success statuses are
// returned as *provider.UpstreamError before any fragment is produced.
func (p *Provider) Generate(ctx context.Context, prompt, model string) (provider.Stream, error) {
	if model == "" {
		model = p.defaultModel
	}

	payload := chatPayload{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: prompts.System},
			{Role: "user", Content: prompt},
		},
		Stream:      true,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	}

	httpReq, err := p.newRequest(ctx, http.MethodPost, p.chatURL, payload)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", eventStream)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s chat request failed: %w", p.id, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, parseAPIError(p.id, httpResp)
	}

	body := httpResp.Body
	return provider.NewStream(ctx, func(ctx context.Context, emit func(string) error) error {
		defer body.Close()
		return p.relayChunks(eventstream.NewScanner(body), emit)
	}, body.Close), nil
}

func (p *Provider) relayChunks(scanner *eventstream.Scanner, emit func(string) error) error {
	for {
		payload, err := scanner.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s stream: %w", p.id, err)
		}

		text, err := decodeDelta(payload)
		if err != nil {
			var streamErr *streamError
			if errors.As(err, &streamErr) {
				return fmt.Errorf("%s stream: %w", p.id, err)
			}
			slog.Warn("dropping malformed stream chunk",
				"provider", p.id,
				"chunk", truncate(payload, maxLogChunk),
				"err", err,
			)
			p.metrics.MalformedChunk(string(p.id))
			continue
		}
		if text == "" {
			continue
		}
		if err := emit(text); err != nil {
			return err
		}
	}
}

func (p *Provider) newRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	req.Header.Set("User-Agent", userAgent)
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

type chatPayload struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chunk struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *apiErrorObject `json:"error,omitempty"`
}

type streamError struct {
	apiErrorObject
}

func (e *streamError) Error() string {
	return "upstream reported error mid-stream: " + e.Message
}

// decodeDelta extracts choices[0].delta.content from one payload.
func decodeDelta(payload string) (string, error) {
	var c chunk
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return "", fmt.Errorf("decode chunk: %w", err)
	}
	if c.Error != nil && c.Error.Message != "" {
		return "", &streamError{*c.Error}
	}
	if len(c.Choices) == 0 || c.Choices[0].Delta.Content == nil {
		return "", nil
	}
	return *c.Choices[0].Delta.Content, nil
}

type apiErrorResponse struct {
	Error apiErrorObject `json:"error"`
}

type apiErrorObject struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

func parseAPIError(id models.ProviderID, resp *http.Response) error {
	upstream := &provider.UpstreamError{Provider: id, Status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return upstream
	}

	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		upstream.Message = apiErr.Error.Message
		return upstream
	}

	upstream.Message = strings.TrimSpace(string(body))
	return upstream
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
