// Package groq adapts Groq through the OpenAI Go SDK, which handles the
// event framing and hands back decoded chunk objects.
package groq

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"quran-ai/internal/config"
	"quran-ai/internal/metrics"
	"quran-ai/internal/models"
	"quran-ai/internal/prompts"
	"quran-ai/internal/provider"
)

const (
	temperature = 0.7
	maxTokens   = 1024
	maxRetries  = 1
)

// Provider streams chat completions from Groq.
type Provider struct {
	client       openai.Client
	defaultModel string
	metrics      *metrics.Collector
}

// New constructs the Groq adapter.
func New(cfg config.ProviderConfig, client *http.Client, m *metrics.Collector) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.New("base url must not be empty")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL + "/"),
		option.WithHTTPClient(client),
		option.WithMaxRetries(maxRetries),
	}
	for k, v := range cfg.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}

	p := &Provider{
		defaultModel: cfg.DefaultModel,
		metrics:      m,
	}
	opts = append(opts, option.WithMiddleware(p.dropMalformed))
	p.client = openai.NewClient(opts...)
	return p, nil
}

func (p *Provider) ID() models.ProviderID {
	return models.ProviderGroq
}

func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

func (p *Provider) ListModels(ctx context.Context) ([]models.ModelDescriptor, error) {
	page, err := p.client.Models.List(ctx)
	if err != nil {
		p.metrics.ModelList(string(models.ProviderGroq), "error")
		return nil, fmt.Errorf("groq models request failed: %w", upstreamError(err))
	}
	p.metrics.ModelList(string(models.ProviderGroq), "ok")

	result := make([]models.ModelDescriptor, 0, len(page.Data))
	for _, m := range page.Data {
		if m.ID == "" {
			continue
		}
		result = append(result, models.ModelDescriptor{ID: m.ID, DisplayName: m.ID})
	}
	return result, nil
}

// Generate opens a streaming completion. The SDK performs the request
// eagerly, so a failed handshake is visible through Err before the first
// Next call.
func (p *Provider) Generate(ctx context.Context, prompt, model string) (provider.Stream, error) {
	if model == "" {
		model = p.defaultModel
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompts.System),
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(model),
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(maxTokens),
	})
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, upstreamError(err)
	}

	return provider.NewStream(ctx, func(ctx context.Context, emit func(string) error) error {
		defer stream.Close()
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			text := chunk.Choices[0].Delta.Content
			if text == "" {
				continue
			}
			if err := emit(text); err != nil {
				return err
			}
		}
		if err := stream.Err(); err != nil {
			return fmt.Errorf("groq stream: %w", err)
		}
		return nil
	}, stream.Close), nil
}

func upstreamError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &provider.UpstreamError{
			Provider: models.ProviderGroq,
			Status:   apiErr.StatusCode,
			Message:  apiErr.Message,
		}
	}
	return fmt.Errorf("groq request failed: %w", err)
}
