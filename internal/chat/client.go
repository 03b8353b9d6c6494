// Package chat is the consuming side of the relay: an HTTP client, the
// incremental stream consumer and a conversation session built on both.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"quran-ai/internal/models"
	"quran-ai/internal/provider"
	"quran-ai/internal/scripture"
	"quran-ai/internal/translator"
)

// RelayError is a JSON failure answered by the relay before streaming began.
type RelayError struct {
	Status  int
	Message string
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("relay status %d: %s", e.Status, e.Message)
}

// Client talks to a relay server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a relay client. A nil http client uses one without
// an overall timeout, since streamed answers can take minutes.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
}

// Stream posts req to the relay. On success the caller owns the response
// and must close its body; trailers are readable once the body hit EOF.
func (c *Client) Stream(ctx context.Context, req models.GenerationRequest) (*http.Response, error) {
	payload, err := json.Marshal(translator.FromGeneration(req))
	if err != nil {
		return nil, fmt.Errorf("encode relay request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ai", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("construct relay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/plain")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("relay request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeRelayError(resp)
	}
	return resp, nil
}

// ListModels returns the catalog the relay reports for id.
func (c *Client) ListModels(ctx context.Context, id models.ProviderID) ([]models.ModelDescriptor, error) {
	var out translator.ModelListResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/api/%s-models", id), &out); err != nil {
		return nil, err
	}
	return out.ToCatalog(), nil
}

// Chapters lists the surahs known to the relay's scripture collaborator.
func (c *Client) Chapters(ctx context.Context) ([]scripture.Chapter, error) {
	var out struct {
		Data []scripture.Chapter `json:"data"`
	}
	if err := c.getJSON(ctx, "/api/surahs", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Chapter finds a surah by number.
func (c *Client) Chapter(ctx context.Context, number int) (scripture.Chapter, error) {
	chapters, err := c.Chapters(ctx)
	if err != nil {
		return scripture.Chapter{}, err
	}
	for _, ch := range chapters {
		if ch.Number == number {
			return ch, nil
		}
	}
	return scripture.Chapter{}, fmt.Errorf("%w: surah %d", scripture.ErrInvalidPartition, number)
}

// Partition fetches a bilingual partition through the relay.
func (c *Client) Partition(ctx context.Context, kind scripture.Kind, number int) (*scripture.Partition, error) {
	var out struct {
		Data *scripture.Partition `json:"data"`
	}
	path := fmt.Sprintf("/api/quran?type=%s&number=%d", url.QueryEscape(string(kind)), number)
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, fmt.Errorf("relay returned no data for %s %d", kind, number)
	}
	return out.Data, nil
}

// Sources exposes the relay's listing endpoints to provider.SelectBest, in
// preference order.
func (c *Client) Sources() []provider.CatalogSource {
	out := make([]provider.CatalogSource, 0, len(models.PreferenceOrder))
	for _, id := range models.PreferenceOrder {
		out = append(out, relaySource{client: c, id: id})
	}
	return out
}

type relaySource struct {
	client *Client
	id     models.ProviderID
}

func (s relaySource) ID() models.ProviderID { return s.id }

func (s relaySource) ListModels(ctx context.Context) ([]models.ModelDescriptor, error) {
	return s.client.ListModels(ctx, s.id)
}

func (c *Client) getJSON(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("construct request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("relay request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeRelayError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func decodeRelayError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload translator.ErrorResponse
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		payload.Error = strings.TrimSpace(string(body))
	}
	if payload.Error == "" {
		payload.Error = http.StatusText(resp.StatusCode)
	}
	return &RelayError{Status: resp.StatusCode, Message: payload.Error}
}

// IsNoProvider reports whether err means no provider had any model.
func IsNoProvider(err error) bool {
	if errors.Is(err, provider.ErrNoProviderAvailable) {
		return true
	}
	var relayErr *RelayError
	return errors.As(err, &relayErr) && relayErr.Status == http.StatusServiceUnavailable
}
