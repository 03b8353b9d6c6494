package openrouter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quran-ai/internal/config"
	"quran-ai/internal/provider/openaicompat"
)

func TestIsFree(t *testing.T) {
	cases := []struct {
		name  string
		model openaicompat.UpstreamModel
		want  bool
	}{
		{"zero pricing", openaicompat.UpstreamModel{ID: "x/y", Pricing: &openaicompat.Pricing{Prompt: "0", Completion: "0"}}, true},
		{"free in id", openaicompat.UpstreamModel{ID: "deepseek/deepseek-r1:free"}, true},
		{"free in name", openaicompat.UpstreamModel{ID: "x/y", Name: "Gemma (Free)"}, true},
		{"paid", openaicompat.UpstreamModel{ID: "x/y", Pricing: &openaicompat.Pricing{Prompt: "0.000001", Completion: "0"}}, false},
		{"no pricing", openaicompat.UpstreamModel{ID: "x/y"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsFree(tc.model))
		})
	}
}

func TestListModels_OnlyFree(t *testing.T) {
	var referer, title string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer = r.Header.Get("HTTP-Referer")
		title = r.Header.Get("X-Title")
		fmt.Fprint(w, `{"data":[
			{"id":"openai/gpt-4o","name":"GPT-4o","pricing":{"prompt":"0.000005","completion":"0.000015"}},
			{"id":"meta-llama/llama-3-8b:free","name":"Llama 3 8B (free)","pricing":{"prompt":"0","completion":"0"}}]}`)
	}))
	t.Cleanup(srv.Close)

	p, err := New(config.ProviderConfig{
		BaseURL: srv.URL,
		Headers: config.Headers{"HTTP-Referer": "https://quran-ai.example", "X-Title": "Quran AI App"},
	}, srv.Client(), nil)
	require.NoError(t, err)

	catalog, err := p.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, catalog, 1)
	assert.Equal(t, "meta-llama/llama-3-8b:free", catalog[0].ID)
	assert.Equal(t, "https://quran-ai.example", referer)
	assert.Equal(t, "Quran AI App", title)
}
