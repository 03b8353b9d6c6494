package translator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quran-ai/internal/models"
)

func TestRelayRequest_ToGeneration(t *testing.T) {
	var req RelayRequest
	require.NoError(t, json.Unmarshal([]byte(`{"prompt":"  Apa itu zakat? ","provider":" Groq ","model":" llama-3 "}`), &req))

	gen, err := req.ToGeneration()
	require.NoError(t, err)
	assert.Equal(t, "  Apa itu zakat? ", gen.Prompt)
	assert.Equal(t, models.ProviderGroq, gen.Provider)
	assert.Equal(t, "llama-3", gen.Model)
}

func TestRelayRequest_MissingFields(t *testing.T) {
	cases := map[string]string{
		"prompt":   `{"provider":"groq","model":"m"}`,
		"blank":    `{"prompt":"   ","provider":"groq","model":"m"}`,
		"provider": `{"prompt":"hi","model":"m"}`,
		"model":    `{"prompt":"hi","provider":"groq","model":null}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var req RelayRequest
			require.NoError(t, json.Unmarshal([]byte(body), &req))
			_, err := req.ToGeneration()
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestRelayRequest_InvalidJSON(t *testing.T) {
	var req RelayRequest
	assert.Error(t, json.Unmarshal([]byte(`{"prompt":1}`), &req))
}

func TestChatRequest_ToGeneration(t *testing.T) {
	var req ChatRequest
	require.NoError(t, json.Unmarshal([]byte(`{"model":" llama-3.3-70b-versatile ","messages":[
		{"role":"user","content":"Assalamualaikum"},
		{"role":"user","content":"Apa itu zakat?"}]}`), &req))

	gen, err := req.ToGeneration()
	require.NoError(t, err)
	assert.Equal(t, models.GenerationRequest{
		Prompt:   "Apa itu zakat?",
		Provider: models.ProviderGroq,
		Model:    "llama-3.3-70b-versatile",
	}, gen)
}

func TestChatRequest_Invalid(t *testing.T) {
	cases := map[string]string{
		"no model":      `{"messages":[{"role":"user","content":"hi"}]}`,
		"no messages":   `{"model":"m"}`,
		"empty list":    `{"model":"m","messages":[]}`,
		"empty content": `{"model":"m","messages":[{"role":"user","content":"hi"},{"role":"user","content":" "}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var req ChatRequest
			require.NoError(t, json.Unmarshal([]byte(body), &req))
			_, err := req.ToGeneration()
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestModelListResponse_RoundTrip(t *testing.T) {
	resp := FromCatalog([]models.ModelDescriptor{{ID: "a", DisplayName: "A"}, {ID: "b"}})
	assert.Equal(t, []string{"a", "b"}, resp.Models)

	catalog := ModelListResponse{Models: []string{"a", " ", "b"}}.ToCatalog()
	require.Len(t, catalog, 2)
	assert.Equal(t, models.ModelDescriptor{ID: "b", DisplayName: "b"}, catalog[1])
}
