package translator

import (
	"encoding/json"
	"fmt"
	"strings"

	"quran-ai/internal/models"
)

// RelayRequest models the POST /api/ai payload.
type RelayRequest struct {
	Prompt   string
	Provider string
	Model    string
}

// UnmarshalJSON trims every field. Presence is checked by ToGeneration so
// that an empty value and a missing value are reported the same way.
func (r *RelayRequest) UnmarshalJSON(data []byte) error {
	type alias struct {
		Prompt   *string `json:"prompt"`
		Provider *string `json:"provider"`
		Model    *string `json:"model"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode relay request: %w", err)
	}

	r.Prompt = deref(raw.Prompt)
	r.Provider = strings.TrimSpace(deref(raw.Provider))
	r.Model = strings.TrimSpace(deref(raw.Model))
	return nil
}

// MarshalJSON emits the wire shape used by the relay client.
func (r RelayRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Prompt   string `json:"prompt"`
		Provider string `json:"provider"`
		Model    string `json:"model"`
	}{r.Prompt, r.Provider, r.Model})
}

// ToGeneration converts the payload to the canonical request. The prompt is
// forwarded verbatim; only the identifiers are normalised.
func (r RelayRequest) ToGeneration() (models.GenerationRequest, error) {
	req := models.GenerationRequest{
		Prompt:   r.Prompt,
		Provider: models.ProviderID(strings.ToLower(r.Provider)),
		Model:    r.Model,
	}
	if err := req.Validate(); err != nil {
		return models.GenerationRequest{}, err
	}
	return req, nil
}

// FromGeneration builds the wire payload for req.
func FromGeneration(req models.GenerationRequest) RelayRequest {
	return RelayRequest{
		Prompt:   req.Prompt,
		Provider: string(req.Provider),
		Model:    req.Model,
	}
}

// ChatMessage is one entry of a ChatRequest.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest models the POST /api/groq-chat payload. Only the last message
// is forwarded.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

// ToGeneration builds a Groq request from the last message's content.
func (r ChatRequest) ToGeneration() (models.GenerationRequest, error) {
	model := strings.TrimSpace(r.Model)
	if model == "" || len(r.Messages) == 0 {
		return models.GenerationRequest{}, fmt.Errorf("%w: model and messages array are required", models.ErrValidation)
	}
	content := r.Messages[len(r.Messages)-1].Content
	if strings.TrimSpace(content) == "" {
		return models.GenerationRequest{}, fmt.Errorf("%w: user message content is required", models.ErrValidation)
	}
	return models.GenerationRequest{
		Prompt:   content,
		Provider: models.ProviderGroq,
		Model:    model,
	}, nil
}

// ChatResponse is the body of a successful POST /api/groq-chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// ModelListResponse is the body of GET /api/{provider}-models.
type ModelListResponse struct {
	Models []string `json:"models"`
}

// FromCatalog flattens a catalog to model IDs.
func FromCatalog(catalog []models.ModelDescriptor) ModelListResponse {
	ids := make([]string, 0, len(catalog))
	for _, m := range catalog {
		ids = append(ids, m.ID)
	}
	return ModelListResponse{Models: ids}
}

// ToCatalog expands a model listing back into descriptors.
func (r ModelListResponse) ToCatalog() []models.ModelDescriptor {
	out := make([]models.ModelDescriptor, 0, len(r.Models))
	for _, id := range r.Models {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out = append(out, models.ModelDescriptor{ID: id, DisplayName: id})
	}
	return out
}

// ErrorResponse is the flat error body every JSON failure uses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
