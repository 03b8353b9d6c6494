package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation marks a request rejected before any upstream call.
var ErrValidation = errors.New("invalid request")

// ProviderID identifies one of the upstream completion services.
type ProviderID string

const (
	ProviderTogether   ProviderID = "together"
	ProviderGroq       ProviderID = "groq"
	ProviderOpenRouter ProviderID = "openrouter"
)

// PreferenceOrder is the fixed ranking used when any available model will do.
var PreferenceOrder = []ProviderID{ProviderTogether, ProviderGroq, ProviderOpenRouter}

// Valid reports whether id belongs to the closed provider set.
func (id ProviderID) Valid() bool {
	switch id {
	case ProviderTogether, ProviderGroq, ProviderOpenRouter:
		return true
	}
	return false
}

func (id ProviderID) String() string {
	return string(id)
}

// ParseProviderID normalises s and checks it against the known providers.
func ParseProviderID(s string) (ProviderID, bool) {
	id := ProviderID(strings.ToLower(strings.TrimSpace(s)))
	return id, id.Valid()
}

// ModelDescriptor describes a model offered by a single provider.
type ModelDescriptor struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
}

// GenerationRequest is the canonical relay request.
type GenerationRequest struct {
	Prompt   string
	Provider ProviderID
	Model    string
}

// Validate rejects requests missing a prompt, provider or model.
func (r GenerationRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Prompt) == "":
		return fmt.Errorf("%w: prompt is required", ErrValidation)
	case strings.TrimSpace(string(r.Provider)) == "":
		return fmt.Errorf("%w: provider is required", ErrValidation)
	case strings.TrimSpace(r.Model) == "":
		return fmt.Errorf("%w: model is required", ErrValidation)
	}
	return nil
}

// Selection is the provider/model pair chosen for generation.
type Selection struct {
	Provider ProviderID `json:"provider"`
	Model    string     `json:"model"`
}

// IsZero reports whether no selection has been made.
func (s Selection) IsZero() bool {
	return s.Provider == "" || s.Model == ""
}

// StreamStatusTrailer is sent after the last relayed fragment. Its value is
// StreamStatusOK when the upstream sequence ended cleanly.
const (
	StreamStatusTrailer = "X-Stream-Status"
	StreamStatusOK      = "ok"
	StreamStatusError   = "error"
)
