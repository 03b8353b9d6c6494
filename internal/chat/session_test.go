package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quran-ai/internal/conversation"
	"quran-ai/internal/models"
	"quran-ai/internal/translator"
)

// relayStub mimics the relay's wire contract.
type relayStub struct {
	mu        sync.Mutex
	catalogs  map[string][]string
	fragments []string
	status    string
	reject    int
	block     chan struct{}
	requests  []translator.RelayRequest
}

func (s *relayStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		var id string
		if _, err := fmt.Sscanf(r.URL.Path, "/api/%s", &id); err != nil {
			http.NotFound(w, r)
			return
		}
		id = id[:len(id)-len("-models")]
		_ = json.NewEncoder(w).Encode(translator.ModelListResponse{Models: s.catalogs[id]})
		return
	}

	var req translator.RelayRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.mu.Lock()
	s.requests = append(s.requests, req)
	fragments, status, reject, block := s.fragments, s.status, s.reject, s.block
	s.mu.Unlock()

	if reject != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(reject)
		_ = json.NewEncoder(w).Encode(translator.ErrorResponse{Error: "failed to generate response"})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Trailer", models.StreamStatusTrailer)
	w.WriteHeader(http.StatusOK)
	flusher := w.(http.Flusher)
	for _, f := range fragments {
		fmt.Fprint(w, f)
		flusher.Flush()
	}
	if block != nil {
		select {
		case <-block:
		case <-r.Context().Done():
			return
		}
	}
	if status != "" {
		w.Header().Set(models.StreamStatusTrailer, status)
	}
}

func (s *relayStub) lastRequest() translator.RelayRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func newStubSession(t *testing.T, stub *relayStub, opts ...Option) *Session {
	t.Helper()
	ts := httptest.NewServer(stub)
	t.Cleanup(ts.Close)
	return NewSession(NewClient(ts.URL, ts.Client()), opts...)
}

var groqLlama = models.Selection{Provider: models.ProviderGroq, Model: "llama-3.3-70b-versatile"}

func TestAsk_StreamsIntoAssistantTurn(t *testing.T) {
	stub := &relayStub{fragments: []string{"<think>hmm</think>", "Za", "kat "}, status: models.StreamStatusOK}
	var snapshots [][]conversation.Turn
	s := newStubSession(t, stub, WithSelection(groqLlama), WithOnUpdate(func(turns []conversation.Turn) {
		snapshots = append(snapshots, turns)
	}))

	text, err := s.Ask(context.Background(), AskRequest{Prompt: "Berdasarkan Surah Al-Baqarah: zakat?", Display: "zakat?"})
	require.NoError(t, err)
	assert.Equal(t, "Zakat ", text)

	turns := s.Conversation().Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, conversation.Turn{Role: conversation.RoleUser, Content: "zakat?"}, turns[0])
	assert.Equal(t, conversation.Turn{Role: conversation.RoleAssistant, Content: "Zakat "}, turns[1])

	req := stub.lastRequest()
	assert.Equal(t, "Berdasarkan Surah Al-Baqarah: zakat?", req.Prompt)
	assert.Equal(t, "groq", req.Provider)
	assert.Equal(t, groqLlama.Model, req.Model)

	require.NotEmpty(t, snapshots)
	assert.Equal(t, "", snapshots[0][1].Content)
	for _, snap := range snapshots {
		assert.NotContains(t, snap[len(snap)-1].Content, "hmm")
	}
}

func TestAsk_Modes(t *testing.T) {
	stub := &relayStub{fragments: []string{"jawaban"}, status: models.StreamStatusOK}
	s := newStubSession(t, stub, WithSelection(groqLlama))

	_, err := s.Ask(context.Background(), AskRequest{Prompt: "satu"})
	require.NoError(t, err)
	_, err = s.Ask(context.Background(), AskRequest{Prompt: "dua", Mode: ModeContinued})
	require.NoError(t, err)
	assert.Equal(t, 4, s.Conversation().Len())

	_, err = s.Ask(context.Background(), AskRequest{Prompt: "tiga", Mode: ModeFresh})
	require.NoError(t, err)
	turns := s.Conversation().Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "tiga", turns[0].Content)
}

func TestAsk_RejectedShowsLocaleMessage(t *testing.T) {
	stub := &relayStub{reject: http.StatusInternalServerError}
	s := newStubSession(t, stub, WithSelection(groqLlama), WithLocale(LocaleEnglish))

	text, err := s.Ask(context.Background(), AskRequest{Prompt: "hi"})
	var relayErr *RelayError
	require.True(t, errors.As(err, &relayErr))
	assert.Equal(t, http.StatusInternalServerError, relayErr.Status)
	assert.Equal(t, "failed to generate response", relayErr.Message)
	assert.Equal(t, LocaleEnglish.Messages().GenericFailure, text)
	assert.Equal(t, text, s.Conversation().Turns()[1].Content)
}

func TestAsk_MidStreamFailureKeepsPartial(t *testing.T) {
	stub := &relayStub{fragments: []string{"Zakat adalah "}, status: models.StreamStatusError}
	s := newStubSession(t, stub, WithSelection(groqLlama))

	text, err := s.Ask(context.Background(), AskRequest{Prompt: "hi"})
	assert.ErrorIs(t, err, ErrIncompleteStream)
	assert.Equal(t, "Zakat adalah ", text)
	assert.Equal(t, "Zakat adalah ", s.Conversation().Turns()[1].Content)
}

func TestAsk_MissingTrailerIsIncomplete(t *testing.T) {
	stub := &relayStub{fragments: []string{"Zakat"}}
	s := newStubSession(t, stub, WithSelection(groqLlama))

	_, err := s.Ask(context.Background(), AskRequest{Prompt: "hi"})
	assert.ErrorIs(t, err, ErrIncompleteStream)
}

func TestAsk_SelectsBestWhenUnset(t *testing.T) {
	stub := &relayStub{
		catalogs: map[string][]string{
			"groq":       {"x-7b", "llama-70b"},
			"openrouter": {"z:free"},
		},
		fragments: []string{"ok"},
		status:    models.StreamStatusOK,
	}
	s := newStubSession(t, stub)

	_, err := s.Ask(context.Background(), AskRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, models.Selection{Provider: models.ProviderGroq, Model: "llama-70b"}, s.Selection())
	assert.Equal(t, "llama-70b", stub.lastRequest().Model)
}

func TestAsk_NoProvider(t *testing.T) {
	stub := &relayStub{}
	s := newStubSession(t, stub)

	text, err := s.Ask(context.Background(), AskRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.True(t, IsNoProvider(err))
	assert.Equal(t, LocaleIndonesian.Messages().NoProvider, text)
	assert.Equal(t, "Tidak ada model AI yang tersedia. Silakan coba lagi nanti.", s.Conversation().Turns()[1].Content)
}

func TestAsk_NewPromptAbortsInFlight(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	stub := &relayStub{fragments: []string{"lama"}, block: block}
	s := newStubSession(t, stub, WithSelection(groqLlama))

	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Ask(context.Background(), AskRequest{Prompt: "pertama"})
		firstErr <- err
	}()

	require.Eventually(t, func() bool {
		turns := s.Conversation().Turns()
		return len(turns) == 2 && turns[1].Content == "lama"
	}, 2*time.Second, 5*time.Millisecond)

	stub.mu.Lock()
	stub.block = nil
	stub.status = models.StreamStatusOK
	stub.fragments = []string{"baru"}
	stub.mu.Unlock()

	select {
	case err := <-firstErr:
		t.Fatalf("first ask finished early: %v", err)
	default:
	}

	text, err := s.Ask(context.Background(), AskRequest{Prompt: "kedua", Mode: ModeContinued})
	require.NoError(t, err)
	assert.Equal(t, "baru", text)
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	turns := s.Conversation().Turns()
	require.Len(t, turns, 4)
	assert.Equal(t, "lama", turns[1].Content)
	assert.Equal(t, "baru", turns[3].Content)
}

func TestAsk_UpdateCallbackMayChangeSelection(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	stub := &relayStub{fragments: []string{"lama"}, block: block}
	together := models.Selection{Provider: models.ProviderTogether, Model: "m1"}

	var s *Session
	s = newStubSession(t, stub, WithSelection(groqLlama), WithOnUpdate(func(turns []conversation.Turn) {
		if turns[len(turns)-1].Content == "lama" {
			s.SetSelection(together)
		}
	}))

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Ask(context.Background(), AskRequest{Prompt: "hi"})
		errCh <- err
	}()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("ask did not return after the callback changed the selection")
	}
	assert.Equal(t, together, s.Selection())
}

func TestSession_CancelWithoutStream(t *testing.T) {
	s := newStubSession(t, &relayStub{})
	s.Cancel()
	s.SetSelection(groqLlama)
	assert.Equal(t, groqLlama, s.Selection())
}

func TestParseLocale(t *testing.T) {
	assert.Equal(t, LocaleEnglish, ParseLocale(" EN "))
	assert.Equal(t, LocaleIndonesian, ParseLocale("fr"))
	assert.Equal(t, LocaleIndonesian.Messages(), Locale("xx").Messages())
}
