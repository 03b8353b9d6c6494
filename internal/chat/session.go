package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"quran-ai/internal/conversation"
	"quran-ai/internal/models"
	"quran-ai/internal/provider"
)

// ErrIncompleteStream means the relay body ended without a clean-end marker.
// Whatever text arrived stays in the conversation.
var ErrIncompleteStream = errors.New("stream ended before completion")

// Mode decides what happens to the conversation when a prompt is submitted.
type Mode int

const (
	// ModeFresh starts a new conversation for the prompt.
	ModeFresh Mode = iota
	// ModeContinued appends to the existing conversation.
	ModeContinued
)

// AskRequest is a prompt submission. Prompt is sent to the relay; Display is
// what the user turn shows and defaults to Prompt.
type AskRequest struct {
	Prompt  string
	Display string
	Mode    Mode
}

// Option configures a Session.
type Option func(*Session)

// WithLocale sets the language of failure messages.
func WithLocale(l Locale) Option {
	return func(s *Session) { s.locale = l }
}

// WithSelection presets the provider and model.
func WithSelection(sel models.Selection) Option {
	return func(s *Session) { s.selection = sel }
}

// WithOnUpdate registers a callback that receives a snapshot of the turns
// after every change. It runs on the goroutine calling Ask. Calling Cancel or
// SetSelection from the callback aborts that Ask without waiting for it,
// since it cannot finish until the callback returns.
func WithOnUpdate(fn func([]conversation.Turn)) Option {
	return func(s *Session) { s.onUpdate = fn }
}

// Session drives one conversation against a relay. At most one stream is in
// flight: starting another, changing the selection or cancelling aborts the
// current one and waits until it has released its connection.
type Session struct {
	client   *Client
	conv     *conversation.Conversation
	locale   Locale
	onUpdate func([]conversation.Turn)

	mu        sync.Mutex
	selection models.Selection
	cancel    context.CancelFunc
	done      chan struct{}
	// updating counts onUpdate calls in progress.
	updating int
}

// NewSession constructs a session with an empty conversation.
func NewSession(client *Client, opts ...Option) *Session {
	s := &Session{
		client: client,
		conv:   conversation.New(),
		locale: LocaleIndonesian,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Conversation exposes the session's turns for reading.
func (s *Session) Conversation() *conversation.Conversation {
	return s.conv
}

// Selection returns the current provider and model.
func (s *Session) Selection() models.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// SetSelection aborts any in-flight stream and switches provider and model.
func (s *Session) SetSelection(sel models.Selection) {
	s.Cancel()
	s.mu.Lock()
	s.selection = sel
	s.mu.Unlock()
}

// Cancel aborts the in-flight stream, if any, and waits for it to finish.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel, done, reentrant := s.cancel, s.done, s.updating > 0
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if !reentrant {
		<-done
	}
}

// SelectBest asks the relay for catalogs in preference order and stores the
// first usable pick.
func (s *Session) SelectBest(ctx context.Context) (models.Selection, error) {
	sel, err := provider.SelectBest(ctx, s.client.Sources(), provider.PreferredModelHints)
	if err != nil {
		return models.Selection{}, err
	}
	s.mu.Lock()
	s.selection = sel
	s.mu.Unlock()
	return sel, nil
}

// Ask submits a prompt and streams the answer into a new assistant turn. It
// returns the final displayed text.
func (s *Session) Ask(ctx context.Context, req AskRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", fmt.Errorf("%w: prompt is required", models.ErrValidation)
	}

	ctx, done, err := s.begin(ctx)
	if err != nil {
		return "", err
	}
	defer done()

	if req.Mode == ModeFresh {
		s.conv.Clear()
	}
	display := req.Display
	if display == "" {
		display = req.Prompt
	}
	s.conv.AppendUser(display)
	idx := s.conv.AppendAssistant("")
	s.notify()

	sel := s.Selection()
	if sel.IsZero() {
		sel, err = s.SelectBest(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			msg := s.locale.Messages().GenericFailure
			if IsNoProvider(err) {
				msg = s.locale.Messages().NoProvider
			}
			s.replace(idx, msg)
			return msg, fmt.Errorf("select model: %w", err)
		}
	}

	resp, err := s.client.Stream(ctx, models.GenerationRequest{
		Prompt:   req.Prompt,
		Provider: sel.Provider,
		Model:    sel.Model,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		slog.Warn("relay rejected request", "conversation", s.conv.ID(), "provider", sel.Provider, "err", err)
		msg := s.locale.Messages().GenericFailure
		s.replace(idx, msg)
		return msg, err
	}
	defer resp.Body.Close()

	state, err := Consume(ctx, resp.Body, func(cleaned string) {
		s.replace(idx, cleaned)
	})
	if err != nil {
		if ctx.Err() != nil {
			return state.Cleaned, ctx.Err()
		}
		return s.incomplete(idx, state, err)
	}
	if status := resp.Trailer.Get(models.StreamStatusTrailer); status != models.StreamStatusOK {
		return s.incomplete(idx, state, fmt.Errorf("stream status %q", status))
	}
	return state.Cleaned, nil
}

// begin aborts the previous stream and registers ctx as the in-flight one.
func (s *Session) begin(ctx context.Context) (context.Context, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	prevCancel, prevDone, reentrant := s.cancel, s.done, s.updating > 0
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
		if !reentrant {
			<-prevDone
		}
	}

	finish := func() {
		cancel()
		s.mu.Lock()
		if s.done == done {
			s.cancel, s.done = nil, nil
		}
		s.mu.Unlock()
		close(done)
	}
	if err := ctx.Err(); err != nil {
		finish()
		return nil, nil, err
	}
	return ctx, finish, nil
}

func (s *Session) incomplete(idx int, state StreamState, cause error) (string, error) {
	slog.Warn("relay stream incomplete", "conversation", s.conv.ID(), "received_bytes", len(state.Raw), "err", cause)
	if state.Raw == "" {
		msg := s.locale.Messages().GenericFailure
		s.replace(idx, msg)
		return msg, fmt.Errorf("%w: %v", ErrIncompleteStream, cause)
	}
	return state.Cleaned, fmt.Errorf("%w: %v", ErrIncompleteStream, cause)
}

func (s *Session) replace(idx int, content string) {
	if err := s.conv.Replace(idx, content); err != nil {
		// The conversation was cleared underneath this stream.
		return
	}
	s.notify()
}

func (s *Session) notify() {
	if s.onUpdate == nil {
		return
	}
	s.mu.Lock()
	s.updating++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.updating--
		s.mu.Unlock()
	}()
	s.onUpdate(s.conv.Turns())
}
