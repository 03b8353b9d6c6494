// Package conversation keeps the in-memory turn list of one chat session.
// Nothing here is persisted.
package conversation

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrNotAssistantTurn is returned when replacing a user turn or a turn that
// does not exist.
var ErrNotAssistantTurn = errors.New("not an assistant turn")

// Role identifies who authored a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is an ordered list of turns. User turns are immutable;
// assistant turns are replaced wholesale as a stream progresses. Readers may
// take snapshots concurrently with the single writer.
type Conversation struct {
	id string

	mu    sync.RWMutex
	turns []Turn
}

// New returns an empty conversation with a fresh ID.
func New() *Conversation {
	return &Conversation{id: uuid.NewString()}
}

// ID identifies the conversation in logs.
func (c *Conversation) ID() string {
	return c.id
}

// AppendUser records a submitted prompt and returns its index.
func (c *Conversation) AppendUser(content string) int {
	return c.append(Turn{Role: RoleUser, Content: content})
}

// AppendAssistant adds an assistant turn, usually an empty placeholder, and
// returns its index.
func (c *Conversation) AppendAssistant(content string) int {
	return c.append(Turn{Role: RoleAssistant, Content: content})
}

func (c *Conversation) append(t Turn) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, t)
	return len(c.turns) - 1
}

// Replace overwrites the content of the assistant turn at index.
func (c *Conversation) Replace(index int, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.turns) || c.turns[index].Role != RoleAssistant {
		return fmt.Errorf("%w: index %d", ErrNotAssistantTurn, index)
	}
	c.turns[index].Content = content
	return nil
}

// Clear drops every turn.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
}

// Turns returns a copy of the current turns.
func (c *Conversation) Turns() []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len reports the number of turns.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

// Last returns the most recent turn, if any.
func (c *Conversation) Last() (Turn, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.turns) == 0 {
		return Turn{}, false
	}
	return c.turns[len(c.turns)-1], true
}
