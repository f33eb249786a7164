package session

import (
	"errors"
	"sync"

	"github.com/studyspark-go/internal/models"
)

// ErrEmptyMessageID is returned by Append for a message without an id
var ErrEmptyMessageID = errors.New("message id is required")

// ConversationStore is the append-only message log plus the awaiting flag
type ConversationStore struct {
	mu       sync.RWMutex
	messages []models.Message
	awaiting bool
}

// NewConversationStore creates an empty conversation
func NewConversationStore() *ConversationStore {
	return &ConversationStore{messages: make([]models.Message, 0, 16)}
}

// Append adds msg to the end of the log
func (c *ConversationStore) Append(msg models.Message) error {
	if msg.ID == "" {
		return ErrEmptyMessageID
	}

	c.mu.Lock()
	c.messages = append(c.messages, msg.Clone())
	c.mu.Unlock()
	return nil
}

// SetAwaiting toggles the pending-response flag
func (c *ConversationStore) SetAwaiting(awaiting bool) {
	c.mu.Lock()
	c.awaiting = awaiting
	c.mu.Unlock()
}

// Awaiting reports whether a chat request is in flight
func (c *ConversationStore) Awaiting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.awaiting
}

// Messages returns a copy of the log in insertion order
func (c *ConversationStore) Messages() []models.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Message, len(c.messages))
	for i, m := range c.messages {
		out[i] = m.Clone()
	}
	return out
}

// Len returns the number of logged messages
func (c *ConversationStore) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// LastFrom returns the most recent message with the given role, if any
func (c *ConversationStore) LastFrom(role models.Role) (models.Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == role {
			return c.messages[i].Clone(), true
		}
	}
	return models.Message{}, false
}
