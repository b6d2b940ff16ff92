package llm

import (
	"sync"
)

// Conversation holds the ordered message sequence for a single task
// invocation. It is built fresh per request; the resolver appends the
// assistant's tool-call message and tool results during resolution.
type Conversation struct {
	messages []Message
	mu       sync.RWMutex
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{
		messages: make([]Message, 0, 4),
	}
}

// Add appends one message.
func (c *Conversation) Add(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, msg)
}

// Messages returns a copy of the current message sequence.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cp := make([]Message, len(c.messages))
	copy(cp, c.messages)
	return cp
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}
