package store

import (
	"context"
	"sync"
	"time"

	"github.com/jpalmerr/danmaku/internal/pubsub"
)

// MemoryStore is an in-memory implementation of [Store].
//
// Subscribers receive new messages via buffered channels (buffer size 100).
// Sends are non-blocking; if a subscriber's buffer is full, the message is
// dropped for that subscriber.
type MemoryStore struct {
	mu       sync.RWMutex
	messages []Message
	hub      *pubsub.Hub[Message]
	now      func() time.Time
}

// NewMemoryStore creates a new in-memory [Store] implementation.
//
// The store is immediately ready for use. Close is a no-op.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hub: pubsub.New[Message](pubsub.DefaultBuffer),
		now: time.Now,
	}
}

// Save stores a message and notifies all subscribers.
func (m *MemoryStore) Save(_ context.Context, content string) (Message, error) {
	msg, err := newMessage(content, m.now())
	if err != nil {
		return Message{}, err
	}

	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()

	m.hub.Publish(msg)
	return msg, nil
}

// List returns a copy of every stored message, oldest first.
func (m *MemoryStore) List(_ context.Context) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out, nil
}

// Subscribe creates a new subscription for newly saved messages.
func (m *MemoryStore) Subscribe() <-chan Message {
	return m.hub.Subscribe()
}

// Unsubscribe removes a subscription and closes its channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Message) {
	m.hub.Unsubscribe(ch)
}

// Close does nothing.
func (m *MemoryStore) Close() error {
	return nil
}
