package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyContent is returned when a message with blank content is saved.
var ErrEmptyContent = errors.New("message content is empty")

// Message is one submitted message.
type Message struct {
	// ID is a random UUID assigned on save.
	ID string `json:"id"`

	// Content is the message text as submitted.
	Content string `json:"content"`

	// CreatedAt is when the message was saved.
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the interface for saving, listing and subscribing to
// messages.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Save validates and stores a new message, then notifies subscribers.
	// Returns ErrEmptyContent if content is blank.
	Save(ctx context.Context, content string) (Message, error)

	// List returns every stored message, oldest first.
	List(ctx context.Context) ([]Message, error)

	// Subscribe returns a channel that receives newly saved messages.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Message

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Message)

	// Close releases any resources held by the store.
	Close() error
}

// newMessage builds a message with a fresh id, rejecting blank content.
func newMessage(content string, now time.Time) (Message, error) {
	if strings.TrimSpace(content) == "" {
		return Message{}, ErrEmptyContent
	}
	return Message{
		ID:        uuid.NewString(),
		Content:   content,
		CreatedAt: now.UTC(),
	}, nil
}

// Listing is the public wire form of a message, as served by the message
// list endpoint and consumed by remote feed sources.
type Listing struct {
	Data string    `json:"data"`
	Date time.Time `json:"date"`
}

// Listings converts messages into their wire form, preserving order.
func Listings(msgs []Message) []Listing {
	out := make([]Listing, len(msgs))
	for i, msg := range msgs {
		out[i] = Listing{Data: msg.Content, Date: msg.CreatedAt}
	}
	return out
}
