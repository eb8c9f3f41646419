// Package pubsub fans values out to any number of subscribers.
//
// Subscribers receive values via buffered channels. Sends are
// non-blocking: if a subscriber's buffer is full the value is dropped for
// that subscriber so a slow consumer never stalls the publisher.
package pubsub

import "sync"

// DefaultBuffer is the channel buffer used when a [Hub] is created with a
// non-positive size.
const DefaultBuffer = 100

// Hub is a thread-safe fan-out point for values of type T.
type Hub[T any] struct {
	mu          sync.RWMutex
	buffer      int
	subscribers map[chan T]struct{}
}

// New creates a hub whose subscriber channels hold buffer values.
func New[T any](buffer int) *Hub[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub[T]{
		buffer:      buffer,
		subscribers: make(map[chan T]struct{}),
	}
}

// Subscribe creates a new subscription and returns its channel.
//
// Caller must call [Hub.Unsubscribe] when done to prevent resource leaks.
func (h *Hub[T]) Subscribe() <-chan T {
	ch := make(chan T, h.buffer)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// multiple times or with an unknown channel.
func (h *Hub[T]) Unsubscribe(ch <-chan T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers {
		if sub == ch {
			delete(h.subscribers, sub)
			close(sub)
			break
		}
	}
}

// Publish sends v to every subscriber without blocking.
func (h *Hub[T]) Publish(v T) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers {
		select {
		case ch <- v:
		default:
			// subscriber is slow, drop the value
		}
	}
}

// Len returns the number of active subscriptions.
func (h *Hub[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
