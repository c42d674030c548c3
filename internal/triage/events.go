package triage

import (
	"github.com/google/uuid"
)

// EventType identifies what part of the coordinator state changed.
type EventType int

const (
	// EventEmails fires when the collection content changed (fetch,
	// classify, summarize, logout).
	EventEmails EventType = iota

	// EventProgress fires when batch-classification progress changed.
	EventProgress

	// EventAuth fires when the authentication state changed,
	// including a forced logout on credential expiry.
	EventAuth
)

// Event is a change notification delivered to subscribers.
type Event struct {
	Type EventType
}

// Subscribe registers a listener for state-change events and returns
// its id together with the receive channel. The channel is buffered;
// a subscriber that falls behind misses events rather than blocking
// the pipeline.
func (c *Coordinator) Subscribe() (string, <-chan Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan Event, 16)
	c.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (c *Coordinator) Unsubscribe(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ch, ok := c.subscribers[id]; ok {
		delete(c.subscribers, id)
		close(ch)
	}
}

// notify fans an event out to all subscribers without blocking.
func (c *Coordinator) notify(t EventType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ch := range c.subscribers {
		select {
		case ch <- Event{Type: t}:
		default:
		}
	}
}
