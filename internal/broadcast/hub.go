package broadcast

import (
	"sync"

	"github.com/google/uuid"
)

// Hub fans the data-changed signal out to connected viewers. Delivery
// is at-most-once: a subscriber that has not drained its previous
// signal does not get another one queued behind it. A viewer that
// misses a signal catches up on the next one, or by re-pulling the
// data when it reconnects.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]chan struct{}
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{subscribers: make(map[string]chan struct{})}
}

// Subscribe registers a viewer and returns its id and signal channel.
func (h *Hub) Subscribe() (string, <-chan struct{}) {
	id := uuid.NewString()
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	h.subscribers[id] = ch
	h.mu.Unlock()

	return id, ch
}

// Unsubscribe removes a viewer. Its channel is closed so a blocked
// reader unblocks.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	ch, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
	}
	h.mu.Unlock()

	if ok {
		close(ch)
	}
}

// Publish signals every current subscriber without blocking. A full
// subscriber channel means that viewer already has a signal pending,
// so dropping this one loses nothing.
func (h *Hub) Publish() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Len returns the number of connected viewers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
