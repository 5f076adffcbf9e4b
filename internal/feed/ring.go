// Package feed provides a bounded in-memory ring of recent status events
// backing the dashboard's activity view.
package feed

import (
	"sync"

	"github.com/wagate/dashboard/internal/model"
)

// Ring is a thread-safe circular buffer holding the most recent status
// events across all sessions. When full, the oldest event is discarded.
type Ring struct {
	mu       sync.RWMutex
	events   []model.StatusEvent
	start    int
	count    int
	capacity int
}

// NewRing creates a ring with the given capacity. A non-positive capacity
// defaults to 1.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{
		events:   make([]model.StatusEvent, capacity),
		capacity: capacity,
	}
}

// Add appends an event, discarding the oldest one when the ring is full.
func (r *Ring) Add(ev model.StatusEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count < r.capacity {
		r.events[(r.start+r.count)%r.capacity] = ev
		r.count++
		return
	}
	r.events[r.start] = ev
	r.start = (r.start + 1) % r.capacity
}

// Recent returns the buffered events ordered oldest to newest.
func (r *Ring) Recent() []model.StatusEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.StatusEvent, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.events[(r.start+i)%r.capacity])
	}
	return out
}

// Len returns the number of buffered events.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return r.capacity
}

// Clear removes all buffered events.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.start = 0
	r.count = 0
}
