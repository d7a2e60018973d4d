// Package infra tracks in-flight translation load and routes requests to
// an execution target based on it.
package infra

import (
	"sync"
	"time"
)

// DefaultStaleAfter is how long an entry may stay registered before it is
// treated as abandoned and evicted.
const DefaultStaleAfter = 300 * time.Second

type loadEntry struct {
	registeredAt time.Time
	tokenCost    int
}

// LoadTracker is a thread-safe registry of in-flight requests and their
// token cost. All operations may be called concurrently.
type LoadTracker struct {
	mu         sync.Mutex
	entries    map[string]loadEntry
	staleAfter time.Duration
	now        func() time.Time
}

// NewLoadTracker creates an empty tracker with the default stale timeout.
func NewLoadTracker() *LoadTracker {
	return &LoadTracker{
		entries:    make(map[string]loadEntry),
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
	}
}

// Register records a request as in-flight with its token cost.
func (t *LoadTracker) Register(id string, tokenCost int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id] = loadEntry{registeredAt: t.now(), tokenCost: tokenCost}
}

// Unregister removes a request from the registry. Unknown ids are ignored.
func (t *LoadTracker) Unregister(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}

// Concurrency returns the number of in-flight requests after evicting
// stale entries.
func (t *LoadTracker) Concurrency() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.evictStaleLocked()
	return len(t.entries)
}

// TokenLoad returns the summed token cost of in-flight requests after
// evicting stale entries.
func (t *LoadTracker) TokenLoad() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.evictStaleLocked()
	total := 0
	for _, e := range t.entries {
		total += e.tokenCost
	}
	return total
}

// evictStaleLocked drops entries older than the stale timeout. Callers
// must hold the mutex.
func (t *LoadTracker) evictStaleLocked() {
	cutoff := t.now().Add(-t.staleAfter)
	for id, e := range t.entries {
		if e.registeredAt.Before(cutoff) {
			delete(t.entries, id)
		}
	}
}
