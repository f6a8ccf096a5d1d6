package pacing

import (
	"sync"
	"time"
)

// Entry is the record of the most recent attempt for a key.
type Entry struct {
	Attempt    int
	RecordedAt time.Time
}

// Tracker stores per-key attempt history. It holds no business logic;
// the controller owns all mutation ordering.
//
// Implementations must be safe for concurrent access from many keys.
type Tracker interface {
	// Get returns the entry for a key, if present.
	Get(key string) (Entry, bool)

	// Record upserts the entry for a key, overwriting any prior entry.
	Record(key string, e Entry)

	// Remove deletes the entry for a key. Removing an absent key is a
	// no-op, not an error.
	Remove(key string)
}

// MemoryTracker implements Tracker with an in-process map.
// State lives for the process lifetime only.
type MemoryTracker struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryTracker creates an empty in-memory tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{entries: make(map[string]Entry)}
}

// Get returns the entry for a key, if present.
func (t *MemoryTracker) Get(key string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[key]
	return e, ok
}

// Record upserts the entry for a key.
func (t *MemoryTracker) Record(key string, e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[key] = e
}

// Remove deletes the entry for a key. Idempotent.
func (t *MemoryTracker) Remove(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, key)
}

// Len returns the number of tracked keys.
func (t *MemoryTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
