package pacing

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryTracker_Basics(t *testing.T) {
	tracker := NewMemoryTracker()

	if _, ok := tracker.Get("cust-1:update"); ok {
		t.Error("fresh tracker should hold no entries")
	}

	tracker.Record("cust-1:update", Entry{Attempt: 2, RecordedAt: time.Now()})
	e, ok := tracker.Get("cust-1:update")
	if !ok || e.Attempt != 2 {
		t.Errorf("Get returned (%v, %v), want attempt 2", e, ok)
	}

	// Upsert overwrites.
	tracker.Record("cust-1:update", Entry{Attempt: 5})
	if e, _ := tracker.Get("cust-1:update"); e.Attempt != 5 {
		t.Errorf("attempt after upsert = %d, want 5", e.Attempt)
	}
}

func TestMemoryTracker_RemoveIdempotent(t *testing.T) {
	tracker := NewMemoryTracker()
	tracker.Record("cust-1:cancel", Entry{Attempt: 1})

	tracker.Remove("cust-1:cancel")
	tracker.Remove("cust-1:cancel") // absent key, still a no-op

	if _, ok := tracker.Get("cust-1:cancel"); ok {
		t.Error("entry should be gone after remove")
	}
	if tracker.Len() != 0 {
		t.Errorf("Len() = %d, want 0", tracker.Len())
	}
}

func TestMemoryTracker_Concurrency(t *testing.T) {
	tracker := NewMemoryTracker()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("cust-%d:update", i%10)
			tracker.Record(key, Entry{Attempt: i})
			tracker.Get(key)
			if i%3 == 0 {
				tracker.Remove(key)
			}
		}(i)
	}
	wg.Wait()

	if tracker.Len() > 10 {
		t.Errorf("Len() = %d, want at most one entry per key", tracker.Len())
	}
}
