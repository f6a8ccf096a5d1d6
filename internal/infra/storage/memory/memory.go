// Package memory provides in-process storage used when no database or
// Redis is configured, and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vietddude/pacer/internal/core/domain"
)

// DispatchRepo implements storage.DispatchRepository in memory.
type DispatchRepo struct {
	mu         sync.RWMutex
	dispatches []*domain.Dispatch
}

// NewDispatchRepo creates an empty in-memory dispatch history.
func NewDispatchRepo() *DispatchRepo {
	return &DispatchRepo{}
}

// Save records one dispatch outcome.
func (r *DispatchRepo) Save(ctx context.Context, d *domain.Dispatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatches = append(r.dispatches, d)
	return nil
}

// ListRecent returns the most recent dispatches, newest first.
func (r *DispatchRepo) ListRecent(ctx context.Context, limit int) ([]*domain.Dispatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.dispatches)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]*domain.Dispatch, 0, n)
	for i := len(r.dispatches) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, r.dispatches[i])
	}
	return out, nil
}

// CountByStatus returns dispatch counts grouped by status.
func (r *DispatchRepo) CountByStatus(ctx context.Context) (map[domain.DispatchStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[domain.DispatchStatus]int)
	for _, d := range r.dispatches {
		counts[d.Status]++
	}
	return counts, nil
}

// FailedDispatchRepo implements storage.FailedDispatchRepository in memory.
type FailedDispatchRepo struct {
	mu     sync.RWMutex
	parked map[string]*domain.FailedDispatch
}

// NewFailedDispatchRepo creates an empty in-memory replay queue.
func NewFailedDispatchRepo() *FailedDispatchRepo {
	return &FailedDispatchRepo{parked: make(map[string]*domain.FailedDispatch)}
}

// Add parks a failed dispatch.
func (r *FailedDispatchRepo) Add(ctx context.Context, fd *domain.FailedDispatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parked[fd.ID] = fd
	return nil
}

// Next returns the parked dispatch with the fewest attempts.
func (r *FailedDispatchRepo) Next(ctx context.Context) (*domain.FailedDispatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.parked) == 0 {
		return nil, nil
	}

	all := make([]*domain.FailedDispatch, 0, len(r.parked))
	for _, fd := range r.parked {
		all = append(all, fd)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Attempt != all[j].Attempt {
			return all[i].Attempt < all[j].Attempt
		}
		return all[i].FailedAt.Before(all[j].FailedAt)
	})
	return all[0], nil
}

// Remove deletes a parked dispatch. Idempotent.
func (r *FailedDispatchRepo) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.parked, id)
	return nil
}

// Depth returns the number of parked dispatches.
func (r *FailedDispatchRepo) Depth(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.parked), nil
}
