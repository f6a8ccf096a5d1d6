package storage

import (
	"context"

	"github.com/vietddude/pacer/internal/core/domain"
)

// DispatchRepository persists dispatch attempt history.
type DispatchRepository interface {
	// Save records one dispatch outcome.
	Save(ctx context.Context, d *domain.Dispatch) error

	// ListRecent returns the most recent dispatches, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.Dispatch, error)

	// CountByStatus returns dispatch counts grouped by status.
	CountByStatus(ctx context.Context) (map[domain.DispatchStatus]int, error)
}

// FailedDispatchRepository parks retryable dispatches for replay.
type FailedDispatchRepository interface {
	// Add parks a failed dispatch. Re-adding an ID overwrites it.
	Add(ctx context.Context, fd *domain.FailedDispatch) error

	// Next returns the parked dispatch with the fewest attempts, or nil
	// when the queue is empty. The entry stays parked until removed.
	Next(ctx context.Context) (*domain.FailedDispatch, error)

	// Remove deletes a parked dispatch. Removing an absent ID is a no-op.
	Remove(ctx context.Context, id string) error

	// Depth returns the number of parked dispatches.
	Depth(ctx context.Context) (int, error)
}
