package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vietddude/pacer/internal/core/domain"
)

// Parked dispatches expire if nothing replays them within a day.
const parkedTTL = 24 * time.Hour

// FailedDispatchRepo implements storage.FailedDispatchRepository using
// Redis: a sorted set orders IDs by attempt count (fewest retries
// first) and a keyed value holds the serialized dispatch.
type FailedDispatchRepo struct {
	rdb       *redis.Client
	namespace string
}

// NewFailedDispatchRepo creates a Redis-backed replay queue.
// The namespace isolates queues of independent pacer deployments.
func NewFailedDispatchRepo(client *Client, namespace string) *FailedDispatchRepo {
	return &FailedDispatchRepo{
		rdb:       client.rdb,
		namespace: namespace,
	}
}

// Key helpers
func (r *FailedDispatchRepo) queueKey() string {
	return fmt.Sprintf("failed_dispatches:%s", r.namespace)
}

func (r *FailedDispatchRepo) dispatchKey(id string) string {
	return fmt.Sprintf("failed_dispatch:%s:%s", r.namespace, id)
}

// Add parks a failed dispatch.
func (r *FailedDispatchRepo) Add(ctx context.Context, fd *domain.FailedDispatch) error {
	data, err := json.Marshal(fd)
	if err != nil {
		return fmt.Errorf("failed to marshal failed dispatch: %w", err)
	}

	if err := r.rdb.Set(ctx, r.dispatchKey(fd.ID), data, parkedTTL).Err(); err != nil {
		return fmt.Errorf("failed to set failed dispatch: %w", err)
	}

	// Score = attempt count so the least-retried dispatch replays first.
	if err := r.rdb.ZAdd(ctx, r.queueKey(), redis.Z{
		Score:  float64(fd.Attempt),
		Member: fd.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to queue: %w", err)
	}

	return nil
}

// Next returns the parked dispatch with the lowest attempt count, or
// nil when the queue is empty.
func (r *FailedDispatchRepo) Next(ctx context.Context) (*domain.FailedDispatch, error) {
	results, err := r.rdb.ZRange(ctx, r.queueKey(), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	id := results[0]

	data, err := r.rdb.Get(ctx, r.dispatchKey(id)).Bytes()
	if err == redis.Nil {
		// Value expired but the ID is still queued; drop it.
		r.rdb.ZRem(ctx, r.queueKey(), id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get failed dispatch: %w", err)
	}

	var fd domain.FailedDispatch
	if err := json.Unmarshal(data, &fd); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failed dispatch: %w", err)
	}

	return &fd, nil
}

// Remove deletes a parked dispatch. Idempotent.
func (r *FailedDispatchRepo) Remove(ctx context.Context, id string) error {
	if err := r.rdb.ZRem(ctx, r.queueKey(), id).Err(); err != nil {
		return fmt.Errorf("zrem failed: %w", err)
	}
	if err := r.rdb.Del(ctx, r.dispatchKey(id)).Err(); err != nil {
		return fmt.Errorf("del failed: %w", err)
	}
	return nil
}

// Depth returns the number of parked dispatches.
func (r *FailedDispatchRepo) Depth(ctx context.Context) (int, error) {
	n, err := r.rdb.ZCard(ctx, r.queueKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(n), nil
}
