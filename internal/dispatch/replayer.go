package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/pacer/internal/infra/storage"
	"github.com/vietddude/pacer/internal/metrics"
	"github.com/vietddude/pacer/internal/pacing"
)

// Default replayer configuration.
const (
	defaultReplayInterval = 15 * time.Second
	defaultReplayBatch    = 10
)

// Replayer drains the failed-dispatch queue and re-drives each parked
// dispatch through the dispatcher with its advanced attempt count.
//
// The pacing controller deliberately surfaces each failure instead of
// looping; the replayer is the caller that owns the retry loop. A
// dispatch that fails again is parked again with attempt+1, so it keeps
// cycling through the queue until it succeeds or exhausts its bound.
type Replayer struct {
	queue      storage.FailedDispatchRepository
	dispatcher *Dispatcher
	interval   time.Duration
	batchSize  int
	log        *slog.Logger

	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// ReplayerConfig holds replayer configuration.
type ReplayerConfig struct {
	Queue      storage.FailedDispatchRepository
	Dispatcher *Dispatcher

	// Interval between drain passes (default: 15s).
	Interval time.Duration

	// BatchSize bounds replays per pass so one stubborn dispatch cannot
	// monopolize a pass (default: 10).
	BatchSize int

	Logger *slog.Logger
}

// NewReplayer creates a replayer.
func NewReplayer(cfg ReplayerConfig) *Replayer {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultReplayInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultReplayBatch
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Replayer{
		queue:      cfg.Queue,
		dispatcher: cfg.Dispatcher,
		interval:   interval,
		batchSize:  batchSize,
		log:        log,
	}
}

// Start launches the drain loop.
func (r *Replayer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancelFunc = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop(ctx)
	}()

	r.log.Info("replayer started", "interval", r.interval, "batch_size", r.batchSize)
}

// Stop halts the drain loop and waits for the current pass to finish.
func (r *Replayer) Stop() {
	if r.cancelFunc != nil {
		r.cancelFunc()
	}
	r.wg.Wait()
	r.log.Info("replayer stopped")
}

func (r *Replayer) loop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// First pass right away, picking up dispatches parked before a
	// restart.
	r.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.drain(ctx)
		}
	}
}

// drain replays up to batchSize parked dispatches.
func (r *Replayer) drain(ctx context.Context) {
	for i := 0; i < r.batchSize; i++ {
		if ctx.Err() != nil {
			return
		}

		fd, err := r.queue.Next(ctx)
		if err != nil {
			r.log.Error("failed to read replay queue", "error", err)
			return
		}
		if fd == nil {
			break
		}

		_, err = r.dispatcher.Dispatch(ctx, &Request{
			SubjectID: fd.SubjectID,
			Kind:      fd.Kind,
			Attempt:   fd.Attempt,
			Payload:   fd.Payload,
		})

		// A failed replay was re-parked by the dispatcher under a new
		// entry; the old entry is done either way.
		if removeErr := r.queue.Remove(ctx, fd.ID); removeErr != nil {
			r.log.Error("failed to remove replayed dispatch", "id", fd.ID, "error", removeErr)
		}

		switch {
		case err == nil:
			metrics.ReplaysTotal.WithLabelValues("succeeded").Inc()
			r.log.Info("replay succeeded", "subject", fd.SubjectID, "kind", fd.Kind, "attempt", fd.Attempt)
		case isTransient(err):
			metrics.ReplaysTotal.WithLabelValues("retrying").Inc()
		default:
			var exhausted *pacing.ExhaustedError
			if errors.As(err, &exhausted) {
				metrics.ReplaysTotal.WithLabelValues("exhausted").Inc()
				r.log.Warn("replay exhausted retries", "subject", fd.SubjectID, "kind", fd.Kind, "limit", exhausted.Limit)
			} else {
				metrics.ReplaysTotal.WithLabelValues("failed").Inc()
			}
		}
	}

	if depth, err := r.queue.Depth(ctx); err == nil {
		metrics.ReplayQueueDepth.Set(float64(depth))
	}
}
