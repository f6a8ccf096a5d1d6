package pacing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/pacer/internal/core/domain"
)

// Operation is the opaque unit of work guarded by the controller.
// It must honor ctx and report success or failure through its error.
type Operation func(ctx context.Context) error

// Controller staggers and retries operations per key.
type Controller struct {
	tracker Tracker
	calc    *Calculator
	log     *slog.Logger

	// Per-key locks so same-key calls serialize while unrelated keys
	// proceed untouched.
	lockMu sync.Mutex
	locks  map[string]*keyLock

	onStagger func(key string, delay time.Duration)
	onFailure func(key string, attempt int, err error)
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Config holds controller dependencies.
type Config struct {
	// Tracker stores per-key attempt history. Required; inject a shared
	// tracker to share staggering state between controllers, or separate
	// trackers to isolate them.
	Tracker Tracker

	// Calculator computes backoff delays (optional; defaults to a
	// time-seeded calculator).
	Calculator *Calculator

	// Logger (optional; defaults to slog.Default).
	Logger *slog.Logger
}

// NewController creates a controller.
func NewController(cfg Config) *Controller {
	calc := cfg.Calculator
	if calc == nil {
		calc = NewCalculator()
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	tracker := cfg.Tracker
	if tracker == nil {
		tracker = NewMemoryTracker()
	}

	return &Controller{
		tracker: tracker,
		calc:    calc,
		log:     log,
		locks:   make(map[string]*keyLock),
	}
}

// SetStaggerCallback registers a hook invoked just before the controller
// suspends a call to space it out.
func (c *Controller) SetStaggerCallback(fn func(key string, delay time.Duration)) {
	c.onStagger = fn
}

// SetFailureCallback registers a hook invoked when an operation fails.
func (c *Controller) SetFailureCallback(fn func(key string, attempt int, err error)) {
	c.onFailure = fn
}

// Execute runs op under the staggering and retry discipline for
// reqCtx.Key().
//
// Algorithm:
//  1. If the tracker holds an entry for the key, suspend for the
//     policy's delay at the entry's attempt count. A fresh key
//     dispatches immediately.
//  2. Record the current context into the tracker.
//  3. Invoke op.
//  4. Success: remove the entry, return nil.
//  5. Failure: if the retry bound is reached, remove the entry and
//     return *ExhaustedError. Otherwise record attempt+1 and return
//     *TransientError. The controller never loops internally; the
//     caller decides whether to re-invoke with the advanced context.
//
// Cancellation of ctx, during the stagger suspend or inside op, removes
// the tracker entry so a stale attempt count cannot stagger unrelated
// future work.
func (c *Controller) Execute(ctx context.Context, reqCtx domain.RequestContext, p Policy, op Operation) error {
	key := reqCtx.Key()

	lock := c.acquire(key)
	defer c.release(key, lock)

	if entry, ok := c.tracker.Get(key); ok {
		delay := c.calc.Delay(p, entry.Attempt)
		if c.onStagger != nil {
			c.onStagger(key, delay)
		}
		c.log.Debug("staggering dispatch", "key", key, "delay", delay, "attempt", entry.Attempt)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.tracker.Remove(key)
			return ctx.Err()
		case <-timer.C:
		}
	}

	c.tracker.Record(key, Entry{Attempt: reqCtx.Attempt, RecordedAt: time.Now()})

	err := op(ctx)
	if err == nil {
		c.tracker.Remove(key)
		return nil
	}

	if ctx.Err() != nil {
		c.tracker.Remove(key)
		return err
	}

	if c.onFailure != nil {
		c.onFailure(key, reqCtx.Attempt, err)
	}
	c.log.Warn("operation failed", "key", key, "attempt", reqCtx.Attempt, "error", err)

	if p.MaxRetries != nil && reqCtx.Attempt >= *p.MaxRetries {
		c.tracker.Remove(key)
		return &ExhaustedError{Kind: reqCtx.Kind, Limit: *p.MaxRetries, Err: err}
	}

	c.tracker.Record(key, Entry{Attempt: reqCtx.Attempt + 1, RecordedAt: time.Now()})
	return &TransientError{Key: key, Attempt: reqCtx.Attempt, Err: err}
}

// acquire takes the per-key lock, creating it on first use.
func (c *Controller) acquire(key string) *keyLock {
	c.lockMu.Lock()
	l, ok := c.locks[key]
	if !ok {
		l = &keyLock{}
		c.locks[key] = l
	}
	l.refs++
	c.lockMu.Unlock()

	l.mu.Lock()
	return l
}

// release drops the per-key lock and frees it once nobody waits on it.
func (c *Controller) release(key string, l *keyLock) {
	l.mu.Unlock()

	c.lockMu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(c.locks, key)
	}
	c.lockMu.Unlock()
}
