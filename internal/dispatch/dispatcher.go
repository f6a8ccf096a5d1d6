// Package dispatch wires event parsing, page mapping, pacing and the
// runner into the replay pipeline.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/pacer/internal/core/domain"
	"github.com/vietddude/pacer/internal/event"
	"github.com/vietddude/pacer/internal/infra/storage"
	"github.com/vietddude/pacer/internal/metrics"
	"github.com/vietddude/pacer/internal/pacing"
	"github.com/vietddude/pacer/internal/pagemap"
	"github.com/vietddude/pacer/internal/runner"
)

// Request carries one event through the pipeline.
type Request struct {
	SubjectID string
	Kind      domain.OperationKind

	// Attempt is 0 for fresh requests; the replayer passes the parked
	// attempt count when re-driving a failed dispatch.
	Attempt int

	// Payload is the raw event in whatever shape it was captured.
	Payload map[string]any

	// Policy overrides the dispatcher's default policy when set.
	// Must be validated by the caller.
	Policy *pacing.Policy
}

// Dispatcher drives events through parse → resolve → paced runner call
// and records every outcome.
type Dispatcher struct {
	controller *pacing.Controller
	policy     pacing.Policy
	runner     runner.Runner
	pages      *pagemap.Mapper
	history    storage.DispatchRepository
	queue      storage.FailedDispatchRepository
	log        *slog.Logger
}

// Config holds dispatcher dependencies.
type Config struct {
	Controller *pacing.Controller
	Policy     pacing.Policy
	Runner     runner.Runner
	Pages      *pagemap.Mapper
	History    storage.DispatchRepository
	Queue      storage.FailedDispatchRepository
	Logger     *slog.Logger
}

// New creates a dispatcher and hooks pacing observability into metrics.
func New(cfg Config) *Dispatcher {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	cfg.Controller.SetStaggerCallback(func(key string, delay time.Duration) {
		metrics.StaggerDelaySeconds.Observe(delay.Seconds())
		log.Info("staggering dispatch", "key", key, "delay", delay)
	})
	cfg.Controller.SetFailureCallback(func(key string, attempt int, err error) {
		log.Warn("dispatch attempt failed", "key", key, "attempt", attempt, "error", err)
	})

	return &Dispatcher{
		controller: cfg.Controller,
		policy:     cfg.Policy,
		runner:     cfg.Runner,
		pages:      cfg.Pages,
		history:    cfg.History,
		queue:      cfg.Queue,
		log:        log,
	}
}

// Dispatch runs one event through the pipeline.
//
// The returned error mirrors the recorded status: nil on success,
// *pacing.TransientError when the attempt failed but was parked for
// replay, *pacing.ExhaustedError when the retry bound was reached, and
// a parse error when the payload never reached the runner.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (*domain.Dispatch, error) {
	record := &domain.Dispatch{
		ID:        uuid.NewString(),
		SubjectID: req.SubjectID,
		Kind:      req.Kind,
		Attempt:   req.Attempt,
		CreatedAt: time.Now(),
	}

	ev, err := event.Parse(req.Payload)
	if err != nil {
		record.Status = domain.DispatchRejected
		record.Error = err.Error()
		d.save(ctx, record)
		metrics.EventsRejectedTotal.Inc()
		metrics.DispatchesTotal.WithLabelValues(string(req.Kind), string(record.Status)).Inc()
		return record, err
	}

	targetURL, ok := d.pages.URL(ev.PageType)
	if !ok {
		// Unmapped page types land on the storefront root.
		targetURL = d.pages.BaseURL()
	}

	record.PageType = ev.PageType
	record.EventType = ev.Type
	record.TargetURL = targetURL

	reqCtx := domain.RequestContext{
		SubjectID: req.SubjectID,
		Kind:      req.Kind,
		Attempt:   req.Attempt,
		Tag:       ev.PageType,
	}

	policy := d.policy
	if req.Policy != nil {
		policy = *req.Policy
	}

	start := time.Now()
	execErr := d.controller.Execute(ctx, reqCtx, policy, func(ctx context.Context) error {
		return d.runner.Perform(ctx, &runner.Request{
			Event:     ev,
			TargetURL: targetURL,
			Subject:   req.SubjectID,
			Kind:      req.Kind,
		})
	})
	record.Duration = time.Since(start)

	switch {
	case execErr == nil:
		record.Status = domain.DispatchSucceeded

	case isTransient(execErr):
		record.Status = domain.DispatchRetrying
		record.Error = execErr.Error()
		d.park(ctx, req, execErr)

	default:
		record.Status = domain.DispatchExhausted
		record.Error = execErr.Error()
	}

	d.save(ctx, record)
	metrics.DispatchesTotal.WithLabelValues(string(req.Kind), string(record.Status)).Inc()
	metrics.DispatchDuration.WithLabelValues(string(req.Kind)).Observe(record.Duration.Seconds())

	return record, execErr
}

func isTransient(err error) bool {
	var transient *pacing.TransientError
	return errors.As(err, &transient)
}

// park queues the failed dispatch for replay with the attempt advanced.
func (d *Dispatcher) park(ctx context.Context, req *Request, cause error) {
	fd := &domain.FailedDispatch{
		ID:        uuid.NewString(),
		SubjectID: req.SubjectID,
		Kind:      req.Kind,
		Attempt:   req.Attempt + 1,
		Payload:   req.Payload,
		LastError: cause.Error(),
		FailedAt:  time.Now(),
	}

	if err := d.queue.Add(ctx, fd); err != nil {
		d.log.Error("failed to park dispatch for replay", "subject", req.SubjectID, "kind", req.Kind, "error", err)
		return
	}

	if depth, err := d.queue.Depth(ctx); err == nil {
		metrics.ReplayQueueDepth.Set(float64(depth))
	}
}

func (d *Dispatcher) save(ctx context.Context, record *domain.Dispatch) {
	if err := d.history.Save(ctx, record); err != nil {
		d.log.Error("failed to save dispatch record", "id", record.ID, "error", err)
	}
}
