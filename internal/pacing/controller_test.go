package pacing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/pacer/internal/core/domain"
)

var errBoom = errors.New("boom")

func testController(tracker Tracker) *Controller {
	return NewController(Config{Tracker: tracker})
}

func quickPolicy(maxRetries *int) Policy {
	return Policy{
		Strategy:   StrategyLinear,
		BaseDelay:  time.Millisecond,
		MaxRetries: maxRetries,
	}
}

func TestExecute_FreshKeyDispatchesImmediately(t *testing.T) {
	tracker := NewMemoryTracker()
	ctrl := testController(tracker)

	staggered := false
	ctrl.SetStaggerCallback(func(string, time.Duration) { staggered = true })

	reqCtx := domain.RequestContext{SubjectID: "cust-1", Kind: domain.OpCreate}
	err := ctrl.Execute(context.Background(), reqCtx, quickPolicy(nil), func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() = %v, want nil", err)
	}
	if staggered {
		t.Error("fresh key should dispatch with zero stagger delay")
	}
	if _, ok := tracker.Get(reqCtx.Key()); ok {
		t.Error("tracker entry should be cleared on success")
	}
}

func TestExecute_SecondCallIsStaggered(t *testing.T) {
	tracker := NewMemoryTracker()
	ctrl := testController(tracker)

	var delays []time.Duration
	ctrl.SetStaggerCallback(func(_ string, d time.Duration) { delays = append(delays, d) })

	reqCtx := domain.RequestContext{SubjectID: "cust-1", Kind: domain.OpUpdate}
	policy := quickPolicy(Retries(5))

	// First call fails, leaving an entry with attempt 1.
	err := ctrl.Execute(context.Background(), reqCtx, policy, func(ctx context.Context) error {
		return errBoom
	})
	var transient *TransientError
	if !errors.As(err, &transient) {
		t.Fatalf("Execute() = %v, want TransientError", err)
	}

	// Second call sees the entry and staggers.
	err = ctrl.Execute(context.Background(), reqCtx.Next(), policy, func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("second Execute() = %v, want nil", err)
	}
	if len(delays) != 1 {
		t.Fatalf("stagger callback fired %d times, want 1", len(delays))
	}
	// Entry held attempt 1 → linear delay of base × 2.
	if want := 2 * time.Millisecond; delays[0] != want {
		t.Errorf("stagger delay = %v, want %v", delays[0], want)
	}
}

func TestExecute_TransientThenExhausted(t *testing.T) {
	tracker := NewMemoryTracker()
	ctrl := testController(tracker)

	reqCtx := domain.RequestContext{SubjectID: "cust-1", Kind: domain.OpCancel}
	policy := quickPolicy(Retries(2))
	op := func(ctx context.Context) error { return errBoom }

	// Attempts 0 and 1 are transient.
	for attempt := 0; attempt < 2; attempt++ {
		err := ctrl.Execute(context.Background(), reqCtx, policy, op)
		var transient *TransientError
		if !errors.As(err, &transient) {
			t.Fatalf("attempt %d: got %v, want TransientError", attempt, err)
		}
		if transient.Attempt != attempt {
			t.Errorf("attempt %d: TransientError.Attempt = %d", attempt, transient.Attempt)
		}
		entry, ok := tracker.Get(reqCtx.Key())
		if !ok || entry.Attempt != attempt+1 {
			t.Errorf("attempt %d: tracker entry = (%v, %v), want attempt %d", attempt, entry, ok, attempt+1)
		}
		reqCtx = reqCtx.Next()
	}

	// Attempt 2 hits the bound.
	err := ctrl.Execute(context.Background(), reqCtx, policy, op)
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("attempt 2: got %v, want ExhaustedError", err)
	}
	if exhausted.Kind != domain.OpCancel || exhausted.Limit != 2 {
		t.Errorf("ExhaustedError = {Kind: %s, Limit: %d}, want {cancel, 2}", exhausted.Kind, exhausted.Limit)
	}
	if !errors.Is(err, errBoom) {
		t.Error("ExhaustedError should wrap the operation error")
	}
	if _, ok := tracker.Get(reqCtx.Key()); ok {
		t.Error("tracker entry must be absent after exhaustion")
	}
}

func TestExecute_IndependentKeysDoNotBlock(t *testing.T) {
	tracker := NewMemoryTracker()
	ctrl := testController(tracker)

	// Leave a large pending backoff for customer A.
	slow := Policy{Strategy: StrategyLinear, BaseDelay: 10 * time.Second, MaxRetries: Retries(5)}
	ctxA := domain.RequestContext{SubjectID: "customer-A", Kind: domain.OpUpdate}
	_ = ctrl.Execute(context.Background(), ctxA, slow, func(ctx context.Context) error {
		return errBoom
	})

	// Customer B must dispatch immediately despite A's entry.
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctxB := domain.RequestContext{SubjectID: "customer-B", Kind: domain.OpUpdate}
		if err := ctrl.Execute(context.Background(), ctxB, slow, func(ctx context.Context) error {
			return nil
		}); err != nil {
			t.Errorf("customer-B Execute() = %v, want nil", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("customer-B blocked behind customer-A's backoff window")
	}
}

func TestExecute_AtMostOneEntryPerKey(t *testing.T) {
	tracker := NewMemoryTracker()
	ctrl := testController(tracker)

	policy := quickPolicy(Retries(100))
	reqCtx := domain.RequestContext{SubjectID: "cust-1", Kind: domain.OpResume}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := reqCtx
			c.Attempt = i
			_ = ctrl.Execute(context.Background(), c, policy, func(ctx context.Context) error {
				if i%2 == 0 {
					return errBoom
				}
				return nil
			})
		}(i)
	}
	wg.Wait()

	if tracker.Len() > 1 {
		t.Errorf("tracker holds %d entries for one key, want at most 1", tracker.Len())
	}
}

func TestExecute_CancellationDuringStaggerClearsEntry(t *testing.T) {
	tracker := NewMemoryTracker()
	ctrl := testController(tracker)

	policy := Policy{Strategy: StrategyLinear, BaseDelay: 10 * time.Second, MaxRetries: Retries(5)}
	reqCtx := domain.RequestContext{SubjectID: "cust-1", Kind: domain.OpPause}

	// Seed a failed attempt so the next call staggers.
	_ = ctrl.Execute(context.Background(), reqCtx, policy, func(ctx context.Context) error {
		return errBoom
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := ctrl.Execute(ctx, reqCtx.Next(), policy, func(ctx context.Context) error {
		t.Error("operation should not run after cancellation")
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Execute() = %v, want deadline exceeded", err)
	}
	if _, ok := tracker.Get(reqCtx.Key()); ok {
		t.Error("cancellation must clear the tracker entry")
	}
}

func TestExecute_CancellationDuringOperationClearsEntry(t *testing.T) {
	tracker := NewMemoryTracker()
	ctrl := testController(tracker)

	ctx, cancel := context.WithCancel(context.Background())
	reqCtx := domain.RequestContext{SubjectID: "cust-1", Kind: domain.OpCreate}

	err := ctrl.Execute(ctx, reqCtx, quickPolicy(Retries(5)), func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() = %v, want context.Canceled", err)
	}
	if _, ok := tracker.Get(reqCtx.Key()); ok {
		t.Error("cancellation must clear the tracker entry")
	}
}

func TestExecute_UnlimitedRetriesNeverExhaust(t *testing.T) {
	tracker := NewMemoryTracker()
	ctrl := testController(tracker)

	reqCtx := domain.RequestContext{SubjectID: "cust-1", Kind: domain.OpUpdate}
	policy := quickPolicy(nil)

	for i := 0; i < 10; i++ {
		err := ctrl.Execute(context.Background(), reqCtx, policy, func(ctx context.Context) error {
			return errBoom
		})
		var transient *TransientError
		if !errors.As(err, &transient) {
			t.Fatalf("attempt %d: got %v, want TransientError", i, err)
		}
		reqCtx = reqCtx.Next()
	}
}
