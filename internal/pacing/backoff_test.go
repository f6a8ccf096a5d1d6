package pacing

import (
	"math/rand"
	"testing"
	"time"
)

func TestDelay_Linear(t *testing.T) {
	// 100ms base, linear growth, capped at 5s.
	policy := Policy{
		Strategy:   StrategyLinear,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   5000 * time.Millisecond,
		MaxRetries: Retries(3),
	}
	calc := NewCalculator()

	expected := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
		400 * time.Millisecond,
	}

	for attempt, want := range expected {
		if got := calc.Delay(policy, attempt); got != want {
			t.Errorf("Delay(linear, %d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestDelay_ExponentialCapped(t *testing.T) {
	policy := Policy{
		Strategy:   StrategyExponential,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   2000 * time.Millisecond,
		MaxRetries: Retries(5),
	}
	calc := NewCalculator()

	// Raw delay at attempt 5 is 100ms × 2^5 = 3200ms, capped to 2000ms.
	if got := calc.Delay(policy, 5); got != 2000*time.Millisecond {
		t.Errorf("Delay(exponential, 5) = %v, want 2s", got)
	}
}

func TestDelay_ExponentialMonotonic(t *testing.T) {
	policy := Policy{
		Strategy:  StrategyExponential,
		BaseDelay: 50 * time.Millisecond,
	}
	calc := NewCalculator()

	prev := calc.Delay(policy, 0)
	for attempt := 1; attempt <= 20; attempt++ {
		cur := calc.Delay(policy, attempt)
		if cur < prev {
			t.Errorf("Delay(%d) = %v < Delay(%d) = %v, want monotonic growth", attempt, cur, attempt-1, prev)
		}
		prev = cur
	}
}

func TestDelay_NeverExceedsCapWithoutJitter(t *testing.T) {
	policies := []Policy{
		{Strategy: StrategyExponential, BaseDelay: time.Second, MaxDelay: 10 * time.Second},
		{Strategy: StrategyLinear, BaseDelay: time.Second, MaxDelay: 10 * time.Second},
	}
	calc := NewCalculator()

	for _, policy := range policies {
		for attempt := 0; attempt < 64; attempt++ {
			if got := calc.Delay(policy, attempt); got > policy.MaxDelay {
				t.Errorf("Delay(%s, %d) = %v exceeds cap %v", policy.Strategy, attempt, got, policy.MaxDelay)
			}
		}
	}
}

func TestDelay_JitterBounds(t *testing.T) {
	policy := Policy{
		Strategy:  StrategyExponential,
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  2 * time.Second,
		Jitter:    true,
	}
	calc := NewCalculator()

	for attempt := 0; attempt < 10; attempt++ {
		capped := 100 * time.Millisecond << uint(attempt)
		if capped > 2*time.Second {
			capped = 2 * time.Second
		}

		for i := 0; i < 100; i++ {
			got := calc.Delay(policy, attempt)
			lo := time.Duration(float64(capped) * 0.8)
			hi := time.Duration(float64(capped) * 1.2)
			if got < lo || got > hi {
				t.Fatalf("Delay(jitter, %d) = %v outside [%v, %v]", attempt, got, lo, hi)
			}
		}
	}
}

func TestDelay_JitterCanOvershootCap(t *testing.T) {
	// Jitter is applied after capping on purpose; the realized delay may
	// land above MaxDelay by up to 20%.
	policy := Policy{
		Strategy:  StrategyExponential,
		BaseDelay: time.Second,
		MaxDelay:  time.Second,
		Jitter:    true,
	}
	calc := NewCalculatorWithSource(rand.NewSource(1))

	overshot := false
	for i := 0; i < 1000; i++ {
		if calc.Delay(policy, 10) > policy.MaxDelay {
			overshot = true
			break
		}
	}
	if !overshot {
		t.Error("expected jittered delay to overshoot MaxDelay at least once in 1000 draws")
	}
}

func TestDelay_DeterministicWithFixedSource(t *testing.T) {
	policy := Policy{
		Strategy:  StrategyExponential,
		BaseDelay: 100 * time.Millisecond,
		Jitter:    true,
	}

	a := NewCalculatorWithSource(rand.NewSource(42))
	b := NewCalculatorWithSource(rand.NewSource(42))

	for attempt := 0; attempt < 10; attempt++ {
		if da, db := a.Delay(policy, attempt), b.Delay(policy, attempt); da != db {
			t.Errorf("Delay(%d) differs across identical sources: %v vs %v", attempt, da, db)
		}
	}
}

func TestDelay_LargeAttemptDoesNotOverflow(t *testing.T) {
	policy := Policy{
		Strategy:  StrategyExponential,
		BaseDelay: time.Second,
	}
	calc := NewCalculator()

	if got := calc.Delay(policy, 500); got <= 0 {
		t.Errorf("Delay(exponential, 500) = %v, want positive clamped value", got)
	}
}
