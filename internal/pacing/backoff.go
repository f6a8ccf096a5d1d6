package pacing

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Calculator computes backoff delays from a policy and an attempt number.
//
// It is pure apart from its random source: given a fixed source the same
// inputs always produce the same delay. Safe for concurrent use.
type Calculator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewCalculator creates a calculator with a time-seeded random source.
func NewCalculator() *Calculator {
	return NewCalculatorWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewCalculatorWithSource creates a calculator with a caller-supplied
// random source, for deterministic jitter in tests.
func NewCalculatorWithSource(src rand.Source) *Calculator {
	return &Calculator{rnd: rand.New(src)}
}

// Delay returns the backoff delay for a 0-based attempt number.
//
// Algorithm:
//   - exponential: base × 2^attempt
//   - linear: base × (attempt + 1)
//   - cap to MaxDelay when set
//   - jitter multiplies the capped delay by a uniform factor in [0.8, 1.2]
//
// Jitter is applied after capping, so the realized delay may overshoot
// MaxDelay by up to 20%. The overshoot is bounded and intentional.
func (c *Calculator) Delay(p Policy, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	var delay float64
	switch p.Strategy {
	case StrategyLinear:
		delay = float64(p.BaseDelay) * float64(attempt+1)
	default:
		delay = float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	}

	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	if p.Jitter {
		delay *= 0.8 + 0.4*c.float64()
	}

	// Exponential growth overflows float → duration conversion for very
	// large attempts; MaxRetries is the practical ceiling, this is the
	// hard one.
	if delay > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(delay)
}

func (c *Calculator) float64() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rnd.Float64()
}
