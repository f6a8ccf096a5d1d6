package pacing

import (
	"fmt"
	"time"
)

// Strategy selects the delay-growth function of a policy.
type Strategy string

const (
	// StrategyExponential grows the delay as base × 2^attempt.
	StrategyExponential Strategy = "exponential"

	// StrategyLinear grows the delay as base × (attempt + 1).
	StrategyLinear Strategy = "linear"
)

// Policy describes backoff behavior for one class of operations.
//
// A policy is immutable once validated and is shared read-only across
// every key using it.
type Policy struct {
	Strategy  Strategy      `yaml:"strategy"`
	BaseDelay time.Duration `yaml:"base_delay"`

	// MaxDelay caps the computed delay. Zero means uncapped.
	MaxDelay time.Duration `yaml:"max_delay"`

	// Jitter multiplies the capped delay by a uniform factor in
	// [0.8, 1.2]. Applied after capping, so the realized delay can
	// slightly overshoot MaxDelay.
	Jitter bool `yaml:"jitter"`

	// MaxRetries bounds the number of retries. Nil means unlimited.
	MaxRetries *int `yaml:"max_retries"`
}

// Validate reports whether the policy is well formed. Malformed policies
// are rejected here, never at dispatch time.
func (p Policy) Validate() error {
	switch p.Strategy {
	case StrategyExponential, StrategyLinear:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidPolicy, p.Strategy)
	}
	if p.BaseDelay <= 0 {
		return fmt.Errorf("%w: base delay must be positive, got %v", ErrInvalidPolicy, p.BaseDelay)
	}
	if p.MaxDelay < 0 {
		return fmt.Errorf("%w: max delay must not be negative, got %v", ErrInvalidPolicy, p.MaxDelay)
	}
	if p.MaxRetries != nil && *p.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative, got %d", ErrInvalidPolicy, *p.MaxRetries)
	}
	return nil
}

// Retries is a convenience helper for populating Policy.MaxRetries.
func Retries(n int) *int {
	return &n
}

// Named presets, ordered by aggressiveness.
const (
	// PolicyBulk spaces bulk batch work gently with linear growth.
	PolicyBulk = "bulk"

	// PolicyStandard retries single calls with fast exponential growth.
	PolicyStandard = "standard"

	// PolicyLoadTest keeps delays tightly bounded for load-test runs.
	PolicyLoadTest = "loadtest"
)

var presets = map[string]Policy{
	PolicyBulk: {
		Strategy:   StrategyLinear,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Jitter:     true,
		MaxRetries: Retries(5),
	},
	PolicyStandard: {
		Strategy:   StrategyExponential,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   15 * time.Second,
		Jitter:     true,
		MaxRetries: Retries(4),
	},
	PolicyLoadTest: {
		Strategy:   StrategyExponential,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Jitter:     false,
		MaxRetries: Retries(2),
	},
}

// LookupPolicy returns the named preset policy.
func LookupPolicy(name string) (Policy, bool) {
	p, ok := presets[name]
	return p, ok
}

// PresetNames returns the names of all preset policies.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	return names
}
