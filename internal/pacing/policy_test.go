package pacing

import (
	"errors"
	"testing"
	"time"
)

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{
			name:   "valid exponential",
			policy: Policy{Strategy: StrategyExponential, BaseDelay: time.Second},
		},
		{
			name:   "valid linear with cap and bound",
			policy: Policy{Strategy: StrategyLinear, BaseDelay: time.Second, MaxDelay: time.Minute, MaxRetries: Retries(3)},
		},
		{
			name:   "zero retries is a valid bound",
			policy: Policy{Strategy: StrategyLinear, BaseDelay: time.Second, MaxRetries: Retries(0)},
		},
		{
			name:    "unknown strategy",
			policy:  Policy{Strategy: "fibonacci", BaseDelay: time.Second},
			wantErr: true,
		},
		{
			name:    "zero base delay",
			policy:  Policy{Strategy: StrategyLinear},
			wantErr: true,
		},
		{
			name:    "negative base delay",
			policy:  Policy{Strategy: StrategyLinear, BaseDelay: -time.Second},
			wantErr: true,
		},
		{
			name:    "negative max delay",
			policy:  Policy{Strategy: StrategyLinear, BaseDelay: time.Second, MaxDelay: -time.Second},
			wantErr: true,
		},
		{
			name:    "negative retry bound",
			policy:  Policy{Strategy: StrategyLinear, BaseDelay: time.Second, MaxRetries: Retries(-1)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidPolicy) {
				t.Errorf("Validate() = %v, want ErrInvalidPolicy", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestLookupPolicy(t *testing.T) {
	for _, name := range []string{PolicyBulk, PolicyStandard, PolicyLoadTest} {
		p, ok := LookupPolicy(name)
		if !ok {
			t.Fatalf("LookupPolicy(%q) not found", name)
		}
		if err := p.Validate(); err != nil {
			t.Errorf("preset %q fails validation: %v", name, err)
		}
	}

	if _, ok := LookupPolicy("nope"); ok {
		t.Error("LookupPolicy(nope) should not resolve")
	}

	if got := len(PresetNames()); got != 3 {
		t.Errorf("PresetNames() returned %d names, want 3", got)
	}
}
