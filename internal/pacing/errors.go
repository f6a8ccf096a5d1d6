package pacing

import (
	"errors"
	"fmt"

	"github.com/vietddude/pacer/internal/core/domain"
)

// ErrInvalidPolicy is returned when a policy fails validation.
var ErrInvalidPolicy = errors.New("invalid pacing policy")

// TransientError reports a failed attempt whose retry bound has not been
// reached. The caller may re-invoke Execute with the advanced context.
type TransientError struct {
	Key     string
	Attempt int
	Err     error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("attempt %d failed for key %s: %v", e.Attempt, e.Key, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// ExhaustedError reports that the retry bound for an operation kind was
// reached. Terminal; the tracker entry for the key has been cleared.
type ExhaustedError struct {
	Kind  domain.OperationKind
	Limit int
	Err   error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted for %s operation after %d retries: %v", e.Kind, e.Limit, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}
