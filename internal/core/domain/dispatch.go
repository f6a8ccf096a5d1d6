package domain

import "time"

// DispatchStatus describes the outcome of a single dispatch attempt.
type DispatchStatus string

const (
	// DispatchSucceeded means the runner completed the action.
	DispatchSucceeded DispatchStatus = "succeeded"

	// DispatchRetrying means the attempt failed but the retry bound has
	// not been reached; the dispatch is parked for replay.
	DispatchRetrying DispatchStatus = "retrying"

	// DispatchExhausted means the retry bound was reached; terminal.
	DispatchExhausted DispatchStatus = "exhausted"

	// DispatchRejected means the event never reached the runner
	// (unparseable payload, missing page type).
	DispatchRejected DispatchStatus = "rejected"
)

// Dispatch records the outcome of one dispatch attempt for history.
type Dispatch struct {
	ID        string
	SubjectID string
	Kind      OperationKind
	Attempt   int
	PageType  string
	EventType string
	TargetURL string
	Status    DispatchStatus
	Error     string
	Duration  time.Duration
	CreatedAt time.Time
}

// FailedDispatch is a retryable dispatch parked in the replay queue.
type FailedDispatch struct {
	ID        string         `json:"id"`
	SubjectID string         `json:"subject_id"`
	Kind      OperationKind  `json:"kind"`
	Attempt   int            `json:"attempt"`
	Payload   map[string]any `json:"payload"`
	LastError string         `json:"last_error"`
	FailedAt  time.Time      `json:"failed_at"`
}
