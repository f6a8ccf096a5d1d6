// Package runner talks to the external automation runner that performs
// the actual storefront UI actions.
//
// The runner is an opaque collaborator from the pacing controller's
// point of view: it is handed a request, works for a while, and reports
// success or failure. Transport implementations here are HTTP (the
// default runner deployment) and gRPC (runners exposing a generated
// client; see GRPCRunner).
package runner

import (
	"context"

	"github.com/vietddude/pacer/internal/core/domain"
)

// Request carries one storefront action to the runner.
type Request struct {
	// Event is the normalized event the runner replays.
	Event *domain.Event `json:"event"`

	// TargetURL is the environment-specific page the action happens on.
	TargetURL string `json:"target_url"`

	// Subject and Kind echo the dispatch context for runner-side
	// logging and session affinity.
	Subject string               `json:"subject"`
	Kind    domain.OperationKind `json:"kind"`
}

// Runner performs one storefront action.
//
// Perform must honor ctx and return nil only when the action completed.
// Any error is treated as a failed attempt by the dispatcher.
type Runner interface {
	Perform(ctx context.Context, req *Request) error

	// Name identifies the runner for logs and metrics.
	Name() string
}
