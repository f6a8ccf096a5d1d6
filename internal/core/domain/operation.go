package domain

// OperationKind identifies the kind of storefront operation being replayed.
type OperationKind string

const (
	OpCreate          OperationKind = "create"
	OpUpdate          OperationKind = "update"
	OpCancel          OperationKind = "cancel"
	OpFrequencyChange OperationKind = "frequency-change"
	OpPause           OperationKind = "pause"
	OpResume          OperationKind = "resume"
)

// KnownOperationKinds lists every recognized operation kind.
var KnownOperationKinds = []OperationKind{
	OpCreate,
	OpUpdate,
	OpCancel,
	OpFrequencyChange,
	OpPause,
	OpResume,
}

// Valid reports whether k is a recognized operation kind.
func (k OperationKind) Valid() bool {
	for _, known := range KnownOperationKinds {
		if k == known {
			return true
		}
	}
	return false
}

// RequestContext identifies one logical stream of staggered, retried work.
//
// Contexts with different keys are fully independent and never block
// each other. Attempt is 0-based and is advanced by the caller between
// re-invocations, not by the context itself.
type RequestContext struct {
	SubjectID string
	Kind      OperationKind
	Attempt   int

	// Tag is an opaque routing/logging tag, e.g. the page type the
	// operation targets.
	Tag string
}

// Key returns the composite tracking key for this context.
// Operations sharing a key are staggered against each other.
func (c RequestContext) Key() string {
	return c.SubjectID + ":" + string(c.Kind)
}

// Next returns a copy of the context with the attempt counter advanced.
func (c RequestContext) Next() RequestContext {
	c.Attempt++
	return c
}
