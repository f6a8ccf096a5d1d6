package domain

// Event is a normalized storefront analytics event.
//
// Raw payloads arrive in wildly different shapes depending on which
// pipeline captured them; the parser flattens them into this form.
type Event struct {
	// Type is the event type, either explicit in the payload or inferred
	// from category/action patterns.
	Type string

	// PageType locates the event on the storefront (e.g. "home", "cart").
	PageType string

	Category string
	Action   string
	Label    string

	// Fields holds every normalized field extracted from the payload,
	// including the ones lifted into the named fields above.
	Fields map[string]any
}
