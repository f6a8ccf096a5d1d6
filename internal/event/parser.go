// Package event normalizes raw storefront analytics payloads.
//
// Captured events arrive in many shapes: flat property bags, nested
// envelope objects, arrays of hits. The parser flattens any of them
// into a domain.Event, mapping field-name variants onto canonical
// names and inferring the event type when the payload does not carry
// one explicitly.
package event

import (
	"errors"
	"strings"

	"github.com/vietddude/pacer/internal/core/domain"
)

// ErrMissingPageType is returned when a payload carries no page type
// anywhere in its structure. Page type is the one required field.
var ErrMissingPageType = errors.New("page_type is required but not found in payload")

// canonical maps lowercase field-name variants to canonical names.
// Unlisted names are dropped from the normalized view.
var canonical = map[string]string{
	"page_type": "page_type",
	"pagetype":  "page_type",
	"page-type": "page_type",
	"page":      "page_type",
	"type":      "page_type",

	"event":      "event",
	"eventtype":  "eventType",
	"event_type": "eventType",
	"event-type": "eventType",

	"eventcategory":  "eventCategory",
	"event_category": "eventCategory",
	"event-category": "eventCategory",
	"category":       "eventCategory",

	"eventaction":  "eventAction",
	"event_action": "eventAction",
	"event-action": "eventAction",
	"action":       "eventAction",

	"eventlabel":  "eventLabel",
	"event_label": "eventLabel",
	"event-label": "eventLabel",
	"label":       "eventLabel",
	"name":        "eventLabel",

	"timestamp":  "timestamp",
	"time":       "timestamp",
	"userid":     "userId",
	"user_id":    "userId",
	"sessionid":  "sessionId",
	"session_id": "sessionId",
	"url":        "url",
	"path":       "path",
	"value":      "value",
}

// Parse normalizes a raw payload of any nesting depth into an Event.
//
// The payload must contain a page type somewhere in its structure;
// everything else is optional. The event type is taken from a top-level
// "event" field when present, then from flattened event/eventType
// fields, and inferred from category/action patterns as a last resort.
func Parse(raw map[string]any) (*domain.Event, error) {
	pageType := ExtractPageType(raw)
	if pageType == "" {
		return nil, ErrMissingPageType
	}

	fields := Flatten(raw)

	eventType := ""
	if v, ok := raw["event"]; ok {
		eventType = toString(v)
	} else if v, ok := fields["event"]; ok {
		eventType = toString(v)
	} else if v, ok := fields["eventType"]; ok {
		eventType = toString(v)
	} else {
		eventType = InferType(fields)
	}
	if strings.EqualFold(eventType, "tab") {
		eventType = TypeTabNavigation
	}

	return &domain.Event{
		Type:     eventType,
		PageType: pageType,
		Category: toString(fields["eventCategory"]),
		Action:   toString(fields["eventAction"]),
		Label:    toString(fields["eventLabel"]),
		Fields:   fields,
	}, nil
}

// ExtractPageType searches any JSON structure depth-first for a page
// type field. Only the exact page_type spellings count here; this is
// the validation gate, stricter than the normalization table.
func ExtractPageType(data any) string {
	switch v := data.(type) {
	case map[string]any:
		for key, value := range v {
			switch strings.ToLower(key) {
			case "page_type", "pagetype", "page-type":
				return toString(value)
			}
		}
		for _, value := range v {
			if found := ExtractPageType(value); found != "" {
				return found
			}
		}
	case []any:
		for _, item := range v {
			if found := ExtractPageType(item); found != "" {
				return found
			}
		}
	}
	return ""
}

// Flatten walks a payload of any depth and collects every recognized
// field under its canonical name. Once a canonical name has a value,
// duplicate spellings elsewhere in the structure do not overwrite it.
func Flatten(data any) map[string]any {
	fields := make(map[string]any)
	flattenInto(data, fields)
	return fields
}

func flattenInto(data any, fields map[string]any) {
	switch v := data.(type) {
	case map[string]any:
		for key, value := range v {
			name, ok := canonical[strings.ToLower(key)]
			if ok {
				if _, seen := fields[name]; !seen {
					if scalar, ok := scalarValue(value); ok {
						fields[name] = scalar
					}
				}
			}
			flattenInto(value, fields)
		}
	case []any:
		for _, item := range v {
			flattenInto(item, fields)
		}
	}
}

// scalarValue unwraps value to a scalar if possible. Single-entry maps
// are unwrapped one level, matching how some capture pipelines wrap
// scalars in {"value": x} envelopes.
func scalarValue(value any) (any, bool) {
	switch v := value.(type) {
	case string, bool, int, int64, float64:
		return v, true
	case map[string]any:
		if len(v) == 1 {
			for _, inner := range v {
				switch inner.(type) {
				case string, bool, int, int64, float64:
					return inner, true
				}
			}
		}
	}
	return nil, false
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
