package event

import "strings"

// Well-known inferred event types.
const (
	TypeNavigationClicked = "Navigation Clicked"
	TypeButtonClicked     = "Button Clicked"
	TypeElementClicked    = "Element Clicked"
	TypeElementViewed     = "Element Viewed"
	TypeFormSubmitted     = "Form Submitted"
	TypeElementHovered    = "Element Hovered"
	TypeMiniCartViewed    = "Mini-Cart Viewed"
	TypeMiniCartAction    = "Mini-Cart Action"
	TypeGenericAction     = "Generic Action"
	TypeTabNavigation     = "Tab Navigation"
)

// InferType guesses the event type from category/action patterns when
// the payload carries no explicit event field.
func InferType(fields map[string]any) string {
	category := strings.ToLower(toString(fields["eventCategory"]))
	action := strings.ToLower(toString(fields["eventAction"]))

	switch {
	case strings.Contains(action, "click"):
		if containsAny(category, "nav", "header", "menu", "mini-cart") {
			return TypeNavigationClicked
		}
		if containsAny(category, "button", "btn") {
			return TypeButtonClicked
		}
		return TypeElementClicked

	case strings.Contains(action, "view"):
		return TypeElementViewed

	case strings.Contains(action, "submit") || strings.Contains(category, "form"):
		return TypeFormSubmitted

	case strings.Contains(action, "hover") || strings.Contains(action, "mouseover"):
		return TypeElementHovered

	case category == "mini-cart":
		return TypeMiniCartAction
	}

	if category != "" {
		return "Custom Action: " + category
	}
	if action != "" {
		return "Custom Action: " + action
	}
	return TypeGenericAction
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
