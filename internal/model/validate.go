package model

import (
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ValidationError) add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// ValidateEvent checks an Event for constraint violations before it is
// written to the store. It returns a *ValidationError if any rules fail.
func ValidateEvent(ev *Event) error {
	var ve ValidationError

	title := strings.TrimSpace(ev.Title)
	if title == "" {
		ve.add("title", "is required")
	} else if len([]rune(title)) > 500 {
		ve.add("title", "must be 500 characters or fewer")
	}

	if strings.TrimSpace(ev.Slug) == "" {
		ve.add("slug", "is required")
	}

	if ev.StartDate.IsZero() {
		ve.add("startDate", "is required")
	}
	if ev.EndDate.IsZero() {
		ve.add("endDate", "is required")
	}
	if !ev.StartDate.IsZero() && !ev.EndDate.IsZero() && ev.EndDate.Before(ev.StartDate) {
		ve.add("endDate", "must not be before startDate")
	}

	if b, ok := ev.Content.(Blocks); ok {
		if err := checkKeys(b); err != "" {
			ve.add("content", err)
		}
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// checkKeys returns a message when a block or child lacks a key or a key is
// repeated.
func checkKeys(blocks Blocks) string {
	seen := make(map[string]bool)
	use := func(k string) string {
		if k == "" {
			return "every block and child must have a key"
		}
		if seen[k] {
			return "duplicate key " + k
		}
		seen[k] = true
		return ""
	}
	for _, b := range blocks {
		if msg := use(b.Key); msg != "" {
			return msg
		}
		for _, c := range b.Children {
			if msg := use(c.Key); msg != "" {
				return msg
			}
		}
	}
	return ""
}
