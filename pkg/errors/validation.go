package errors

import (
	"strings"
	"unicode"
)

// maxIDLength bounds widget and page identifiers.
const maxIDLength = 128

// ValidateWidgetID validates a widget identifier supplied by a host.
// Widget ids are opaque to the engine but end up in storage keys, log lines
// and URL paths, so control characters and path separators are rejected.
func ValidateWidgetID(id string) error {
	return validateID(ErrCodeInvalidInput, "widget id", id)
}

// ValidatePageID validates a page identifier used to key the shared registry.
func ValidatePageID(id string) error {
	return validateID(ErrCodeInvalidPage, "page id", id)
}

func validateID(code Code, what, id string) error {
	if id == "" {
		return New(code, "%s cannot be empty", what)
	}

	if len(id) > maxIDLength {
		return New(code, "%s too long (max %d characters)", what, maxIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(code, "%s contains invalid characters", what)
		}
	}

	for _, pattern := range []string{"..", "/", "\\", "\x00"} {
		if strings.Contains(id, pattern) {
			return New(code, "%s contains invalid characters: %q", what, pattern)
		}
	}

	return nil
}
