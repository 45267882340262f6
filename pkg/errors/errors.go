// Package errors provides structured error types for gridkit.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library, CLI and HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The layout engine never treats these as fatal. Each code names one
// recoverable condition:
//   - CONFIGURATION_MISSING: no layout for a page/breakpoint, default materialised
//   - UNKNOWN_WIDGET_ID: a mutation targeted an id absent from the layout
//   - DRAG_TARGET_INVALID: a drop landed outside the grid, drag cancelled
//   - PLACEMENT_EXHAUSTED: placement search fell back to the bottom row
//   - GESTURE_IN_PROGRESS / NO_GESTURE: gesture state machine violations
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnknownWidget, "widget %q not in layout", id)
//	if errors.Is(err, errors.ErrCodeUnknownWidget) {
//	    // Report and continue
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeStorage, origErr, "save layout %s", key)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Layout engine conditions
	ErrCodeConfigurationMissing Code = "CONFIGURATION_MISSING"
	ErrCodeUnknownWidget        Code = "UNKNOWN_WIDGET_ID"
	ErrCodeDragTargetInvalid    Code = "DRAG_TARGET_INVALID"
	ErrCodePlacementExhausted   Code = "PLACEMENT_EXHAUSTED"
	ErrCodeOverlap              Code = "OVERLAP"

	// Gesture state machine
	ErrCodeGestureInProgress Code = "GESTURE_IN_PROGRESS"
	ErrCodeNoGesture         Code = "NO_GESTURE"

	// Input validation errors
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidBreakpoint Code = "INVALID_BREAKPOINT"
	ErrCodeInvalidPage       Code = "INVALID_PAGE"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Persistence errors
	ErrCodeStorage Code = "STORAGE_ERROR"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Degraded reports whether err describes an outcome that still produced a
// result the caller should apply (placement fallback, recovered defaults).
func Degraded(err error) bool {
	switch GetCode(err) {
	case ErrCodePlacementExhausted, ErrCodeConfigurationMissing:
		return true
	}
	return false
}
