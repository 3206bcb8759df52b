// Package apperr defines the error taxonomy shared by the analysis pipelines
// and the HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the boundary layer.
type Kind int

const (
	// KindInternal is any failure the caller could not have prevented.
	KindInternal Kind = iota
	// KindValidation is bad input: missing fields, unusable uploads, empty filters.
	KindValidation
	// KindNotFound is a missing backing resource such as the country dataset.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error carries a caller-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Analysis failures raised by the core pipelines.
var (
	ErrNoRevenueColumn  = Validation("Unable to identify a revenue or sales column.")
	ErrInsufficientData = Validation("Not enough valid data points for clustering.")
	ErrNoUsableRows     = Validation("No usable market rows remain after cleaning.")
	ErrNoRegionalMatch  = Validation("No countries match the selected regions.")
)

// Validation returns a client-fault error.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// Validationf formats a client-fault error.
func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

// ValidationWrap returns a client-fault error that keeps the underlying cause.
func ValidationWrap(err error, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Cause: err}
}

// NotFound returns a missing-resource error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Internal wraps an unexpected failure.
func Internal(err error, message string) *Error {
	return &Error{Kind: KindInternal, Message: message, Cause: err}
}

// KindOf returns the kind of the first *Error in err's chain. Errors outside
// the taxonomy are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Status maps err to an HTTP status code.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller-facing message. Internal errors never leak
// their cause.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "Unexpected error while processing the request."
}
