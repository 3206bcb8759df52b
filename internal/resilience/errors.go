// Package resilience classifies failures of outbound calls so callers can
// degrade gracefully and report why.
package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// StatusError wraps an upstream failure that carried an HTTP status.
type StatusError struct {
	Err        error
	StatusCode int
}

func (e *StatusError) Error() string {
	return e.Err.Error()
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// NewStatusError wraps err with the upstream HTTP status code.
func NewStatusError(err error, statusCode int) *StatusError {
	return &StatusError{Err: err, StatusCode: statusCode}
}

// StatusCode returns the upstream HTTP status in err's chain, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Class is a coarse failure category.
type Class string

// Failure classes, most specific first.
const (
	ClassNone      Class = ""
	ClassTimeout   Class = "timeout"
	ClassCanceled  Class = "canceled"
	ClassStatus    Class = "upstream_status"
	ClassTransient Class = "network"
	ClassOther     Class = "error"
)

// Classify buckets err for logging and fallback reasons.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case errors.Is(err, context.Canceled):
		return ClassCanceled
	case StatusCode(err) != 0:
		return ClassStatus
	case isTimeout(err):
		return ClassTimeout
	case isNetworkFailure(err):
		return ClassTransient
	default:
		return ClassOther
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsTransient reports whether a later attempt could succeed: err carries a
// transient upstream status, or is a network timeout, reset, or DNS failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if code := StatusCode(err); code != 0 {
		return IsTransientHTTPStatus(code)
	}
	return isTimeout(err) || isNetworkFailure(err)
}

// isNetworkFailure matches connection resets, refusals, and DNS failures,
// including ones only visible in the message of a wrapped client error.
func isNetworkFailure(err error) bool {
	// Connection reset / refused / DNS.
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504, // Gateway Timeout
		529: // Overloaded
		return true
	default:
		return false
	}
}
