package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for classification via errors.Is().
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrStorage    = errors.New("storage error")
)

// Error is a structured orchestration error. Every error carries the
// caller-supplied origin for attribution in responses and logs.
type Error struct {
	Sentinel error  // wrapped sentinel for errors.Is() classification
	Message  string // human-readable message
	Origin   string // caller-supplied origin of the failing request
	Cause    error  // underlying error, if any
}

// Error returns the human-readable error message
func (e *Error) Error() string {
	if e.Origin != "" {
		return fmt.Sprintf("%s (origin: %s)", e.Message, e.Origin)
	}
	return e.Message
}

// Unwrap returns the sentinel error for errors.Is() classification
func (e *Error) Unwrap() error {
	return e.Sentinel
}

// Validation creates a bad-input error
func Validation(origin, format string, args ...interface{}) error {
	return &Error{
		Sentinel: ErrValidation,
		Message:  fmt.Sprintf(format, args...),
		Origin:   origin,
	}
}

// Conflict creates a state-conflict error (already locked, duplicate subscription)
func Conflict(origin, format string, args ...interface{}) error {
	return &Error{
		Sentinel: ErrConflict,
		Message:  fmt.Sprintf(format, args...),
		Origin:   origin,
	}
}

// Forbidden creates an ownership-violation error
func Forbidden(origin, format string, args ...interface{}) error {
	return &Error{
		Sentinel: ErrForbidden,
		Message:  fmt.Sprintf(format, args...),
		Origin:   origin,
	}
}

// Storage wraps a store failure. Treated as fatal, never retried inline.
func Storage(origin, op string, cause error) error {
	return &Error{
		Sentinel: ErrStorage,
		Message:  fmt.Sprintf("%s: %v", op, cause),
		Origin:   origin,
		Cause:    cause,
	}
}

// OriginOf extracts the origin carried by an error, if any
func OriginOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Origin
	}
	return ""
}
