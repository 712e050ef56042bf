// Package coreerr defines the tagged error kinds shared across the core
// components (spec §7): Validation, NotFound, Conflict, Transient, Fatal.
package coreerr

import (
	"errors"
	"fmt"
)

// Kind is one of the five error categories the core ever returns to a caller.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindTransient  Kind = "transient"
	KindFatal      Kind = "fatal"
)

// Error wraps an underlying cause with a stable Kind so callers can branch on
// category without inspecting message text.
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

func (e *Error) Unwrap() error { return e.Cause }

func newErr(k Kind, msg string, cause error) *Error {
	return &Error{Kind: k, Message: msg, Cause: cause}
}

func Validation(msg string, cause error) error { return newErr(KindValidation, msg, cause) }
func NotFound(msg string, cause error) error   { return newErr(KindNotFound, msg, cause) }
func Conflict(msg string, cause error) error   { return newErr(KindConflict, msg, cause) }
func Transient(msg string, cause error) error  { return newErr(KindTransient, msg, cause) }
func Fatal(msg string, cause error) error      { return newErr(KindFatal, msg, cause) }

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error. Unknown errors are reported as KindFatal so they are never
// silently treated as retryable or user-correctable.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFatal
}

// Is reports whether err's Kind equals k.
func Is(err error, k Kind) bool {
	return KindOf(err) == k
}
