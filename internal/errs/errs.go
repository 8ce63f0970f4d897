// Package errs defines the classified error values used across the index
// pipeline. Errors carry a Kind so callers can decide between fatal
// configuration problems, recoverable data gaps, and numeric degeneracies
// without string matching.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error into one of the pipeline's failure categories.
type Kind string

const (
	// KindConfiguration marks invalid user configuration: bad boundary level,
	// out-of-range year, unknown indicator names, include+exclude conflicts.
	// Configuration errors are fatal and surface before any work is done.
	KindConfiguration Kind = "configuration"

	// KindDataUnavailable marks a cell the registry could not supply at any
	// hierarchy level after full escalation.
	KindDataUnavailable Kind = "data_unavailable"

	// KindNumericDegeneracy marks conditions that break the numeric stages:
	// zero-variance indicators, zero denominators, empty factor sets.
	KindNumericDegeneracy Kind = "numeric_degeneracy"

	// KindRegistry marks transport-level failures talking to the external
	// statistical registry.
	KindRegistry Kind = "registry"
)

// Error is a classified pipeline error.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error's Kind. A target with an
// empty Kind matches any classified error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == "" || t.Kind == e.Kind
}

// Configuration creates a fatal configuration error.
func Configuration(op, format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Message: fmt.Sprintf(format, args...)}
}

// DataUnavailable creates an error for a value the registry cannot supply.
func DataUnavailable(op, format string, args ...any) *Error {
	return &Error{Kind: KindDataUnavailable, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Degeneracy creates a numeric degeneracy error.
func Degeneracy(op, format string, args ...any) *Error {
	return &Error{Kind: KindNumericDegeneracy, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Registry wraps a transport failure against the statistical registry.
func Registry(op string, err error) *Error {
	return &Error{Kind: KindRegistry, Op: op, Message: "registry request failed", Err: err}
}

// IsKind reports whether err (or anything it wraps) is classified as k.
func IsKind(err error, k Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == k
}
