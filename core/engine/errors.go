package engine

import (
	"errors"
	"fmt"
)

// Kind classifies engine errors so callers can decide how to react without
// parsing reason strings.
type Kind string

const (
	// KindNotFound means a trip, vehicle or driver id did not resolve.
	KindNotFound Kind = "not_found"
	// KindInvalidArgument means the request itself was malformed.
	KindInvalidArgument Kind = "invalid_argument"
	// KindEligibility means a dispatch rule rejected the trip/resource
	// pairing. Never retried automatically.
	KindEligibility Kind = "eligibility_failed"
	// KindInvalidTransition means the trip is not in a state that accepts
	// the requested event.
	KindInvalidTransition Kind = "invalid_transition"
	// KindConflict means the operation lost a concurrent race. Nothing was
	// mutated, so the whole operation is safe to retry from scratch.
	KindConflict Kind = "resource_conflict"
	// KindStorage means the persistence gateway failed. Fatal to the
	// request; the engine performs no local recovery.
	KindStorage Kind = "storage_unavailable"
)

// Error is a structured engine error carrying a kind and a human-readable
// reason.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two engine errors by kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

func errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Reason: err.Error(), Err: err}
}

// KindOf returns the kind of an engine error, or the empty string for
// foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
