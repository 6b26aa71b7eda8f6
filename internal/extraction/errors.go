package extraction

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures for the caller. The HTTP layer maps
// kinds to status semantics; this package never picks status codes itself.
type Kind int

const (
	// KindInvalidInput: the image is unreadable, an unsupported format, or
	// below the minimum resolution. Never retried, no model call is made.
	KindInvalidInput Kind = iota + 1

	// KindValidationFailure: the model's output was missing required fields
	// or otherwise malformed after all retries. The receipt may well have
	// data; extraction just could not produce a trustworthy result.
	KindValidationFailure

	// KindTransientFailure: timeouts, rate limits and 5xx-class responses
	// from the model service, surfaced only once retries are exhausted.
	KindTransientFailure

	// KindFatalFailure: non-retryable service errors (auth, quota, protocol).
	KindFatalFailure
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindValidationFailure:
		return "validation_failure"
	case KindTransientFailure:
		return "transient_service_failure"
	case KindFatalFailure:
		return "fatal_service_failure"
	default:
		return "unknown"
	}
}

// Error carries a failure kind alongside the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the failure kind from err, or 0 if err is not a pipeline
// failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
