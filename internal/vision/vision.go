// Package vision gives the extraction pipeline a narrow capability interface
// over a vision-capable language model. Backends are swappable; the pipeline
// only ever sees Generate and the transient/fatal error split.
package vision

import (
	"context"
	"errors"
)

// Request is one outbound model call. ImagePNG, when set, must already be
// PNG-encoded; backends tag it with the image/png media type.
type Request struct {
	System   string
	Prompt   string
	ImagePNG []byte
}

// Client is implemented by each model backend. Implementations hold no
// mutable per-call state and are safe for concurrent use.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
	Close() error
}

// transientError marks failures worth retrying: rate limits, 5xx responses,
// timeouts. Everything else (auth, quota, malformed request) is fatal.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err so IsTransient reports true for it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err came from a retryable service condition.
func IsTransient(err error) bool {
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// retryableStatus reports whether an HTTP-style status code from a model
// service should be treated as transient.
func retryableStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}
