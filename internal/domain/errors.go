package domain

import (
	"errors"
	"fmt"
)

// Reconciliation failure taxonomy. Sentinels are wrapped with context by the
// callers, so always check with errors.Is.
var (
	// ErrCapabilityUnavailable means the admin handle lacks the resource
	// capability the selected strategy needs. Not retryable.
	ErrCapabilityUnavailable = errors.New("admin capability unavailable")

	// ErrNoMainTheme means the shop has no theme with role "main". This is a
	// merchant-side configuration state, not retryable.
	ErrNoMainTheme = errors.New("no main theme found")

	// ErrNoHeadElement means the theme layout has no </head> to splice the
	// discovery tag before. Reported as a failure, never a silent no-op.
	ErrNoHeadElement = errors.New("theme layout contains no </head>")

	// ErrMalformedRemoteResponse means an admin API call succeeded but the
	// response is missing an expected field, e.g. a created script tag with
	// no id.
	ErrMalformedRemoteResponse = errors.New("malformed admin API response")
)

// TransientError marks a network failure or 5xx from a remote API. Mutating
// and listing reconciliation calls retry these a bounded number of times.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient error in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
