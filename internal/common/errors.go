// Package common defines shared constants and sentinel errors used across
// client and server layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal         = errors.New("internal error")
	ErrorUnauthorized     = errors.New("unauthorized")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvariantViolation = errors.New("invariant violation")

	// Submission validation errors. These are expected outcomes, not failures.
	ErrEmptyContent        = errors.New("empty content")
	ErrTooLong             = errors.New("content too long")
	ErrRateLimited         = errors.New("rate limited")
	ErrDuplicateSubmission = errors.New("submission already accepted")

	// Identity errors.
	ErrInvalidSecret = errors.New("invalid device secret")
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")

	// Feed errors.
	ErrInvalidCursor = errors.New("invalid cursor")
	ErrInvalidOrder  = errors.New("invalid feed order")
)

// RateLimitError is returned when an identity already has an accepted
// submission inside the current window. It matches ErrRateLimited.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// RetryAfter extracts the retry delay carried by a rate limit error.
func RetryAfter(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}
