package ai

import "errors"

var (
	// ErrValidation indicates a missing or empty required field.
	ErrValidation = errors.New("validation failed")

	// ErrRateLimited indicates the client-side rate limiter refused the
	// call. The request is never attempted.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrUpstream indicates a non-2xx response or a malformed body from
	// the AI endpoint. The core performs no automatic retry.
	ErrUpstream = errors.New("AI service unavailable")
)
