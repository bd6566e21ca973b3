package auth

import "errors"

// Failure signals surfaced to the user, each mapped to a fixed message
// by the handler layer.
var (
	ErrInvalidCredential = errors.New("invalid credential")
	ErrLockedOut         = errors.New("locked out")
	ErrSessionExpired    = errors.New("session expired")
	ErrNoSession         = errors.New("no session")
)
