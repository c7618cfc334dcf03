package domain

import (
	"errors"
)

// Sentinel errors mapped to HTTP status codes at the handler layer.
// Use with errors.Is().
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized indicates authentication failure (no/invalid credential).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates authorization failure: the credential is valid
	// but the caller does not own the resource. Never collapsed into
	// ErrNotFound - clients must be able to tell the two apart.
	ErrForbidden = errors.New("forbidden")

	// ErrCorruptTurn indicates a stored message carries a role other than
	// user/assistant. Such turns must not be forwarded to the upstream
	// provider under a guessed role.
	ErrCorruptTurn = errors.New("corrupt turn role")
)
