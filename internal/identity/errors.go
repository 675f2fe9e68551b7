package identity

import "errors"

// Identity errors.
var (
	ErrInvalidToken    = errors.New("invalid or expired token")
	ErrProfileNotFound = errors.New("profile not found")
	ErrEmailInUse      = errors.New("email is already registered to another account")
)
