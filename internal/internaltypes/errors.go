package internaltypes

import "errors"

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrNotFound           = errors.New("not found")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidInput is wrapped with the offending field, e.g.
	// fmt.Errorf("%w: hours must be a whole number", ErrInvalidInput).
	ErrInvalidInput = errors.New("invalid input")
)
