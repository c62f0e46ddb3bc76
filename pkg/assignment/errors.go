package assignment

import "errors"

// Validation errors of the registration flow. Each maps to a specific
// user-facing message and HTTP status at the route layer; none is fatal.
var (
	ErrInvalidSessionID  = errors.New("assignment: invalid session id")
	ErrSessionNotFound   = errors.New("assignment: session does not exist")
	ErrInvalidUsername   = errors.New("assignment: invalid username")
	ErrUnauthorized      = errors.New("assignment: not allowed to act on other users")
	ErrAlreadyRegistered = errors.New("assignment: already registered for this session")
	ErrNotRegistered     = errors.New("assignment: not registered for this session")
)
