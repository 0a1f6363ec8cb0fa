package issuer

import "errors"

var (
	// ErrInvalidGrant means the credentials did not resolve to an identity,
	// or a presented token is unknown or expired.
	ErrInvalidGrant = errors.New("invalid_grant")
	// ErrInvalidScope means the identity lacks the requested scope.
	ErrInvalidScope = errors.New("invalid_scope")
	// ErrServerError covers storage and backend connectivity failures. The
	// cause is logged, never returned to the caller.
	ErrServerError = errors.New("server_error")
)
