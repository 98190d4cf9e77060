// Package errs contains sentinel errors used across the server layers for
// stable error mapping.
package errs

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrQuotaExceeded indicates a write would exceed the account storage limit.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrUnauthorized indicates failed authentication or an unknown client.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidGrant indicates an unknown, expired, used or mismatched authorization code.
	ErrInvalidGrant = errors.New("invalid grant")

	// ErrInvalidPath indicates an object path that is empty or escapes its namespace.
	ErrInvalidPath = errors.New("invalid path")
)
