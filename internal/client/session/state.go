// Package session turns an authorization redirect plus an encryption
// password into a durable session, and restores that session on later
// starts without any network round trip.
package session

import (
	"errors"
	"fmt"

	"github.com/atinyakov/SecureNotes/internal/models"
)

// Phase is the authentication phase of a Manager.
type Phase int

const (
	// Loading is the initial phase, before Bootstrap has run.
	Loading Phase = iota
	// NeedsPassword means an authorization code was captured and the user
	// must supply an encryption password to finish signing in.
	NeedsPassword
	// Unauthenticated means there is no session.
	Unauthenticated
	// Authenticated means the vault client is configured for User.
	Authenticated
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case NeedsPassword:
		return "needs-password"
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// State is a snapshot of the session. AuthCode is set only in NeedsPassword,
// User only in Authenticated.
type State struct {
	Phase    Phase
	AuthCode string
	User     *models.UserIdentity
}

var (
	// ErrAlreadyBootstrapped is returned by a second Bootstrap call.
	ErrAlreadyBootstrapped = errors.New("session already bootstrapped")
	// ErrNoPendingCode is returned by Exchange outside NeedsPassword.
	ErrNoPendingCode = errors.New("no pending authorization code")
	// ErrEmptyPassword is returned by Exchange for an empty password.
	ErrEmptyPassword = errors.New("encryption password must not be empty")
)

// AuthError reports a failed code exchange. The code stays pending so the
// user can retry with another password.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
