// Package models defines the core data structures shared by the notes client
// and the development vault server.
package models

import "time"

// UserIdentity is the account a session belongs to, as reported by the vault
// when an authorization code is exchanged.
type UserIdentity struct {
	// ID is the vault's identifier for the account.
	ID string `json:"id"`
	// Username is the login name shown to the user.
	Username string `json:"username"`
}

// Credentials is the persisted session triple. All three parts are present
// or the session is considered absent.
type Credentials struct {
	// Token is the opaque access token issued by the vault.
	Token string
	// Password is the local encryption password.
	Password string
	// User is the identity captured at exchange time.
	User UserIdentity
}

// Note is one entry of the client-side note cache.
type Note struct {
	// ID is derived from the creation timestamp.
	ID string `json:"id"`
	// Path is "notes/" + ID + ".json".
	Path string `json:"path"`
	// Title is limited to 100 UTF-16 code units.
	Title string `json:"title"`
	// Content is limited to 50,000 UTF-16 code units.
	Content string `json:"content"`
	// UpdatedAt is the time of the last confirmed write (or creation).
	UpdatedAt time.Time `json:"updated_at"`
	// Dirty marks local state that no successful remote write has confirmed yet.
	Dirty bool `json:"-"`
}

// NotePayload is the document stored at a note's path.
type NotePayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ObjectInfo is one entry of the vault's object listing.
type ObjectInfo struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Object is an opaque blob stored by the vault under a path key.
type Object struct {
	Path      string    `json:"path"`
	Data      []byte    `json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Quota is a point-in-time read of storage usage against the account limit.
type Quota struct {
	UsedBytes  int64 `json:"used_bytes"`
	QuotaBytes int64 `json:"quota_bytes"`
	Unlimited  bool  `json:"unlimited"`
}

// User represents a vault account on the server side.
type User struct {
	// ID is the unique identifier for the user.
	ID string
	// Username is the login name chosen by the user.
	Username string
	// CreatedAt is when the account was first seen.
	CreatedAt time.Time
}

// AuthCode is a single-use authorization code issued by the authorize endpoint.
type AuthCode struct {
	Code        string
	UserID      string
	ClientID    string
	RedirectURI string
	ExpiresAt   time.Time
}
