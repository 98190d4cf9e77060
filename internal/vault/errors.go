package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrNotFound is returned when the requested object does not exist.
	ErrNotFound = errors.New("not found")
	// ErrQuotaExceeded is returned when a write is rejected for size limits.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrUnauthorized is returned when the access token is missing, expired or rejected.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotConfigured is returned by data calls made before Configure.
	ErrNotConfigured = errors.New("vault client is not configured")
	// ErrDecrypt is returned when a blob cannot be opened with the configured password.
	ErrDecrypt = errors.New("unable to decrypt data (wrong password?)")
	// ErrInvalidPath is returned for empty paths or paths with ".." segments.
	ErrInvalidPath = errors.New("invalid object path")
)

// StatusError is returned for every non-2xx response. It matches ErrNotFound,
// ErrQuotaExceeded and ErrUnauthorized through errors.Is.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("vault: HTTP %d: %s", e.StatusCode, e.Message)
}

// Is maps well-known status codes onto the package sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrQuotaExceeded:
		return e.StatusCode == http.StatusRequestEntityTooLarge
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// newStatusError reads at most 4 KiB of the body. JSON bodies of the form
// {"error": ..., "error_description": ...} are unpacked; anything else is
// used as plain text.
func newStatusError(resp *http.Response) *StatusError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	msg := strings.TrimSpace(string(raw))

	var body struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
		if body.Description != "" {
			msg += ": " + body.Description
		}
	}
	if msg == "" {
		msg = strings.ToLower(http.StatusText(resp.StatusCode))
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}
