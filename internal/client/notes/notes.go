// Package notes is the local-first note cache. Edits land in an edit buffer
// immediately and reach the vault through one debounced write per burst.
package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/SecureNotes/internal/models"
	"github.com/atinyakov/SecureNotes/internal/vault"
)

const (
	// TitleMax and ContentMax are limits in UTF-16 code units.
	TitleMax   = 100
	ContentMax = 50000

	PathPrefix = "notes/"
	PathSuffix = ".json"

	// UntitledTitle is the placeholder title of a new note.
	UntitledTitle = "Untitled"

	// SaveDelay is how long an edit must stay untouched before it is written.
	SaveDelay = time.Second

	MsgQuotaExceeded = "Storage limit exceeded. Please upgrade your plan."
	MsgSaveFailed    = "Failed to save note"
)

var (
	// ErrNoteNotFound is returned for ids that are not in the cache.
	ErrNoteNotFound = errors.New("note not found")
	// ErrNoSelection is returned by Update when no note is selected.
	ErrNoSelection = errors.New("no note selected")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("notebook closed")
)

// Store is the remote object store the notebook syncs with. Get and Put
// encode values as JSON; Delete reports a missing object with an error
// matching vault.ErrNotFound.
type Store interface {
	List(ctx context.Context) ([]models.ObjectInfo, error)
	Get(ctx context.Context, path string, v any) error
	Put(ctx context.Context, path string, v any) error
	Delete(ctx context.Context, path string) error
}

// Refresher re-reads the storage quota.
type Refresher interface {
	Refresh(ctx context.Context) (models.Quota, error)
}

// Buffer is the editable state of the selected note.
type Buffer struct {
	ID      string
	Title   string
	Content string
}

// Status is the visible sync state.
type Status struct {
	// Syncing is set while LoadAll runs.
	Syncing bool
	// Saving is set while a write is in flight.
	Saving bool
	// Pending is set while the selected note has an armed write.
	Pending bool
	// SaveError is the message of the last failed write, cleared by the
	// next successful one.
	SaveError string
}

// PathFor returns the object path of note id.
func PathFor(id string) string {
	return PathPrefix + id + PathSuffix
}

// IDFromPath returns the note id stored at path, or false for paths that are
// not notes.
func IDFromPath(path string) (string, bool) {
	if !strings.HasPrefix(path, PathPrefix) || !strings.HasSuffix(path, PathSuffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(path, PathPrefix), PathSuffix)
	if id == "" {
		return "", false
	}
	return id, true
}

// Truncate cuts s to at most limit UTF-16 code units without splitting a
// surrogate pair.
func Truncate(s string, limit int) string {
	units := 0
	for i, r := range s {
		w := 1
		if r >= 0x10000 {
			w = 2
		}
		if units+w > limit {
			return s[:i]
		}
		units += w
	}
	return s
}

// UserMessage turns a write error into the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, vault.ErrQuotaExceeded) {
		return MsgQuotaExceeded
	}
	var se *vault.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MsgSaveFailed
}

// FormatAge renders t relative to now: "Just now", "5m ago", "3h ago",
// "2d ago", then the date.
func FormatAge(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	}
	return t.Local().Format("2006-01-02")
}
