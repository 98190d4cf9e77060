package shell

import (
	"fmt"
	"io"
	"sync"

	"github.com/atinyakov/SecureNotes/internal/client/notes"
	"github.com/atinyakov/SecureNotes/internal/client/ui"
)

// SaveWatcher reports background save failures as they happen, so a failed
// write is visible without running status.
type SaveWatcher struct {
	mu   sync.Mutex
	out  io.Writer
	last string
}

// NewSaveWatcher creates a SaveWatcher writing to out.
func NewSaveWatcher(out io.Writer) *SaveWatcher {
	return &SaveWatcher{out: out}
}

// Observe prints st.SaveError once when it first appears or changes.
func (w *SaveWatcher) Observe(st notes.Status) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if st.SaveError != "" && st.SaveError != w.last {
		fmt.Fprintln(w.out, ui.Error.Sprint("\n"+st.SaveError))
	}
	w.last = st.SaveError
}
