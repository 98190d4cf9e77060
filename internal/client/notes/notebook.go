package notes

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atinyakov/SecureNotes/internal/client/debounce"
	"github.com/atinyakov/SecureNotes/internal/models"
	"github.com/atinyakov/SecureNotes/internal/vault"
)

// Option configures a Notebook.
type Option func(*Notebook)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(n *Notebook) { n.now = now }
}

// WithScheduler replaces the default debounce scheduler (SaveDelay on real
// timers).
func WithScheduler(s *debounce.Scheduler) Option {
	return func(n *Notebook) { n.sched = s }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(n *Notebook) {
		if log != nil {
			n.log = log
		}
	}
}

// WithOnChange registers a callback run after every state change that did
// not come from the caller directly (writes finishing, loads).
func WithOnChange(fn func()) Option {
	return func(n *Notebook) { n.onChange = fn }
}

// WithFetchLimit bounds how many notes LoadAll fetches at once.
func WithFetchLimit(limit int) Option {
	return func(n *Notebook) { n.fetchLimit = limit }
}

// WithWriteTimeout bounds every background write.
func WithWriteTimeout(d time.Duration) Option {
	return func(n *Notebook) { n.writeTimeout = d }
}

// Notebook is the note cache of one session. It is safe for concurrent use.
type Notebook struct {
	store        Store
	quota        Refresher
	sched        *debounce.Scheduler
	log          *zap.Logger
	now          func() time.Time
	onChange     func()
	fetchLimit   int
	writeTimeout time.Duration

	mu       sync.Mutex
	notes    []models.Note
	selected string
	buf      *Buffer
	syncing  bool
	inflight int
	saveErr  string
	noteErrs map[string]string
	closed   bool
}

// New returns an empty Notebook. quota may be nil.
func New(store Store, quota Refresher, opts ...Option) *Notebook {
	n := &Notebook{
		store:        store,
		quota:        quota,
		log:          zap.NewNop(),
		now:          time.Now,
		fetchLimit:   8,
		writeTimeout: 30 * time.Second,
		noteErrs:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.sched == nil {
		n.sched = debounce.New(SaveDelay, debounce.WithLogger(n.log))
	}
	return n
}

// LoadAll fetches every note from the store and merges them into the cache.
// Notes that fail to fetch are skipped; a failed listing leaves the cache
// as it was. Local entries with unconfirmed edits win over fetched ones.
func (n *Notebook) LoadAll(ctx context.Context) []models.Note {
	n.setSyncing(true)
	defer n.setSyncing(false)

	infos, err := n.store.List(ctx)
	if err != nil {
		n.log.Error("failed to load notes", zap.Error(err))
		return n.Notes()
	}

	type file struct {
		id   string
		info models.ObjectInfo
	}
	var files []file
	for _, info := range infos {
		if id, ok := IDFromPath(info.Path); ok {
			files = append(files, file{id: id, info: info})
		}
	}

	fetched := make([]*models.Note, len(files))
	var g errgroup.Group
	g.SetLimit(max(n.fetchLimit, 1))
	for i, f := range files {
		g.Go(func() error {
			var p models.NotePayload
			if err := n.store.Get(ctx, f.info.Path, &p); err != nil {
				n.log.Warn("failed to load note", zap.String("path", f.info.Path), zap.Error(err))
				return nil
			}
			fetched[i] = &models.Note{
				ID:        f.id,
				Path:      f.info.Path,
				Title:     p.Title,
				Content:   p.Content,
				UpdatedAt: f.info.UpdatedAt,
			}
			return nil
		})
	}
	_ = g.Wait()

	n.mu.Lock()
	merged := make([]models.Note, 0, len(fetched)+len(n.notes))
	seen := make(map[string]bool)
	for _, e := range n.notes {
		if e.Dirty {
			merged = append(merged, e)
			seen[e.ID] = true
		}
	}
	for _, note := range fetched {
		if note != nil && !seen[note.ID] {
			merged = append(merged, *note)
			seen[note.ID] = true
		}
	}
	n.notes = merged
	n.sortLocked()
	if n.buf != nil && !seen[n.buf.ID] {
		n.sched.Cancel(n.buf.ID)
		n.selected, n.buf = "", nil
	}
	out := slices.Clone(n.notes)
	n.mu.Unlock()

	n.refreshQuota(ctx)
	n.changed()
	return out
}

// Create adds an empty local note at the front of the cache and selects it.
// Nothing is written until the first edit.
func (n *Notebook) Create() models.Note {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.leaveSelectionLocked()

	id := n.newIDLocked()
	note := models.Note{
		ID:        id,
		Path:      PathFor(id),
		Title:     UntitledTitle,
		UpdatedAt: n.now(),
		Dirty:     true,
	}
	n.notes = slices.Insert(n.notes, 0, note)
	n.selected = id
	n.buf = &Buffer{ID: id, Title: note.Title}
	return note
}

// newIDLocked derives an id from the current millisecond, moving forward
// past ids already in the cache.
func (n *Notebook) newIDLocked() string {
	ms := n.now().UnixMilli()
	for {
		id := strconv.FormatInt(ms, 10)
		if n.indexLocked(id) < 0 {
			return id
		}
		ms++
	}
}

// Select loads note id into the edit buffer.
func (n *Notebook) Select(id string) (Buffer, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.selected == id && n.buf != nil {
		return *n.buf, nil
	}
	i := n.indexLocked(id)
	if i < 0 {
		return Buffer{}, ErrNoteNotFound
	}
	n.leaveSelectionLocked()

	e := n.notes[i]
	n.selected = id
	n.buf = &Buffer{ID: id, Title: e.Title, Content: e.Content}
	return *n.buf, nil
}

// leaveSelectionLocked cancels the pending write of the current selection
// and keeps its unsaved buffer in the cache entry.
func (n *Notebook) leaveSelectionLocked() {
	if n.buf == nil {
		return
	}
	n.sched.Cancel(n.buf.ID)
	if i := n.indexLocked(n.buf.ID); i >= 0 {
		e := &n.notes[i]
		if e.Title != n.buf.Title || e.Content != n.buf.Content {
			e.Title, e.Content = n.buf.Title, n.buf.Content
			e.Dirty = true
		}
	}
	n.selected, n.buf = "", nil
}

// Update replaces the buffer of the selected note and re-arms its write.
// Input over the limits is truncated.
func (n *Notebook) Update(title, content string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrClosed
	}
	if n.buf == nil {
		return ErrNoSelection
	}
	title = Truncate(title, TitleMax)
	content = Truncate(content, ContentMax)
	if title == n.buf.Title && content == n.buf.Content {
		return nil
	}
	n.buf.Title, n.buf.Content = title, content
	if i := n.indexLocked(n.buf.ID); i >= 0 {
		n.notes[i].Dirty = true
	}

	id := n.buf.ID
	payload := models.NotePayload{Title: title, Content: content}
	n.sched.Schedule(id, func() { n.write(id, payload) })
	return nil
}

// write runs when the debounce delay of id elapses.
func (n *Notebook) write(id string, p models.NotePayload) {
	n.mu.Lock()
	n.inflight++
	n.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), n.writeTimeout)
	defer cancel()
	err := n.store.Put(ctx, PathFor(id), p)

	n.mu.Lock()
	n.inflight--
	if err != nil {
		n.saveErr = UserMessage(err)
		n.noteErrs[id] = n.saveErr
		n.mu.Unlock()
		n.log.Warn("failed to save note", zap.String("id", id), zap.Error(err))
		n.changed()
		return
	}

	n.saveErr = ""
	delete(n.noteErrs, id)
	if i := n.indexLocked(id); i >= 0 {
		e := &n.notes[i]
		e.UpdatedAt = n.now()
		switch {
		case n.buf != nil && n.buf.ID == id:
			e.Title, e.Content = p.Title, p.Content
			e.Dirty = n.buf.Title != p.Title || n.buf.Content != p.Content
		case e.Dirty && (e.Title != p.Title || e.Content != p.Content):
			// newer edits were stashed while this write was in flight
		default:
			e.Title, e.Content = p.Title, p.Content
			e.Dirty = false
		}
		n.sortLocked()
	}
	n.mu.Unlock()

	n.refreshQuota(ctx)
	n.changed()
}

// Delete removes note id from the store and the cache. A note that was never
// written counts as deleted remotely. On failure the cache is unchanged.
func (n *Notebook) Delete(ctx context.Context, id string) error {
	n.mu.Lock()
	if n.indexLocked(id) < 0 {
		n.mu.Unlock()
		return ErrNoteNotFound
	}
	n.mu.Unlock()

	pending := n.sched.Pending(id)
	n.sched.Cancel(id)
	var err error
	n.sched.RunExclusive(id, func() {
		err = n.store.Delete(ctx, PathFor(id))
	})
	if err != nil && !errors.Is(err, vault.ErrNotFound) {
		n.log.Warn("failed to delete note", zap.String("id", id), zap.Error(err))
		if pending {
			n.rearm(id)
		}
		return fmt.Errorf("delete note: %w", err)
	}

	n.mu.Lock()
	if i := n.indexLocked(id); i >= 0 {
		n.notes = slices.Delete(n.notes, i, i+1)
	}
	delete(n.noteErrs, id)
	if n.selected == id {
		n.selected, n.buf = "", nil
	}
	n.mu.Unlock()

	n.refreshQuota(ctx)
	return nil
}

// rearm schedules the write of note id again with its latest local state.
func (n *Notebook) rearm(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	var payload models.NotePayload
	switch i := n.indexLocked(id); {
	case n.buf != nil && n.buf.ID == id:
		payload = models.NotePayload{Title: n.buf.Title, Content: n.buf.Content}
	case i >= 0:
		payload = models.NotePayload{Title: n.notes[i].Title, Content: n.notes[i].Content}
	default:
		return
	}
	n.sched.Schedule(id, func() { n.write(id, payload) })
}

// Notes returns a copy of the cache, most recently updated first.
func (n *Notebook) Notes() []models.Note {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.notes)
}

// Note returns the cache entry for id.
func (n *Notebook) Note(id string) (models.Note, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if i := n.indexLocked(id); i >= 0 {
		return n.notes[i], true
	}
	return models.Note{}, false
}

// Selected returns the id of the selected note.
func (n *Notebook) Selected() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.selected, n.selected != ""
}

// Buffer returns the edit buffer of the selected note.
func (n *Notebook) Buffer() (Buffer, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.buf == nil {
		return Buffer{}, false
	}
	return *n.buf, true
}

// Status returns the visible sync state.
func (n *Notebook) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	st := Status{
		Syncing:   n.syncing,
		Saving:    n.inflight > 0,
		SaveError: n.saveErr,
	}
	if n.buf != nil {
		st.Pending = n.sched.Pending(n.buf.ID)
	}
	return st
}

// NoteError returns the message of the last failed write of note id.
func (n *Notebook) NoteError(id string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.noteErrs[id]
}

// Dirty returns the ids of notes with edits no write has confirmed,
// including the selected note's buffer.
func (n *Notebook) Dirty() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var ids []string
	for _, e := range n.notes {
		if e.Dirty {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// Settle writes every armed edit now and waits for all writes to finish.
func (n *Notebook) Settle(ctx context.Context) error {
	n.sched.Flush()
	return n.sched.Wait(ctx)
}

// Close cancels every armed write. Writes already in flight complete.
func (n *Notebook) Close() {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	n.sched.Close()
}

func (n *Notebook) indexLocked(id string) int {
	return slices.IndexFunc(n.notes, func(e models.Note) bool { return e.ID == id })
}

func (n *Notebook) sortLocked() {
	slices.SortStableFunc(n.notes, func(a, b models.Note) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
}

func (n *Notebook) setSyncing(v bool) {
	n.mu.Lock()
	n.syncing = v
	n.mu.Unlock()
}

func (n *Notebook) refreshQuota(ctx context.Context) {
	if n.quota == nil {
		return
	}
	// the tracker logs its own failures
	_, _ = n.quota.Refresh(ctx)
}

func (n *Notebook) changed() {
	if n.onChange != nil {
		n.onChange()
	}
}
