// Package debounce runs per-key delayed tasks. Scheduling a key again before
// its delay elapses replaces the earlier task, so only the last one runs.
package debounce

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Timer is the handle returned by an AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc calls f in its own goroutine after d. time.AfterFunc satisfies it
// through SystemAfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

// SystemAfterFunc wraps time.AfterFunc.
func SystemAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithAfterFunc replaces the timer factory.
func WithAfterFunc(af AfterFunc) Option {
	return func(s *Scheduler) { s.after = af }
}

// WithLogger sets the logger used for task panics.
func WithLogger(log *zap.Logger) Option {
	return func(s *Scheduler) {
		if log != nil {
			s.log = log
		}
	}
}

type task struct {
	gen   uint64
	timer Timer
	fn    func()
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Scheduler holds at most one pending task per key. Tasks of the same key
// never run concurrently; tasks of different keys may.
type Scheduler struct {
	delay time.Duration
	after AfterFunc
	log   *zap.Logger

	mu      sync.Mutex
	gen     uint64
	pending map[string]*task
	locks   map[string]*keyLock
	running int
	closed  bool
	changed chan struct{}
}

// New returns a Scheduler that delays every task by delay.
func New(delay time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		delay:   delay,
		after:   SystemAfterFunc,
		log:     zap.NewNop(),
		pending: make(map[string]*task),
		locks:   make(map[string]*keyLock),
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule arms fn for key, cancelling any task still pending for key.
// It is a no-op after Close.
func (s *Scheduler) Schedule(key string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if t, ok := s.pending[key]; ok {
		t.timer.Stop()
	}
	s.gen++
	gen := s.gen
	t := &task{gen: gen, fn: fn}
	t.timer = s.after(s.delay, func() { s.fire(key, gen) })
	s.pending[key] = t
	s.notify()
}

// Cancel drops the pending task for key. A task that already started keeps
// running. It reports whether a pending task was dropped.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.pending[key]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(s.pending, key)
	s.notify()
	return true
}

// CancelAll drops every pending task.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, t := range s.pending {
		t.timer.Stop()
		delete(s.pending, key)
	}
	s.notify()
}

// Pending reports whether a task is armed for key.
func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

// Running reports whether any task is executing.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running > 0
}

// Busy reports whether any task is pending or running.
func (s *Scheduler) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) > 0 || s.running > 0
}

// Flush runs every pending task now instead of waiting for its timer.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	type due struct {
		key string
		gen uint64
	}
	var all []due
	for key, t := range s.pending {
		if t.timer.Stop() {
			all = append(all, due{key, t.gen})
		}
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, d := range all {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.fire(d.key, d.gen)
		}()
	}
	wg.Wait()
}

// RunExclusive runs fn under the lock of key, after any task of key that is
// currently running. It does not touch the pending task.
func (s *Scheduler) RunExclusive(key string, fn func()) {
	s.mu.Lock()
	kl := s.acquire(key)
	s.running++
	s.notify()
	s.mu.Unlock()

	defer s.done(key)
	kl.mu.Lock()
	defer kl.mu.Unlock()
	fn()
}

// Wait blocks until nothing is pending or running, or ctx is done.
func (s *Scheduler) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		if len(s.pending) == 0 && s.running == 0 {
			s.mu.Unlock()
			return nil
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close cancels every pending task and rejects new ones. Running tasks finish.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.CancelAll()
}

func (s *Scheduler) fire(key string, gen uint64) {
	s.mu.Lock()
	t, ok := s.pending[key]
	if !ok || t.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	kl := s.acquire(key)
	s.running++
	s.notify()
	s.mu.Unlock()

	defer s.done(key)
	kl.mu.Lock()
	defer kl.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("debounced task panicked", zap.String("key", key), zap.Any("panic", r))
		}
	}()
	t.fn()
}

func (s *Scheduler) done(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running--
	if kl := s.locks[key]; kl != nil {
		kl.refs--
		if kl.refs == 0 {
			delete(s.locks, key)
		}
	}
	s.notify()
}

// acquire must be called with s.mu held.
func (s *Scheduler) acquire(key string) *keyLock {
	kl, ok := s.locks[key]
	if !ok {
		kl = &keyLock{}
		s.locks[key] = kl
	}
	kl.refs++
	return kl
}

// notify wakes Wait callers; s.mu must be held.
func (s *Scheduler) notify() {
	close(s.changed)
	s.changed = make(chan struct{})
}
