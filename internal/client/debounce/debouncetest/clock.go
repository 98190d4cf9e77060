// Package debouncetest provides a manual timer source for driving a
// debounce.Scheduler deterministically in tests.
package debouncetest

import (
	"sync"
	"time"

	"github.com/atinyakov/SecureNotes/internal/client/debounce"
)

// ManualClock hands out timers that fire only on Advance.
type ManualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	clock   *ManualClock
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

// AfterFunc satisfies debounce.AfterFunc.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) debounce.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	live := !t.stopped && !t.fired
	t.stopped = true
	return live
}

// Armed returns the number of timers that are neither stopped nor fired.
func (c *ManualClock) Armed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Advance fires every armed timer synchronously, in creation order, and
// returns how many fired.
func (c *ManualClock) Advance() int {
	c.mu.Lock()
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	c.timers = nil
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
	return len(due)
}

// NewScheduler returns a scheduler driven by a fresh ManualClock.
func NewScheduler(delay time.Duration) (*debounce.Scheduler, *ManualClock) {
	c := &ManualClock{}
	return debounce.New(delay, debounce.WithAfterFunc(c.AfterFunc)), c
}
