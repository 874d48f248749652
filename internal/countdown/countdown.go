// Package countdown implements a cancellable minute-based countdown used
// to expire temporary overrides.
package countdown

import (
	"sync"
	"time"

	"github.com/sweeney/sun-timer/internal/clock"
)

// Timer counts down to a deadline and optionally runs a callback when it
// is reached. Starting a new countdown replaces the previous one.
type Timer struct {
	clk clock.Clock

	mu       sync.Mutex
	deadline time.Time // zero when stopped
	pending  *clock.Timer
	gen      uint64
}

// New creates a stopped Timer on clk.
func New(clk clock.Clock) *Timer {
	return &Timer{clk: clk}
}

// Start sets the deadline minutes from now and cancels any pending
// callback. If cb is non-nil it runs once at the deadline, unless Start
// or Stop is called first.
func (t *Timer) Start(minutes float64, cb func()) {
	d := time.Duration(minutes * float64(time.Minute))

	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelLocked()
	t.deadline = t.clk.Now().Add(d)
	if cb == nil {
		return
	}

	gen := t.gen
	t.pending = t.clk.AfterFunc(d, func() {
		t.mu.Lock()
		if gen != t.gen {
			t.mu.Unlock()
			return
		}
		t.pending = nil
		t.mu.Unlock()
		cb()
	})
}

// Stop clears the deadline and cancels any pending callback.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelLocked()
	t.deadline = time.Time{}
}

func (t *Timer) cancelLocked() {
	t.gen++
	t.pending.Stop()
	t.pending = nil
}

// Active reports whether the deadline lies in the future.
func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.deadline.IsZero() && t.clk.Now().Before(t.deadline)
}

// TimeLeft returns the minutes remaining until the deadline, or 0.
func (t *Timer) TimeLeft() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.deadline.IsZero() {
		return 0
	}
	left := t.deadline.Sub(t.clk.Now())
	if left <= 0 {
		return 0
	}
	return left.Minutes()
}
