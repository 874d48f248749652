package clock

import (
	"sync"
	"time"
)

// Fake returns a FakeClock initialized to the given time.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// FakeClock is a deterministic Clock for tests. It is safe for concurrent
// use, but callbacks run on the goroutine that advances the clock. Do not
// call Advance from inside a callback.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	seq     uint64
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	seq      uint64 // registration order, breaks deadline ties
	callback func()
	stopped  bool
	fired    bool
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AfterFunc schedules f to run once the clock reaches now+d. A
// non-positive d fires on the next Advance (even Advance(0)), never
// synchronously, so callers holding their own locks cannot deadlock.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d < 0 {
		d = 0
	}
	c.seq++
	waiter := &fakeWaiter{
		deadline: c.current.Add(d),
		seq:      c.seq,
		callback: f,
	}
	c.waiters = append(c.waiters, waiter)

	return &Timer{
		stopFunc: func() bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			if waiter.stopped || waiter.fired {
				return false
			}
			waiter.stopped = true
			return true
		},
	}
}

// Advance moves the clock forward by d, firing every callback whose
// deadline falls within the new time. Timers registered by a callback
// fire in the same Advance if their deadline is also reached.
func (c *FakeClock) Advance(d time.Duration) {
	c.AdvanceTo(c.Now().Add(d))
}

// AdvanceTo moves the clock to target. Moving backwards only sets the
// time and fires nothing that was not already due.
func (c *FakeClock) AdvanceTo(target time.Time) {
	for {
		waiter := c.nextDue(target)
		if waiter == nil {
			break
		}
		waiter.callback()
	}

	c.mu.Lock()
	c.current = target
	c.mu.Unlock()
}

// nextDue removes and returns the earliest waiter due at or before
// target, moving the clock to its deadline.
func (c *FakeClock) nextDue(target time.Time) *fakeWaiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	best := -1
	remaining := c.waiters[:0]
	for _, waiter := range c.waiters {
		if waiter.stopped {
			continue
		}
		remaining = append(remaining, waiter)
	}
	c.waiters = remaining

	for i, waiter := range c.waiters {
		if waiter.deadline.After(target) {
			continue
		}
		if best < 0 || waiter.deadline.Before(c.waiters[best].deadline) ||
			(waiter.deadline.Equal(c.waiters[best].deadline) && waiter.seq < c.waiters[best].seq) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}

	waiter := c.waiters[best]
	c.waiters = append(c.waiters[:best], c.waiters[best+1:]...)
	waiter.fired = true
	if waiter.deadline.After(c.current) {
		c.current = waiter.deadline
	}
	return waiter
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, waiter := range c.waiters {
		if !waiter.stopped && !waiter.fired {
			count++
		}
	}
	return count
}
