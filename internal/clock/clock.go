// Package clock provides an injectable time source for the timer runner.
//
// Production code uses Real(). Tests use Fake(), where time stands still
// until Advance or AdvanceTo is called and AfterFunc callbacks fire
// synchronously, in deadline order, with Now() reporting each callback's
// own deadline.
package clock

import "time"

// Clock abstracts the time operations used by the schedule and timers.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc waits for duration d, then calls f. The returned Timer
	// cancels the pending call with Stop.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a pending AfterFunc call.
type Timer struct {
	stopFunc func() bool
}

// Stop prevents the Timer from firing. Returns true if the call stops
// the timer, false if the timer has already fired or been stopped.
func (t *Timer) Stop() bool {
	if t == nil || t.stopFunc == nil {
		return false
	}
	return t.stopFunc()
}
