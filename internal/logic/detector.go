package logic

import "time"

// TransitionCounts tracks the number of automatic transitions since
// startup.
type TransitionCounts struct {
	On  int
	Off int
}

// Detector tracks the automatic on/off state between samples and reports
// transitions. A transition to ON is only accepted on a day the rules
// allow; a transition back to OFF is always accepted so an interval that
// started yesterday still ends.
type Detector struct {
	on         bool
	lastChange time.Time
	counts     TransitionCounts
}

// NewDetector creates a Detector in the OFF state.
func NewDetector() *Detector {
	return &Detector{}
}

// Process takes the scheduler's on state at now and whether today is
// allowed. It returns true if the tracked state changed.
func (d *Detector) Process(scheduled, dayAllowed bool, now time.Time) bool {
	if scheduled == d.on {
		return false
	}
	if !dayAllowed && !d.on {
		return false
	}

	d.on = scheduled
	d.lastChange = now
	if scheduled {
		d.counts.On++
	} else {
		d.counts.Off++
	}
	return true
}

// On returns the tracked automatic state.
func (d *Detector) On() bool {
	return d.on
}

// LastChange returns the time of the last transition, zero if none.
func (d *Detector) LastChange() time.Time {
	return d.lastChange
}

// Counts returns the transition counts.
func (d *Detector) Counts() TransitionCounts {
	return d.counts
}
