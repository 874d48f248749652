// Package status provides a thread-safe status tracker for the sun-timer
// daemon. It is read by the HTTP handlers and the state command.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/sun-timer/internal/clock"
	"github.com/sweeney/sun-timer/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Latitude  float64
	Longitude float64
	Start     string
	End       string
	Topic     string
	Broker    string
	HTTPAddr  string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Runner       logic.Snapshot
	Ready        bool // the runner has reported at least once
	LastChange   *logic.ChangeRecord
	Publishes    int
	StartTime    time.Time
	Now          time.Time
	BusConnected bool
	Config       Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex. It is also a
// logic.Output so it sees every record and status the runner produces.
type Tracker struct {
	clk clock.Clock

	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given clock and config. The start
// time is the clock's current time.
func NewTracker(clk clock.Clock, cfg Config) *Tracker {
	return &Tracker{
		clk: clk,
		snap: Snapshot{
			StartTime: clk.Now(),
			Config:    cfg,
		},
	}
}

// Update stores a runner snapshot. Called from the run loop.
func (t *Tracker) Update(rs logic.Snapshot) {
	t.mu.Lock()
	t.snap.Runner = rs
	t.snap.Ready = true
	t.mu.Unlock()
}

// Send implements logic.Output.
func (t *Tracker) Send(change *logic.ChangeRecord, _ *logic.DebugRecord) {
	if change == nil {
		return
	}
	c := *change
	t.mu.Lock()
	t.snap.LastChange = &c
	t.snap.Publishes++
	t.mu.Unlock()
}

// Status implements logic.Output.
func (t *Tracker) Status(st logic.Status) {
	t.mu.Lock()
	t.snap.Runner.Status = st
	t.snap.Runner.On = st.On()
	t.snap.Ready = true
	t.mu.Unlock()
}

// SetBusConnected sets the message bus connection status.
func (t *Tracker) SetBusConnected(connected bool) {
	t.mu.Lock()
	t.snap.BusConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	if s.LastChange != nil {
		c := *s.LastChange
		s.LastChange = &c
	}
	s.Now = t.clk.Now()
	return s
}
