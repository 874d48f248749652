package astro

import (
	"sync"
	"time"
)

// Cached wraps a Provider and keeps the most recently computed day.
// Only "today" is ever asked for, so one entry is enough.
type Cached struct {
	provider Provider

	mu  sync.Mutex
	key string
	day Day
}

// NewCached returns a caching Provider around p.
func NewCached(p Provider) *Cached {
	return &Cached{provider: p}
}

// Day returns the cached day for date, computing it when the calendar
// date differs from the cached one.
func (c *Cached) Day(date time.Time) Day {
	key := date.Format(time.DateOnly)

	c.mu.Lock()
	defer c.mu.Unlock()
	if key != c.key {
		c.day = c.provider.Day(date)
		c.key = key
	}
	return c.day
}
