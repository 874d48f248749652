package countdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sweeney/sun-timer/internal/clock"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestStartAdvanceFire(t *testing.T) {
	clk := clock.Fake(t0)
	timer := New(clk)

	fired := 0
	timer.Start(10, func() { fired++ })

	clk.Advance(5 * time.Minute)
	assert.Equal(t, 5.0, timer.TimeLeft())
	assert.True(t, timer.Active())
	assert.Equal(t, 0, fired)

	clk.Advance(5 * time.Minute)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0.0, timer.TimeLeft())
	assert.False(t, timer.Active())

	clk.Advance(time.Hour)
	assert.Equal(t, 1, fired)
}

func TestRestartCancelsPrevious(t *testing.T) {
	clk := clock.Fake(t0)
	timer := New(clk)

	first, second := 0, 0
	timer.Start(1, func() { first++ })
	timer.Start(2, func() { second++ })

	clk.Advance(90 * time.Second)
	assert.Equal(t, 0, first)
	assert.Equal(t, 0.5, timer.TimeLeft())

	clk.Advance(time.Minute)
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
	assert.Equal(t, 0, clk.Pending())
}

func TestStartWithoutCallbackCancelsPrevious(t *testing.T) {
	clk := clock.Fake(t0)
	timer := New(clk)

	fired := 0
	timer.Start(1, func() { fired++ })
	timer.Start(3, nil)

	clk.Advance(5 * time.Minute)
	assert.Equal(t, 0, fired)
}

func TestStop(t *testing.T) {
	clk := clock.Fake(t0)
	timer := New(clk)

	fired := 0
	timer.Start(1, func() { fired++ })
	timer.Stop()

	assert.False(t, timer.Active())
	assert.Equal(t, 0.0, timer.TimeLeft())

	clk.Advance(2 * time.Minute)
	assert.Equal(t, 0, fired)

	// stopping twice is harmless
	timer.Stop()
}

func TestCallbackMayRestart(t *testing.T) {
	clk := clock.Fake(t0)
	timer := New(clk)

	fired := 0
	var cb func()
	cb = func() {
		fired++
		if fired < 3 {
			timer.Start(1, cb)
		}
	}
	timer.Start(1, cb)

	clk.Advance(10 * time.Minute)
	assert.Equal(t, 3, fired)
}

func TestZeroValueIsStopped(t *testing.T) {
	timer := New(clock.Fake(t0))
	assert.False(t, timer.Active())
	assert.Equal(t, 0.0, timer.TimeLeft())
}
