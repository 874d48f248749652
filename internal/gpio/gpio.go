// Package gpio drives a relay output line from the timer state.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/sweeney/sun-timer/internal/logic"
)

// Writer sets a GPIO output line.
type Writer interface {
	// Set drives the line active (true) or inactive (false).
	Set(on bool) error

	// Close releases GPIO resources.
	Close() error
}

// DefaultChip is the GPIO chip on a Raspberry Pi.
const DefaultChip = "gpiochip0"

// Relay is a logic.Output that switches a Writer whenever the effective
// state shown by the status changes.
type Relay struct {
	w   Writer
	log zerolog.Logger

	mu    sync.Mutex
	known bool
	on    bool
}

// NewRelay creates a Relay driving w.
func NewRelay(w Writer, log zerolog.Logger) *Relay {
	return &Relay{w: w, log: log.With().Str("component", "relay").Logger()}
}

// Send implements logic.Output. Records do not affect the relay.
func (r *Relay) Send(*logic.ChangeRecord, *logic.DebugRecord) {}

// Status implements logic.Output.
func (r *Relay) Status(st logic.Status) {
	on := st.On()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.known && on == r.on {
		return
	}
	if err := r.w.Set(on); err != nil {
		r.log.Error().Err(err).Bool("on", on).Msg("set relay")
		return
	}
	r.known = true
	r.on = on
	r.log.Info().Bool("on", on).Msg("relay switched")
}
