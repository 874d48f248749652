//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealWriter drives an output line using the Linux GPIO character device.
type RealWriter struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealWriter requests offset on chip as an output, initially inactive.
func NewRealWriter(chip string, offset int, activeLow bool) (*RealWriter, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	line, err := c.RequestLine(offset, opts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request relay pin %d: %w", offset, err)
	}

	return &RealWriter{chip: c, line: line}, nil
}

// Set drives the line.
func (w *RealWriter) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := w.line.SetValue(v); err != nil {
		return fmt.Errorf("set relay pin: %w", err)
	}
	return nil
}

// Close switches the relay off and returns the line to an input with
// pull-down, matching the Pi boot defaults.
func (w *RealWriter) Close() error {
	var errs []error

	if w.line != nil {
		if err := w.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("release relay: %w", err))
		}
		if err := w.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure relay pin: %w", err))
		}
		if err := w.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close relay pin: %w", err))
		}
	}
	if w.chip != nil {
		if err := w.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
