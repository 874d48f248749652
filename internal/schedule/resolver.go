package schedule

import (
	"time"

	"github.com/sweeney/sun-timer/internal/astro"
)

// Resolver maps a TimeSpec to a concrete minute of the day.
type Resolver struct {
	provider astro.Provider
}

// NewResolver creates a Resolver reading event times from provider.
func NewResolver(provider astro.Provider) *Resolver {
	return &Resolver{provider: provider}
}

// Resolve returns the minute of the day spec refers to on now's date.
// startMinute is only used by AfterStart specs, so the start boundary
// must be resolved first. A lunar event that does not occur today
// resolves to 0 (rise) or 1440 (set).
func (r *Resolver) Resolve(spec TimeSpec, now time.Time, startMinute int) (int, error) {
	switch spec.Kind {
	case Literal:
		return spec.Minutes, nil
	case AfterStart:
		return mod(startMinute+spec.Minutes, WholeDay), nil
	}

	if r.provider == nil {
		return 0, &UnresolvableError{Spec: spec.String(), StartMinute: startMinute}
	}
	t, ok := r.provider.Day(now).Time(spec.Event)
	if ok {
		return MinuteOfDay(t), nil
	}
	switch spec.Event {
	case astro.MoonRise:
		return 0, nil
	case astro.MoonSet:
		return WholeDay, nil
	}
	return 0, &UnresolvableError{Spec: spec.String(), StartMinute: startMinute}
}

func mod(v, m int) int {
	return ((v % m) + m) % m
}
