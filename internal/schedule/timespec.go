// Package schedule resolves daily on/off boundaries from fixed clock
// times and astronomical events, and answers whether the interval is on.
//
// All times are minute-of-day values within one local calendar day.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/sun-timer/internal/astro"
)

// WholeDay is the number of minutes in a day.
const WholeDay = 1440

// offsetBase is the wire encoding base for offset-from-start specs.
const offsetBase = 10000

// Kind tells which variant a TimeSpec holds.
type Kind int

const (
	// Literal is a fixed minute of the day.
	Literal Kind = iota
	// Symbolic is a catalog event resolved from astronomical times.
	Symbolic
	// AfterStart is a number of minutes after the resolved start.
	AfterStart
)

// TimeSpec describes one boundary of the daily interval.
type TimeSpec struct {
	Kind    Kind
	Minutes int         // Literal and AfterStart
	Event   astro.Event // Symbolic
}

// At returns a literal spec.
func At(minutes int) TimeSpec {
	return TimeSpec{Kind: Literal, Minutes: minutes}
}

// AtEvent returns a symbolic spec.
func AtEvent(e astro.Event) TimeSpec {
	return TimeSpec{Kind: Symbolic, Event: e}
}

// MinutesAfterStart returns an offset-from-start spec.
func MinutesAfterStart(minutes int) TimeSpec {
	return TimeSpec{Kind: AfterStart, Minutes: minutes}
}

// Decode converts the integer wire encoding used by configurations:
// values up to 1440 are literal minutes, values above 10000 are minutes
// after the start boundary, and catalog ids select an event.
func Decode(v int) (TimeSpec, error) {
	switch {
	case v >= 0 && v <= WholeDay:
		return At(v), nil
	case v > offsetBase:
		return MinutesAfterStart(v - offsetBase), nil
	}
	if e, ok := astro.EventByID(v); ok {
		return AtEvent(e), nil
	}
	return TimeSpec{}, &UnresolvableError{Spec: strconv.Itoa(v)}
}

// Encode returns the integer wire encoding of s.
func (s TimeSpec) Encode() int {
	switch s.Kind {
	case Symbolic:
		id, _ := astro.IDOf(s.Event)
		return id
	case AfterStart:
		return offsetBase + s.Minutes
	default:
		return s.Minutes
	}
}

// Parse reads the text form of a spec: "HH:MM", an event name such as
// "sunset", "start+90", or the integer wire encoding.
func Parse(text string) (TimeSpec, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return TimeSpec{}, &UnresolvableError{Spec: text}
	}

	if v, err := strconv.Atoi(text); err == nil {
		return Decode(v)
	}

	if rest, ok := strings.CutPrefix(text, "start+"); ok {
		minutes, err := strconv.Atoi(rest)
		if err != nil || minutes < 0 {
			return TimeSpec{}, &UnresolvableError{Spec: text}
		}
		return MinutesAfterStart(minutes), nil
	}

	if strings.Contains(text, ":") {
		t, err := time.Parse("15:04", text)
		if err != nil {
			if text == "24:00" {
				return At(WholeDay), nil
			}
			return TimeSpec{}, &UnresolvableError{Spec: text}
		}
		return At(t.Hour()*60 + t.Minute()), nil
	}

	if e, ok := astro.EventByName(text); ok {
		return AtEvent(e), nil
	}
	return TimeSpec{}, &UnresolvableError{Spec: text}
}

// String returns the text form accepted by Parse.
func (s TimeSpec) String() string {
	switch s.Kind {
	case Symbolic:
		return string(s.Event)
	case AfterStart:
		return fmt.Sprintf("start+%d", s.Minutes)
	default:
		return fmt.Sprintf("%02d:%02d", s.Minutes/60, s.Minutes%60)
	}
}

// UnmarshalYAML accepts either the integer encoding or the text form.
func (s *TimeSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: time spec must be a scalar", node.Line)
	}
	var (
		spec TimeSpec
		err  error
	)
	if node.Tag == "!!int" {
		var v int
		if err := node.Decode(&v); err != nil {
			return err
		}
		spec, err = Decode(v)
	} else {
		spec, err = Parse(node.Value)
	}
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*s = spec
	return nil
}

// MarshalYAML writes the text form.
func (s TimeSpec) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// MinuteOfDay returns hours*60+minutes of t. Seconds are dropped.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
