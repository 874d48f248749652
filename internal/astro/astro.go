// Package astro provides the local times of solar and lunar events for a
// calendar day at a geographic position.
package astro

import (
	"strings"
	"time"
	"unicode"
)

// Event names a solar or lunar event of the catalog.
type Event string

// Solar events, named as the suncalc library names them.
const (
	Sunrise       Event = "sunrise"
	SunriseEnd    Event = "sunriseEnd"
	GoldenHourEnd Event = "goldenHourEnd"
	SolarNoon     Event = "solarNoon"
	GoldenHour    Event = "goldenHour"
	SunsetStart   Event = "sunsetStart"
	Sunset        Event = "sunset"
	Dusk          Event = "dusk"
	NauticalDusk  Event = "nauticalDusk"
	Night         Event = "night"
	Nadir         Event = "nadir"
	NightEnd      Event = "nightEnd"
	NauticalDawn  Event = "nauticalDawn"
	Dawn          Event = "dawn"
)

// Lunar events.
const (
	MoonRise Event = "rise"
	MoonSet  Event = "set"
)

// SolarEvents lists every solar event a Day is expected to carry.
var SolarEvents = []Event{
	Sunrise, SunriseEnd, GoldenHourEnd, SolarNoon, GoldenHour, SunsetStart, Sunset,
	Dusk, NauticalDusk, Night, Nadir, NightEnd, NauticalDawn, Dawn,
}

// IsLunar reports whether e is a moon event.
func (e Event) IsLunar() bool {
	return e == MoonRise || e == MoonSet
}

// Label returns a human readable name: "Golden hour end", "Moonrise".
func (e Event) Label() string {
	var words []string
	start := 0
	s := string(e)
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	label := strings.ToLower(strings.Join(words, " "))
	if e.IsLunar() {
		return "Moon" + label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// Day holds the event times of one calendar day. A zero MoonRise or
// MoonSet means the event does not occur on that day.
type Day struct {
	Date     time.Time // local midnight
	Sun      map[Event]time.Time
	MoonRise time.Time
	MoonSet  time.Time
}

// Time returns the time of e. ok is false when the event does not occur
// on this day (absent lunar event, or a solar event that polar latitudes
// never reach).
func (d Day) Time(e Event) (t time.Time, ok bool) {
	switch e {
	case MoonRise:
		return d.MoonRise, !d.MoonRise.IsZero()
	case MoonSet:
		return d.MoonSet, !d.MoonSet.IsZero()
	}
	t, ok = d.Sun[e]
	return t, ok
}

// Provider computes the event times for the calendar day containing date.
type Provider interface {
	Day(date time.Time) Day
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last millisecond of the day containing t.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Millisecond)
}
