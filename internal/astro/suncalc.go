package astro

import (
	"time"

	"github.com/sixdouglas/suncalc"
)

// SunCalc computes event times with the suncalc library.
type SunCalc struct {
	Latitude  float64
	Longitude float64
}

// NewSunCalc creates a provider for the given position.
func NewSunCalc(latitude, longitude float64) *SunCalc {
	return &SunCalc{Latitude: latitude, Longitude: longitude}
}

// Day returns the event times for the day containing date, in date's
// location. Solar events suncalc cannot produce for the latitude are left
// out of the map.
func (s *SunCalc) Day(date time.Time) Day {
	loc := date.Location()
	start := StartOfDay(date)
	noon := start.Add(12 * time.Hour)

	day := Day{
		Date: start,
		Sun:  make(map[Event]time.Time, len(SolarEvents)),
	}

	for name, dt := range suncalc.GetTimes(noon, s.Latitude, s.Longitude) {
		if !plausible(dt.Value, start) {
			continue
		}
		day.Sun[Event(name)] = dt.Value.In(loc)
	}

	moon := suncalc.GetMoonTimes(start, s.Latitude, s.Longitude, false)
	if plausible(moon.Rise, start) {
		day.MoonRise = moon.Rise.In(loc)
	}
	if plausible(moon.Set, start) {
		day.MoonSet = moon.Set.In(loc)
	}
	return day
}

// plausible rejects zero times and the garbage produced when the
// underlying math yields NaN (sun never reaching the target altitude).
func plausible(t, dayStart time.Time) bool {
	if t.IsZero() {
		return false
	}
	return t.After(dayStart.Add(-36*time.Hour)) && t.Before(dayStart.Add(60*time.Hour))
}
