package astro

import "time"

// Catalog ids of the configuration wire format. Ids 5000-5008 are the
// legacy numbering kept for old configurations.
var catalogIDs = map[int]Event{
	5000: Dawn,
	5001: Dusk,
	5002: SolarNoon,
	5003: Sunrise,
	5004: Sunset,
	5005: Night,
	5006: NightEnd,
	5007: MoonRise,
	5008: MoonSet,

	5101: Sunrise,
	5102: SunriseEnd,
	5103: GoldenHourEnd,
	5104: SolarNoon,
	5105: GoldenHour,
	5106: SunsetStart,
	5107: Sunset,
	5108: Dusk,
	5109: NauticalDusk,
	5110: Night,
	5111: Nadir,
	5112: NightEnd,
	5113: NauticalDawn,
	5114: Dawn,
	5115: MoonRise,
	5116: MoonSet,
}

// Current catalog id range. Ids 5000-5008 are legacy aliases.
const (
	currentCatalogID = 5101
	LastCatalogID    = 5116
)

// EventByID returns the event for a catalog id.
func EventByID(id int) (Event, bool) {
	e, ok := catalogIDs[id]
	return e, ok
}

// IDOf returns the current (non-legacy) catalog id of e.
func IDOf(e Event) (int, bool) {
	for id := currentCatalogID; id <= LastCatalogID; id++ {
		if catalogIDs[id] == e {
			return id, true
		}
	}
	return 0, false
}

// EventByName looks an event up by its suncalc name.
func EventByName(name string) (Event, bool) {
	e := Event(name)
	if _, ok := IDOf(e); ok {
		return e, true
	}
	return "", false
}

// Entry is one line of the catalog listing.
type Entry struct {
	ID    int       `json:"id"`
	Label string    `json:"label"`
	Time  time.Time `json:"time"`
}

// Catalog lists the current catalog events with their times on day.
// Absent moonrise is reported at the start of the day and absent moonset
// at the end of it. Solar events that do not occur are omitted.
func Catalog(day Day) []Entry {
	var entries []Entry
	for id := currentCatalogID; id <= LastCatalogID; id++ {
		e := catalogIDs[id]
		t, ok := day.Time(e)
		if !ok {
			switch e {
			case MoonRise:
				t = StartOfDay(day.Date)
			case MoonSet:
				t = EndOfDay(day.Date)
			default:
				continue
			}
		}
		entries = append(entries, Entry{ID: id, Label: e.Label(), Time: t})
	}
	return entries
}
