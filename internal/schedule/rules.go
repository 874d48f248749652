package schedule

import (
	"fmt"
	"time"
)

// RuleKind is the polarity of a DayRule.
type RuleKind string

const (
	Include RuleKind = "include"
	Exclude RuleKind = "exclude"
)

// weekdayBase shifts ISO weekday numbers onto the day axis:
// 101 is Monday, 107 is Sunday.
const weekdayBase = 100

// DayRule selects days by month and day. Zero means any month or any
// day; Day is a day of the month (1-31) or a weekday code (101-107).
type DayRule struct {
	Kind  RuleKind `yaml:"type" json:"type" validate:"oneof=include exclude"`
	Month int      `yaml:"month" json:"month" validate:"min=0,max=12"`
	Day   int      `yaml:"day" json:"day" validate:"min=0,max=107"`
}

// Validate checks that Day is a day of the month or a weekday code.
func (r DayRule) Validate() error {
	if r.Day > 31 && (r.Day <= weekdayBase || r.Day > weekdayBase+7) {
		return fmt.Errorf("rule day %d: want 0-31 or 101-107", r.Day)
	}
	return nil
}

// Matches reports whether the rule selects date.
func (r DayRule) Matches(date time.Time) bool {
	monthOK := r.Month == 0 || r.Month == int(date.Month())
	dayOK := r.Day == 0 || r.Day == date.Day() || r.Day == WeekdayCode(date.Weekday())
	return monthOK && dayOK
}

// WeekdayCode returns 100 plus the ISO weekday number of w.
func WeekdayCode(w time.Weekday) int {
	if w == time.Sunday {
		return weekdayBase + 7
	}
	return weekdayBase + int(w)
}

// Rules is an ordered rule list. The last matching rule decides.
type Rules []DayRule

// Allows reports whether date is included. With no matching rule the day
// is excluded.
func (rs Rules) Allows(date time.Time) bool {
	ok := false
	for _, r := range rs {
		if r.Matches(date) {
			ok = r.Kind == Include
		}
	}
	return ok
}
