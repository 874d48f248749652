package schedule

import (
	"time"

	"github.com/sweeney/sun-timer/internal/astro"
)

// Operation summarises whether today's schedule can switch on at all.
type Operation string

const (
	OperationNormal              Operation = "normal"
	OperationMinimumOnTimeNotMet Operation = "minimumOnTimeNotMet"
	OperationNoMidnightWrap      Operation = "noMidnightWrap"
)

// Config holds the boundary specifications of the daily interval.
type Config struct {
	Start        TimeSpec
	End          TimeSpec
	StartOffset  int // minutes, may be negative
	EndOffset    int
	WrapMidnight bool
	MinimumOn    int // minutes
}

// Update changes some of the boundary settings. Nil fields keep their
// current value.
type Update struct {
	Start       *TimeSpec
	End         *TimeSpec
	StartOffset *int
	EndOffset   *int
}

// Scheduler resolves the start and end boundaries once per calendar day
// and answers on/off questions against them. Not safe for concurrent use;
// the owner serialises access.
type Scheduler struct {
	cfg      Config
	provider astro.Provider
	resolver *Resolver

	actualStart int
	actualEnd   int
	resolvedFor string // calendar date of the last resolution
	dirty       bool
}

// New creates a Scheduler. provider may be nil when only literal and
// offset specs are used.
func New(cfg Config, provider astro.Provider) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		provider: provider,
		resolver: NewResolver(provider),
		dirty:    true,
	}
}

// Config returns the current boundary configuration.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// SetStartEndTime replaces any non-nil setting and resolves the result
// for now's calendar date. The new settings are only kept when both
// boundaries resolve; on error the scheduler is left unchanged.
func (s *Scheduler) SetStartEndTime(u Update, now time.Time) error {
	next := s.cfg
	if u.Start != nil {
		next.Start = *u.Start
	}
	if u.End != nil {
		next.End = *u.End
	}
	if u.StartOffset != nil {
		next.StartOffset = *u.StartOffset
	}
	if u.EndOffset != nil {
		next.EndOffset = *u.EndOffset
	}
	if next == s.cfg {
		return nil
	}

	start, end, err := s.resolve(next, now)
	if err != nil {
		return err
	}
	s.cfg = next
	s.commit(start, end, now)
	return nil
}

// Recompute resolves start then end for now's calendar date. It does
// nothing when the boundaries were already resolved for this date,
// unless force is set. On error the previous boundaries are kept.
func (s *Scheduler) Recompute(force bool, now time.Time) error {
	if !force && !s.dirty && now.Format(time.DateOnly) == s.resolvedFor {
		return nil
	}

	start, end, err := s.resolve(s.cfg, now)
	if err != nil {
		return err
	}
	s.commit(start, end, now)
	return nil
}

func (s *Scheduler) resolve(cfg Config, now time.Time) (start, end int, err error) {
	start, err = s.resolver.Resolve(cfg.Start, now, 0)
	if err != nil {
		return 0, 0, err
	}
	start += cfg.StartOffset

	end, err = s.resolver.Resolve(cfg.End, now, start)
	if err != nil {
		return 0, 0, err
	}
	return start, end + cfg.EndOffset, nil
}

func (s *Scheduler) commit(start, end int, now time.Time) {
	s.actualStart = start
	s.actualEnd = end
	s.resolvedFor = now.Format(time.DateOnly)
	s.dirty = false
}

// ActualStart returns the resolved start minute, offset included. It may
// lie outside [0, 1440) when an offset pushes it past midnight.
func (s *Scheduler) ActualStart() int { return s.actualStart }

// ActualEnd returns the resolved end minute, offset included.
func (s *Scheduler) ActualEnd() int { return s.actualEnd }

// TimeToNextStart returns the minutes until the next start boundary, in
// [0, 1440).
func (s *Scheduler) TimeToNextStart(now time.Time) float64 {
	return float64(mod(s.actualStart-MinuteOfDay(now), WholeDay))
}

// TimeToNextEnd returns the minutes until the next end boundary, in
// [0, 1440).
func (s *Scheduler) TimeToNextEnd(now time.Time) float64 {
	return float64(mod(s.actualEnd-MinuteOfDay(now), WholeDay))
}

// OnDuration returns end minus start, plus a day when the interval wraps
// midnight. A negative result means nothing switches on today.
func (s *Scheduler) OnDuration() int {
	d := s.actualEnd - s.actualStart
	if d < 0 && s.cfg.WrapMidnight {
		d += WholeDay
	}
	return d
}

// IsOn reports whether now lies inside the interval. Boundary minutes
// are off.
func (s *Scheduler) IsOn(now time.Time) bool {
	if s.OnDuration() < s.cfg.MinimumOn {
		return false
	}
	current := MinuteOfDay(now)
	if s.actualEnd < s.actualStart {
		return s.cfg.WrapMidnight && (current < s.actualEnd || current > s.actualStart)
	}
	return current > s.actualStart && current < s.actualEnd
}

// OperationToday classifies today's schedule.
func (s *Scheduler) OperationToday() Operation {
	d := s.OnDuration()
	if d >= 0 && d < s.cfg.MinimumOn {
		return OperationMinimumOnTimeNotMet
	}
	if !s.cfg.WrapMidnight && s.actualEnd < s.actualStart {
		return OperationNoMidnightWrap
	}
	return OperationNormal
}

// Debug is the scheduler part of the debug record.
type Debug struct {
	SunTimes       map[string]int `json:"sunTimes"`
	MoonTimes      map[string]int `json:"moonTimes"`
	Now            int            `json:"now"`
	ActualStart    int            `json:"actualStart"`
	ActualEnd      int            `json:"actualEnd"`
	NextStart      float64        `json:"nextStart"`
	NextEnd        float64        `json:"nextEnd"`
	OnState        bool           `json:"onState"`
	OperationToday Operation      `json:"operationToday"`
}

// Debug collects today's event minutes and the resolved state.
func (s *Scheduler) Debug(now time.Time) Debug {
	d := Debug{
		SunTimes:       map[string]int{},
		MoonTimes:      map[string]int{},
		Now:            MinuteOfDay(now),
		ActualStart:    s.actualStart,
		ActualEnd:      s.actualEnd,
		NextStart:      s.TimeToNextStart(now),
		NextEnd:        s.TimeToNextEnd(now),
		OnState:        s.IsOn(now),
		OperationToday: s.OperationToday(),
	}
	if s.provider == nil {
		return d
	}

	day := s.provider.Day(now)
	for e, t := range day.Sun {
		d.SunTimes[string(e)] = MinuteOfDay(t)
	}
	d.MoonTimes[string(astro.MoonRise)] = 0
	if t, ok := day.Time(astro.MoonRise); ok {
		d.MoonTimes[string(astro.MoonRise)] = MinuteOfDay(t)
	}
	d.MoonTimes[string(astro.MoonSet)] = WholeDay
	if t, ok := day.Time(astro.MoonSet); ok {
		d.MoonTimes[string(astro.MoonSet)] = MinuteOfDay(t)
	}
	return d
}
