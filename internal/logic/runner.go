package logic

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sweeney/sun-timer/internal/astro"
	"github.com/sweeney/sun-timer/internal/clock"
	"github.com/sweeney/sun-timer/internal/countdown"
	"github.com/sweeney/sun-timer/internal/schedule"
)

// Runner timing.
const (
	StartupDelay        = 2 * time.Second
	DefaultTickInterval = 30 * time.Second
	FastTickInterval    = time.Second
)

// Config is the runner configuration.
type Config struct {
	Schedule schedule.Config
	Rules    schedule.Rules

	Topic      string
	OnPayload  Template
	OffPayload Template

	// Override durations in minutes.
	OnTimeout  float64
	OffTimeout float64

	PublishOnStartup bool
	Repeat           bool
	RepeatInterval   time.Duration
	Debug            bool
	SendEmptyPayload bool
}

// Snapshot is a point-in-time view of the runner.
type Snapshot struct {
	Mode           Mode
	AutoOn         bool
	On             bool
	Status         Status
	NextChange     float64 // minutes
	OverrideLeft   float64 // minutes
	ActualStart    int
	ActualEnd      int
	OperationToday schedule.Operation
	DayAllowed     bool
	TickInterval   time.Duration
	LastPublish    time.Time
	LastChange     time.Time
	Counts         TransitionCounts
}

// Runner is the override state machine. Commands, ticks, the startup
// publish and override expiry are serialised by one mutex, so each runs
// to completion before the next starts.
type Runner struct {
	cfg   Config
	clk   clock.Clock
	out   Output
	log   zerolog.Logger
	sched *schedule.Scheduler

	mu          sync.Mutex
	timer       *countdown.Timer
	detector    *Detector
	mode        Mode
	overrideGen uint64
	lastPublish time.Time
	status      Status
	nextChange  float64
	startup     *clock.Timer
	tick        *clock.Timer
	interval    time.Duration
	started     bool
	closed      bool
}

// New creates a Runner and resolves today's schedule. provider may be nil
// if no boundary refers to an astronomical event.
func New(cfg Config, clk clock.Clock, provider astro.Provider, out Output, log zerolog.Logger) (*Runner, error) {
	r := &Runner{
		cfg:      cfg,
		clk:      clk,
		out:      out,
		log:      log.With().Str("component", "runner").Logger(),
		sched:    schedule.New(cfg.Schedule, provider),
		timer:    countdown.New(clk),
		detector: NewDetector(),
		mode:     ModeAuto,
	}
	if err := r.sched.Recompute(false, clk.Now()); err != nil {
		return nil, fmt.Errorf("resolve schedule: %w", err)
	}
	return r, nil
}

// Start arms the tick timer. With PublishOnStartup a forced publish
// follows after StartupDelay; otherwise the initial state and status are
// computed now without publishing.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.closed {
		return
	}
	r.started = true

	if r.cfg.PublishOnStartup {
		r.startup = r.clk.AfterFunc(StartupDelay, r.onStartup)
	} else {
		now := r.clk.Now()
		r.calcState(now)
		r.updateStatus(now)
	}
	r.armTick(DefaultTickInterval)
}

// Cleanup cancels all pending timers. No final publish is made.
func (r *Runner) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.startup.Stop()
	r.tick.Stop()
	r.timer.Stop()
}

// HandleCommand applies an inbound command and publishes the result with
// trigger input. Invalid commands return an error and change nothing.
func (r *Runner) HandleCommand(cmd Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	if cmd.Reset {
		if err := r.sched.Recompute(false, r.clk.Now()); err != nil {
			return err
		}
		r.setMode(ModeAuto)
		r.timer.Stop()
		return r.forceSend(TriggerInput)
	}

	timeout, err := parseTimeout(cmd.Timeout)
	if err != nil {
		return err
	}
	act, err := parseAction(cmd.Payload)
	if err != nil {
		return err
	}

	now := r.clk.Now()
	if err := r.sched.Recompute(false, now); err != nil {
		return err
	}
	r.calcState(now)

	switch act {
	case actionOff:
		r.doOverride(ModeTempOff, timeout)
	case actionOn:
		r.doOverride(ModeTempOn, timeout)
	case actionToggle:
		if r.effectiveState() {
			r.doOverride(ModeTempOff, timeout)
		} else {
			r.doOverride(ModeTempOn, timeout)
		}
	case actionAuto:
		r.doOverride(ModeAuto, nil)
	case actionSync:
	}

	r.log.Debug().Interface("payload", cmd.Payload).Str("mode", string(r.mode)).Msg("command applied")
	return r.forceSend(TriggerInput)
}

// SetStartEndTime changes boundary specs at runtime and publishes the
// resulting state. A change that cannot be resolved is rejected and the
// previous boundaries stay in force.
func (r *Runner) SetStartEndTime(u schedule.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.sched.SetStartEndTime(u, r.clk.Now()); err != nil {
		return err
	}
	return r.forceSend(TriggerInput)
}

// Snapshot returns the current state.
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clk.Now()
	return Snapshot{
		Mode:           r.mode,
		AutoOn:         r.detector.On(),
		On:             r.effectiveState(),
		Status:         r.status,
		NextChange:     r.nextChange,
		OverrideLeft:   r.timer.TimeLeft(),
		ActualStart:    r.sched.ActualStart(),
		ActualEnd:      r.sched.ActualEnd(),
		OperationToday: r.sched.OperationToday(),
		DayAllowed:     r.cfg.Rules.Allows(now),
		TickInterval:   r.interval,
		LastPublish:    r.lastPublish,
		LastChange:     r.detector.LastChange(),
		Counts:         r.detector.Counts(),
	}
}

// Debug returns the debug record for now.
func (r *Runner) Debug() DebugRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.debugRecord(r.clk.Now())
}

func (r *Runner) onStartup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if err := r.forceSend(TriggerTimer); err != nil {
		r.log.Error().Err(err).Msg("startup publish failed")
	}
}

func (r *Runner) onTick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	now := r.clk.Now()
	if err := r.sched.Recompute(false, now); err != nil {
		r.log.Error().Err(err).Msg("recompute schedule")
	}
	changed := r.calcState(now)
	r.updateStatus(now)

	repeatDue := r.cfg.Repeat && now.Sub(r.lastPublish) >= r.cfg.RepeatInterval
	if changed || repeatDue {
		r.publish(now, TriggerTimer)
	}

	r.armTick(r.tickInterval())
}

func (r *Runner) onOverrideExpired(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || gen != r.overrideGen {
		return
	}

	r.log.Info().Str("mode", string(r.mode)).Msg("override expired")
	r.setMode(ModeAuto)
	if err := r.forceSend(TriggerTimer); err != nil {
		r.log.Error().Err(err).Msg("publish after override expiry")
	}
}

// tickInterval is one second while the next change is under a minute
// away, the default cadence otherwise.
func (r *Runner) tickInterval() time.Duration {
	if r.nextChange*60 < 60 {
		return FastTickInterval
	}
	if !r.cfg.Repeat {
		return DefaultTickInterval
	}
	d := r.cfg.RepeatInterval / 3
	if d < time.Second {
		d = time.Second
	}
	return d
}

func (r *Runner) armTick(d time.Duration) {
	if d != r.interval {
		r.log.Debug().Dur("interval", d).Msg("tick interval")
	}
	r.tick.Stop()
	r.interval = d
	r.tick = r.clk.AfterFunc(d, r.onTick)
}

func (r *Runner) setMode(m Mode) {
	r.mode = m
	r.overrideGen++
}

func (r *Runner) doOverride(m Mode, timeout *float64) {
	r.setMode(m)
	if m == ModeAuto {
		r.timer.Stop()
		return
	}

	// An override equal to the automatic state is dropped.
	if (m == ModeTempOn) == r.detector.On() {
		r.setMode(ModeAuto)
		r.timer.Stop()
		return
	}

	minutes := r.cfg.OffTimeout
	if m == ModeTempOn {
		minutes = r.cfg.OnTimeout
	}
	if timeout != nil {
		minutes = *timeout
	}
	if minutes <= 0 {
		r.setMode(ModeAuto)
		r.timer.Stop()
		return
	}

	gen := r.overrideGen
	r.timer.Start(minutes, func() { r.onOverrideExpired(gen) })
}

// forceSend recomputes the schedule, updates the status and publishes.
func (r *Runner) forceSend(trigger Trigger) error {
	now := r.clk.Now()
	if err := r.sched.Recompute(false, now); err != nil {
		return err
	}
	r.calcState(now)
	r.updateStatus(now)
	r.publish(now, trigger)
	return nil
}

func (r *Runner) calcState(now time.Time) bool {
	changed := r.detector.Process(r.sched.IsOn(now), r.cfg.Rules.Allows(now), now)
	if changed {
		r.log.Info().Bool("on", r.detector.On()).Msg("automatic state changed")
	}
	return changed
}

func (r *Runner) effectiveState() bool {
	if r.mode == ModeAuto {
		return r.detector.On()
	}
	return r.mode == ModeTempOn
}

// nextAutoChange returns the minutes until the schedule flips the
// effective state, with the seconds of the current minute subtracted.
func (r *Runner) nextAutoChange(now time.Time, on bool) float64 {
	next := r.sched.TimeToNextStart(now)
	if on {
		next = r.sched.TimeToNextEnd(now)
	}
	next -= float64(now.Second()) / 60
	if next < 0 {
		next = 0
	}
	return next
}

func (r *Runner) updateStatus(now time.Time) {
	op := r.sched.OperationToday()
	active := op == schedule.OperationNormal && (r.cfg.Rules.Allows(now) || r.detector.On())

	fill := FillYellow
	var text []string
	if !active {
		text = append(text, "No action today")
		switch op {
		case schedule.OperationNoMidnightWrap:
			text = append(text, "off time is before on time")
		case schedule.OperationMinimumOnTimeNotMet:
			text = append(text, "minimum on time not met")
		}
	}

	on := r.effectiveState()
	r.nextChange = r.nextAutoChange(now, on)

	if active || r.mode != ModeAuto {
		state := "OFF"
		fill = FillRed
		if on {
			state = "ON"
			fill = FillGreen
		}

		display := r.nextChange
		if left := r.timer.TimeLeft(); left > 0 && left < display {
			display = left
		}
		r.nextChange = display

		if r.mode != ModeAuto {
			text = []string{fmt.Sprintf("Temporary %s for %s", state, HumanTime(display))}
		} else {
			text = append(text, fmt.Sprintf("%s for %s", state, HumanTime(display)))
		}
	}

	shape := ShapeDot
	if r.mode != ModeAuto {
		shape = ShapeRing
	}

	r.status = Status{Fill: fill, Shape: shape, Text: strings.Join(text, " - ")}
	r.out.Status(r.status)
}

func (r *Runner) publish(now time.Time, trigger Trigger) {
	tmpl := r.cfg.OffPayload
	if r.effectiveState() {
		tmpl = r.cfg.OnPayload
	}
	payload, err := tmpl.Evaluate(now)
	if err != nil {
		r.log.Error().Err(err).Msg("evaluate payload")
		payload = tmpl.Value
	}

	var change *ChangeRecord
	if r.cfg.SendEmptyPayload || !isEmptyPayload(payload) {
		change = &ChangeRecord{
			ID:              uuid.NewString(),
			State:           r.mode,
			Stamp:           now.UnixMilli(),
			AutoState:       r.mode == ModeAuto,
			TemporaryManual: r.mode != ModeAuto,
			Timeout:         r.timer.TimeLeft(),
			Payload:         payload,
			Topic:           r.cfg.Topic,
			Trigger:         trigger,
		}
	}

	var debug *DebugRecord
	if r.cfg.Debug {
		d := r.debugRecord(now)
		debug = &d
	}

	r.lastPublish = now
	if change == nil && debug == nil {
		r.log.Debug().Msg("empty payload suppressed")
		return
	}
	r.log.Debug().Str("trigger", string(trigger)).Str("mode", string(r.mode)).Msg("publish")
	r.out.Send(change, debug)
}

func (r *Runner) debugRecord(now time.Time) DebugRecord {
	return DebugRecord{
		Debug:    r.sched.Debug(now),
		Override: r.mode,
		Topic:    DebugTopic,
	}
}
