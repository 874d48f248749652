// Package logic contains the override state machine of the timer: it
// reconciles manual commands with the computed schedule and decides when
// to publish a change record and a status update.
//
// This package has no transport or hardware dependencies. Time comes from
// an injected clock.Clock so every path is testable with a fake clock.
package logic

import (
	"github.com/sweeney/sun-timer/internal/schedule"
)

// Mode is the override mode layered on top of the automatic schedule.
type Mode string

const (
	ModeAuto    Mode = "auto"
	ModeTempOn  Mode = "tempOn"
	ModeTempOff Mode = "tempOff"
)

// Trigger tells what caused a publish.
type Trigger string

const (
	TriggerTimer Trigger = "timer"
	TriggerInput Trigger = "input"
)

// Fill is the status indicator colour.
type Fill string

const (
	FillYellow Fill = "yellow"
	FillRed    Fill = "red"
	FillGreen  Fill = "green"
)

// Shape is the status indicator shape. A ring marks a manual override.
type Shape string

const (
	ShapeDot  Shape = "dot"
	ShapeRing Shape = "ring"
)

// Status is the human readable state of the timer.
type Status struct {
	Fill  Fill   `json:"fill"`
	Shape Shape  `json:"shape"`
	Text  string `json:"text"`
}

// On reports whether the status shows the effective state as ON. Only an
// ON state is rendered green.
func (s Status) On() bool {
	return s.Fill == FillGreen
}

// ChangeRecord is the primary output message.
type ChangeRecord struct {
	ID              string  `json:"_msgid"`
	State           Mode    `json:"state"`
	Stamp           int64   `json:"stamp"` // epoch millis
	AutoState       bool    `json:"autoState"`
	Duration        int     `json:"duration"` // always 0
	TemporaryManual bool    `json:"temporaryManual"`
	Timeout         float64 `json:"timeout"` // minutes left on the override
	Payload         any     `json:"payload"`
	Topic           string  `json:"topic"`
	Trigger         Trigger `json:"trigger"`
}

// DebugRecord is emitted next to a ChangeRecord when debugging is enabled.
type DebugRecord struct {
	schedule.Debug
	Override Mode   `json:"override"`
	Topic    string `json:"topic"`
}

// DebugTopic is the topic of every DebugRecord.
const DebugTopic = "debug"

// Output receives everything the runner produces. Calls are made while
// the runner holds its lock, so implementations must not call back into
// the runner.
type Output interface {
	// Send emits a change record, a debug record or both. change is nil
	// when the payload is suppressed; debug is nil unless debugging is on.
	Send(change *ChangeRecord, debug *DebugRecord)
	// Status reports the current status triple.
	Status(st Status)
}

// Outputs fans every call out to each Output in order.
type Outputs []Output

// Send implements Output.
func (o Outputs) Send(change *ChangeRecord, debug *DebugRecord) {
	for _, out := range o {
		out.Send(change, debug)
	}
}

// Status implements Output.
func (o Outputs) Status(st Status) {
	for _, out := range o {
		out.Status(st)
	}
}
