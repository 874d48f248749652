package status

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/sweeney/sun-timer/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	State          string              `json:"state"` // ON or OFF
	Mode           string              `json:"mode"`
	AutoOn         bool                `json:"auto_on"`
	Text           string              `json:"text"`
	Fill           string              `json:"fill"`
	Shape          string              `json:"shape"`
	NextChangeMins float64             `json:"next_change_minutes"`
	OverrideMins   float64             `json:"override_minutes"`
	ActualStart    int                 `json:"actual_start"`
	ActualEnd      int                 `json:"actual_end"`
	OperationToday string              `json:"operation_today"`
	DayAllowed     bool                `json:"day_allowed"`
	Ready          bool                `json:"ready"`
	UptimeSeconds  int64               `json:"uptime_seconds"`
	StartTime      string              `json:"start_time"`
	Timestamp      string              `json:"timestamp"`
	Bus            BusStatus           `json:"bus"`
	Counts         CountsJSON          `json:"transition_counts"`
	Publishes      int                 `json:"publishes"`
	LastChange     *logic.ChangeRecord `json:"last_change,omitempty"`
	Config         ConfigJSON          `json:"config"`
}

// BusStatus reports message bus connection state.
type BusStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of transition counts.
type CountsJSON struct {
	On  int `json:"on"`
	Off int `json:"off"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Start     string  `json:"start"`
	End       string  `json:"end"`
	Topic     string  `json:"topic"`
	Broker    string  `json:"broker"`
	HTTPAddr  string  `json:"http_addr"`
}

// StateLabel returns ON, OFF or UNKNOWN before the runner has reported.
func (s Snapshot) StateLabel() string {
	switch {
	case !s.Ready:
		return "UNKNOWN"
	case s.Runner.On:
		return "ON"
	default:
		return "OFF"
	}
}

func buildInner(snap Snapshot) StatusInner {
	rs := snap.Runner
	mode := string(rs.Mode)
	if mode == "" {
		mode = string(logic.ModeAuto)
	}

	return StatusInner{
		State:          snap.StateLabel(),
		Mode:           mode,
		AutoOn:         rs.AutoOn,
		Text:           rs.Status.Text,
		Fill:           string(rs.Status.Fill),
		Shape:          string(rs.Status.Shape),
		NextChangeMins: rs.NextChange,
		OverrideMins:   rs.OverrideLeft,
		ActualStart:    rs.ActualStart,
		ActualEnd:      rs.ActualEnd,
		OperationToday: string(rs.OperationToday),
		DayAllowed:     rs.DayAllowed,
		Ready:          snap.Ready,
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		Bus:            BusStatus{Connected: snap.BusConnected, Broker: snap.Config.Broker},
		Counts:         CountsJSON{On: rs.Counts.On, Off: rs.Counts.Off},
		Publishes:      snap.Publishes,
		LastChange:     snap.LastChange,
		Config: ConfigJSON{
			Latitude:  snap.Config.Latitude,
			Longitude: snap.Config.Longitude,
			Start:     snap.Config.Start,
			End:       snap.Config.End,
			Topic:     snap.Config.Topic,
			Broker:    snap.Config.Broker,
			HTTPAddr:  snap.Config.HTTPAddr,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint and the state
// command.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}
