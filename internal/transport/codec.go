package transport

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/sweeney/sun-timer/internal/logic"
	"github.com/sweeney/sun-timer/internal/schedule"
)

// Encode marshals a record, debug record or status as JSON.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return data, nil
}

// commandJSON is the object form of an inbound command.
type commandJSON struct {
	Payload any  `json:"payload"`
	Timeout any  `json:"timeout"`
	Reset   bool `json:"reset"`
}

// DecodeCommand accepts either a JSON object
// {"payload": ..., "timeout": ..., "reset": ...}, a JSON scalar such as
// 1 or "on", or bare text such as on.
func DecodeCommand(data []byte) (logic.Command, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return logic.Command{}, fmt.Errorf("empty command")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if data[0] == '{' {
		var c commandJSON
		if err := dec.Decode(&c); err != nil {
			return logic.Command{}, fmt.Errorf("decode command: %w", err)
		}
		return logic.Command{Payload: c.Payload, Timeout: c.Timeout, Reset: c.Reset}, nil
	}

	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return logic.Command{Payload: string(data)}, nil
	}
	return logic.Command{Payload: v}, nil
}

// scheduleJSON is the boundary part of a command object.
type scheduleJSON struct {
	Start       any  `json:"start"`
	End         any  `json:"end"`
	StartOffset *int `json:"startOffset"`
	EndOffset   *int `json:"endOffset"`
}

// DecodeSchedule extracts a boundary update from a command object such as
// {"start": "sunset", "endOffset": -10}. ok is false when data carries no
// boundary keys.
func DecodeSchedule(data []byte) (u schedule.Update, ok bool, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return u, false, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var s scheduleJSON
	if err := dec.Decode(&s); err != nil {
		return u, false, fmt.Errorf("decode schedule: %w", err)
	}

	if s.Start != nil {
		spec, err := decodeTimeSpec(s.Start)
		if err != nil {
			return u, false, fmt.Errorf("start: %w", err)
		}
		u.Start = &spec
	}
	if s.End != nil {
		spec, err := decodeTimeSpec(s.End)
		if err != nil {
			return u, false, fmt.Errorf("end: %w", err)
		}
		u.End = &spec
	}
	u.StartOffset = s.StartOffset
	u.EndOffset = s.EndOffset

	ok = u.Start != nil || u.End != nil || u.StartOffset != nil || u.EndOffset != nil
	return u, ok, nil
}

func decodeTimeSpec(v any) (schedule.TimeSpec, error) {
	switch t := v.(type) {
	case string:
		return schedule.Parse(t)
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return schedule.TimeSpec{}, fmt.Errorf("time spec %s: %w", t, err)
		}
		return schedule.Decode(int(n))
	}
	return schedule.TimeSpec{}, fmt.Errorf("time spec %v: want string or integer", v)
}
