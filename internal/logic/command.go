package logic

import (
	"math"
	"strconv"
	"strings"
)

// Command is an inbound control message.
type Command struct {
	// Payload is the command word or value: on/off or 1/0 as a string or
	// number, a boolean, toggle, auto/default or sync. Strings are case
	// insensitive.
	Payload any
	// Timeout optionally overrides the override duration in minutes. Nil
	// means not given.
	Timeout any
	// Reset returns to automatic mode regardless of Payload.
	Reset bool
}

type action int

const (
	actionOff action = iota
	actionOn
	actionToggle
	actionAuto
	actionSync
)

// parseAction maps a payload onto the command vocabulary.
func parseAction(payload any) (action, error) {
	switch p := payload.(type) {
	case string:
		switch strings.ToLower(p) {
		case "0", "off":
			return actionOff, nil
		case "1", "on":
			return actionOn, nil
		case "toggle":
			return actionToggle, nil
		case "auto", "default":
			return actionAuto, nil
		case "sync":
			return actionSync, nil
		}
	case bool:
		if p {
			return actionOn, nil
		}
		return actionOff, nil
	default:
		if v, ok := toFloat(payload); ok {
			switch v {
			case 0:
				return actionOff, nil
			case 1:
				return actionOn, nil
			}
		}
	}
	return 0, &CommandError{Payload: payload}
}

// parseTimeout returns the explicit timeout in minutes, or nil when none
// was given.
func parseTimeout(v any) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	f, ok := toFloat(v)
	if !ok {
		s, isString := v.(string)
		if !isString {
			return nil, &TimeoutError{Value: v}
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, &TimeoutError{Value: v}
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &TimeoutError{Value: v}
	}
	return &f, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case interface{ Float64() (float64, error) }: // json.Number
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
