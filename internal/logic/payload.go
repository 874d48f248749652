package logic

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// PayloadType selects how a Template value is evaluated.
type PayloadType string

const (
	PayloadString PayloadType = "str"
	PayloadNumber PayloadType = "num"
	PayloadBool   PayloadType = "bool"
	PayloadJSON   PayloadType = "json"
	PayloadDate   PayloadType = "date" // current time in epoch millis
	PayloadEnv    PayloadType = "env"  // value of the named environment variable
)

// Template is the configured on or off payload.
type Template struct {
	Type  PayloadType `yaml:"type" json:"type" validate:"omitempty,oneof=str num bool json date env"`
	Value string      `yaml:"value" json:"value"`
}

// Evaluate produces the payload value at now.
func (t Template) Evaluate(now time.Time) (any, error) {
	switch t.Type {
	case "", PayloadString:
		return t.Value, nil
	case PayloadNumber:
		v, err := strconv.ParseFloat(t.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("num payload %q: %w", t.Value, err)
		}
		return v, nil
	case PayloadBool:
		v, err := strconv.ParseBool(t.Value)
		if err != nil {
			return nil, fmt.Errorf("bool payload %q: %w", t.Value, err)
		}
		return v, nil
	case PayloadJSON:
		var v any
		if err := json.Unmarshal([]byte(t.Value), &v); err != nil {
			return nil, fmt.Errorf("json payload: %w", err)
		}
		return v, nil
	case PayloadDate:
		return now.UnixMilli(), nil
	case PayloadEnv:
		return os.Getenv(t.Value), nil
	}
	return nil, fmt.Errorf("unknown payload type %q", t.Type)
}

// Validate checks that the template can be evaluated.
func (t Template) Validate() error {
	_, err := t.Evaluate(time.Time{})
	return err
}

func isEmptyPayload(v any) bool {
	s, ok := v.(string)
	return ok && s == ""
}
