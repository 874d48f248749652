package schedule

import (
	"errors"
	"fmt"
)

// ErrUnresolvableTimeSpec is matched by every UnresolvableError.
var ErrUnresolvableTimeSpec = errors.New("unresolvable time spec")

// UnresolvableError reports a time spec that cannot be mapped to a
// minute of the day.
type UnresolvableError struct {
	Spec        string
	StartMinute int
}

func (e *UnresolvableError) Error() string {
	return fmt.Sprintf("can't look up the correct time %q (start minute %d)", e.Spec, e.StartMinute)
}

// Is makes errors.Is(err, ErrUnresolvableTimeSpec) true.
func (e *UnresolvableError) Is(target error) bool {
	return target == ErrUnresolvableTimeSpec
}
