package logic

import (
	"errors"
	"fmt"
)

var (
	// ErrUnrecognizedCommand is matched by every CommandError.
	ErrUnrecognizedCommand = errors.New("unrecognized command")
	// ErrInvalidTimeout is matched by every TimeoutError.
	ErrInvalidTimeout = errors.New("invalid timeout value")
	// ErrClosed is returned for commands after Cleanup.
	ErrClosed = errors.New("runner closed")
)

// CommandError reports a payload outside the command vocabulary.
type CommandError struct {
	Payload any
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("did not understand the command '%v' supplied in payload", e.Payload)
}

// Is makes errors.Is(err, ErrUnrecognizedCommand) true.
func (e *CommandError) Is(target error) bool {
	return target == ErrUnrecognizedCommand
}

// TimeoutError reports a per-command timeout that is not a number.
type TimeoutError struct {
	Value any
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout '%v' is not a number", e.Value)
}

// Is makes errors.Is(err, ErrInvalidTimeout) true.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrInvalidTimeout
}
