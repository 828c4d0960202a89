// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tc420

import (
	"errors"
	"fmt"
)

var (
	// ErrEndOfSteps is returned by a StepSource when no steps remain.
	ErrEndOfSteps = errors.New("end of steps")

	// ErrAlreadyPlaying is returned when starting a play session while one runs.
	ErrAlreadyPlaying = errors.New("already in play mode")

	// ErrNotPlaying is returned when stepping or stopping without a running session.
	ErrNotPlaying = errors.New("not in play mode")
)

// PreconditionError reports an argument that violates the protocol's
// limits. Nothing has been sent when it is returned.
type PreconditionError struct {
	Field  string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NackError reports a command the device did not acknowledge. State the
// device already accepted is left in place.
type NackError struct {
	Command Command
	// Step is the 1-based mode step that failed, 0 for other commands.
	Step int
}

func (e *NackError) Error() string {
	if e.Step > 0 {
		return fmt.Sprintf("%s for step %d was not acknowledged", CommandName(e.Command), e.Step)
	}
	return fmt.Sprintf("%s was not acknowledged", CommandName(e.Command))
}

// IsNack returns true if err is or wraps a NackError.
func IsNack(err error) bool {
	var nack *NackError
	return errors.As(err, &nack)
}

// TransportError wraps an endpoint failure. It is never retried.
type TransportError struct {
	Command Command
	Op      string // "write" or "read"
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", CommandName(e.Command), e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
