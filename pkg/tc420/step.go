// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tc420

import (
	"fmt"
	"time"
)

// Channel codes range over MinChannelCode..MaxChannelCode. A non-negative
// code is a fade target in percent. A negative code is a jump target
// shifted by one, since -0 cannot be written: -1 is 0%, -101 is 100%.

// IsJump reports whether a channel code is a jump (immediate) target.
func IsJump(code int) bool {
	return code < 0
}

// Level returns the target percentage encoded by a channel code,
// clamped to 0..100.
func Level(code int) int {
	if code < 0 {
		code = -code - 1
	}
	if code > MaxChannelCode {
		code = MaxChannelCode
	}
	return code
}

// JumpFlags returns the bitmask with bit i set when channel i is a jump.
func JumpFlags(codes [NumChannels]int) uint8 {
	var flags uint8
	for i, c := range codes {
		if IsJump(c) {
			flags |= 1 << i
		}
	}
	return flags
}

// Levels decodes all channel codes.
func Levels(codes [NumChannels]int) [NumChannels]int {
	var out [NumChannels]int
	for i, c := range codes {
		out[i] = Level(c)
	}
	return out
}

func validateCodes(codes [NumChannels]int) error {
	for i, c := range codes {
		if c < MinChannelCode || c > MaxChannelCode {
			return &PreconditionError{
				Field:  fmt.Sprintf("channel %d", i+1),
				Reason: fmt.Sprintf("code %d outside %d..%d", c, MinChannelCode, MaxChannelCode),
			}
		}
	}
	return nil
}

// ModeStep is one step of a persisted mode: at Hour:Minute of the device
// clock the channels fade (or jump) to their targets.
type ModeStep struct {
	Hour     int
	Minute   int
	Channels [NumChannels]int
}

// String formats the step the way step lines are written
func (s ModeStep) String() string {
	return fmt.Sprintf("%02d:%02d %d %d %d %d %d", s.Hour, s.Minute,
		s.Channels[0], s.Channels[1], s.Channels[2], s.Channels[3], s.Channels[4])
}

// Mode is a named program stored in a device bank
type Mode struct {
	Name  string
	Bank  int
	Steps []ModeStep
}

// PlayStep is one fast play target: fade to Channels over Duration.
// Jump-coded channels are applied immediately.
type PlayStep struct {
	Duration time.Duration
	Channels [NumChannels]int
}

// String formats the step the way step lines are written
func (s PlayStep) String() string {
	return fmt.Sprintf("%g %d %d %d %d %d", s.Duration.Seconds(),
		s.Channels[0], s.Channels[1], s.Channels[2], s.Channels[3], s.Channels[4])
}
