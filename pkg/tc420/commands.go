// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tc420

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// All commands share the frame envelope and differ only in their command
// byte and data layout, so each one is described by a table entry and
// built by the same generic encoder.

type fieldKind int

const (
	fieldUint8 fieldKind = iota
	fieldUint16
	fieldName      // ASCII text, variable length
	fieldLevels    // NumChannels percentage bytes
	fieldJumpFlags // channel bitmask byte
)

type fieldSpec struct {
	name string
	kind fieldKind
}

func (k fieldKind) size() int {
	switch k {
	case fieldUint16:
		return 2
	case fieldLevels:
		return NumChannels
	case fieldName:
		return 0
	default:
		return 1
	}
}

type commandSpec struct {
	name     string
	response bool // false when the device never answers
	fields   []fieldSpec
}

var commandTable = map[Command]commandSpec{
	CmdAck:           {name: "ACK", response: true},
	CmdModeStepsStop: {name: "MODE_STEPS_STOP", response: false},
	CmdModeStop:      {name: "MODE_STOP", response: true},
	CmdClearAll:      {name: "CLEAR_ALL", response: true},
	CmdTimeSync: {name: "TIME_SYNC", response: true, fields: []fieldSpec{
		{"year", fieldUint16},
		{"month", fieldUint8},
		{"day", fieldUint8},
		{"hour", fieldUint8},
		{"minute", fieldUint8},
		{"second", fieldUint8},
	}},
	CmdModeInit: {name: "MODE_INIT", response: true, fields: []fieldSpec{
		{"bank", fieldUint8},
		{"steps", fieldUint8},
		{"name", fieldName},
	}},
	CmdModeStep: {name: "MODE_STEP", response: true, fields: []fieldSpec{
		{"hour", fieldUint8},
		{"minute", fieldUint8},
		{"levels", fieldLevels},
		{"jump", fieldJumpFlags},
	}},
	CmdPlayInit: {name: "PLAY_INIT", response: true, fields: []fieldSpec{
		{"name", fieldName},
		{"marker", fieldUint16},
	}},
	CmdPlaySetChannels: {name: "PLAY_SET_CHANNELS", response: true, fields: []fieldSpec{
		{"marker", fieldUint8},
		{"levels", fieldLevels},
		{"jump", fieldJumpFlags},
	}},
}

// CommandName returns the catalog name of a command
func CommandName(cmd Command) string {
	if spec, ok := commandTable[cmd]; ok {
		return spec.name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(cmd))
}

// ExpectsResponse reports whether the device answers a command.
// Only MODE_STEPS_STOP goes unanswered.
func ExpectsResponse(cmd Command) bool {
	spec, ok := commandTable[cmd]
	return !ok || spec.response
}

// buildFrame encodes values in table order. A value of the wrong type or
// count is a programming error.
func buildFrame(cmd Command, values ...any) *Frame {
	spec, ok := commandTable[cmd]
	if !ok {
		panic(fmt.Sprintf("tc420: unknown command 0x%02X", uint8(cmd)))
	}
	if len(values) != len(spec.fields) {
		panic(fmt.Sprintf("tc420: %s takes %d fields, got %d", spec.name, len(spec.fields), len(values)))
	}

	f := NewFrame(cmd)
	for i, field := range spec.fields {
		switch field.kind {
		case fieldUint8, fieldJumpFlags:
			f.WriteUint8(uint8(values[i].(int)))
		case fieldUint16:
			f.WriteUint16(uint16(values[i].(int)))
		case fieldName:
			f.WriteBytes(asciiName(values[i].(string)))
		case fieldLevels:
			levels := values[i].([NumChannels]int)
			for _, l := range levels {
				f.WriteUint8(uint8(l))
			}
		}
	}
	return f
}

// asciiName encodes a name as ASCII, replacing other characters with '?'.
func asciiName(name string) []byte {
	out := make([]byte, 0, len(name))
	for _, r := range name {
		if r > 0x7F {
			r = '?'
		}
		out = append(out, byte(r))
	}
	return out
}

func validateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < 1 || n > MaxNameLength {
		return &PreconditionError{
			Field:  "name",
			Reason: fmt.Sprintf("%q must be 1 to %d characters", name, MaxNameLength),
		}
	}
	return nil
}

// NewTimeSync creates a TIME_SYNC frame (0x11) setting the device clock to t.
func NewTimeSync(t time.Time) *Frame {
	return buildFrame(CmdTimeSync,
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// NewModeInit creates a MODE_INIT frame (0x12) announcing a mode of
// stepCount steps for bank.
func NewModeInit(bank, stepCount int, name string) (*Frame, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if bank < 0 || bank >= NumBanks {
		return nil, &PreconditionError{Field: "bank", Reason: fmt.Sprintf("%d outside 0..%d", bank, NumBanks-1)}
	}
	if stepCount < MinModeSteps {
		return nil, &PreconditionError{Field: "steps", Reason: fmt.Sprintf("need at least %d, got %d", MinModeSteps, stepCount)}
	}
	return buildFrame(CmdModeInit, bank, stepCount, name), nil
}

// NewModeStep creates a MODE_STEP frame (0x13). Jump-coded channels are
// sent as their decoded level with the matching jump flag bit set.
func NewModeStep(step ModeStep) (*Frame, error) {
	if step.Hour < 0 || step.Hour > 23 || step.Minute < 0 || step.Minute > 59 {
		return nil, &PreconditionError{Field: "time", Reason: fmt.Sprintf("%02d:%02d is not a time of day", step.Hour, step.Minute)}
	}
	if err := validateCodes(step.Channels); err != nil {
		return nil, err
	}
	return buildFrame(CmdModeStep,
		step.Hour, step.Minute, Levels(step.Channels), int(JumpFlags(step.Channels))), nil
}

// NewModeStepsStop creates a MODE_STEPS_STOP frame (0x01). The device does
// not answer it.
func NewModeStepsStop() *Frame {
	return buildFrame(CmdModeStepsStop)
}

// NewModeStop creates a MODE_STOP frame (0x02)
func NewModeStop() *Frame {
	return buildFrame(CmdModeStop)
}

// NewClearAll creates a CLEAR_ALL frame (0x03) erasing every bank
func NewClearAll() *Frame {
	return buildFrame(CmdClearAll)
}

// NewPlayInit creates a PLAY_INIT frame (0x15). The name is shown on the
// device display.
func NewPlayInit(name string) (*Frame, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	return buildFrame(CmdPlayInit, name, playInitMarker), nil
}

// NewPlaySetChannels creates a PLAY_SET_CHANNELS frame (0x16) with
// already decoded levels. Jump flags have no effect in play mode and are
// always zero.
func NewPlaySetChannels(levels [NumChannels]int) *Frame {
	var wire [NumChannels]int
	for i, l := range levels {
		if l < 0 {
			l = -l
		}
		wire[i] = min(MaxChannelCode, l)
	}
	return buildFrame(CmdPlaySetChannels, playChannelsMarker, wire, 0)
}
