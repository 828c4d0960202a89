// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package tc420 implements the USB protocol of the TC420 5-channel LED
// dimmer controller.
//
// Every exchange with the device is a fixed 64-byte frame in both
// directions. This package provides the frame codec, the command catalog,
// a request/response channel over an abstract Transport, the mode
// programming sequence and the fast play engine that keeps channel values
// flowing to the device while a host-driven session runs.
package tc420

import "time"

// Frame layout
const (
	FrameSize     = 64
	MaxDataSize   = 56
	dataOffset    = 5 // first byte of the data region
	dataLenOffset = 3
	limitOffset   = 62 // reads and writes must end before the terminator
	checksumPos   = -3 // addressed from the end of the frame
	commandPos    = 2
)

// Frame envelope bytes
var (
	Magic      = [2]byte{0x55, 0xAA}
	Terminator = [2]byte{0x0D, 0x0A}
)

// Command is the command byte at offset 2 of every frame.
type Command uint8

// Command catalog
const (
	CmdAck             Command = 0x00
	CmdModeStepsStop   Command = 0x01
	CmdModeStop        Command = 0x02
	CmdClearAll        Command = 0x03
	CmdTimeSync        Command = 0x11
	CmdModeInit        Command = 0x12
	CmdModeStep        Command = 0x13
	CmdPlayInit        Command = 0x15
	CmdPlaySetChannels Command = 0x16
)

// Response status byte of a successful acknowledgment
const StatusOK = 0x00

// Channel and program limits
const (
	NumChannels    = 5
	NumBanks       = 64
	MaxNameLength  = 8
	MinModeSteps   = 2
	MaxChannelCode = 100
	MinChannelCode = -101
)

// Payload constants copied from the vendor tool. The device ignores them
// but they are sent for fidelity.
const (
	playInitMarker     = 0x7F
	playChannelsMarker = 0xF5
)

// Exchange timing defaults
const (
	DefaultTimeout     = 5000 * time.Millisecond
	DefaultSettleDelay = 10 * time.Millisecond
)
