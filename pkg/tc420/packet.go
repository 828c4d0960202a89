// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tc420

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Packet is a decoded, read-only 64-byte frame
type Packet struct {
	raw       [FrameSize]byte
	timestamp time.Time
}

// DecodeFrame decodes a received frame. The slice must hold exactly
// FrameSize bytes. Responses from the device are not fully formed frames,
// so no envelope checks are made here; see ValidateFrame.
func DecodeFrame(b []byte) (*Packet, error) {
	return DecodeFrameAt(b, time.Now())
}

// DecodeFrameAt is DecodeFrame for a frame captured at ts, such as one
// read back from a trace.
func DecodeFrameAt(b []byte, ts time.Time) (*Packet, error) {
	if len(b) != FrameSize {
		return nil, fmt.Errorf("invalid frame size: %d bytes (want %d)", len(b), FrameSize)
	}
	p := &Packet{timestamp: ts}
	copy(p.raw[:], b)
	return p, nil
}

// Magic returns the first two bytes of the frame
func (p *Packet) Magic() [2]byte {
	return [2]byte{p.raw[0], p.raw[1]}
}

// Command returns the command byte
func (p *Packet) Command() Command {
	return Command(p.raw[commandPos])
}

// DataLen returns the data length field
func (p *Packet) DataLen() int {
	return int(binary.BigEndian.Uint16(p.raw[dataLenOffset:dataOffset]))
}

// Data returns the first DataLen bytes of the data region. A length field
// larger than the region is clamped.
func (p *Packet) Data() []byte {
	n := p.DataLen()
	if n > MaxDataSize {
		n = MaxDataSize
	}
	out := make([]byte, n)
	copy(out, p.raw[dataOffset:dataOffset+n])
	return out
}

// Checksum returns the checksum byte
func (p *Packet) Checksum() uint8 {
	return p.raw[FrameSize+checksumPos]
}

// Raw returns a copy of all 64 bytes
func (p *Packet) Raw() []byte {
	out := make([]byte, FrameSize)
	copy(out, p.raw[:])
	return out
}

// Timestamp returns the decode time
func (p *Packet) Timestamp() time.Time {
	return p.timestamp
}

// IsAck reports whether the packet is a success acknowledgment: exactly
// one data byte holding StatusOK.
func (p *Packet) IsAck() bool {
	return p.DataLen() == 1 && p.raw[dataOffset] == StatusOK
}
