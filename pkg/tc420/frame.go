// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tc420

import (
	"encoding/binary"
	"fmt"
)

// Frame builds one outgoing 64-byte frame.
//
// Layout:
//
//	[0:2]   magic 0x55 0xAA
//	[2]     command
//	[3:5]   data length (big-endian)
//	[5:61]  data
//	[61]    checksum
//	[62:64] terminator 0x0D 0x0A
//
// Unpositioned writes append at the cursor, which starts at the first data
// byte. Positioned writes leave the cursor alone; a negative offset counts
// from the end of the frame, so offset -3 is the checksum byte.
type Frame struct {
	buf    [FrameSize]byte
	cursor int
}

// NewFrame creates an empty frame for the given command.
func NewFrame(cmd Command) *Frame {
	f := &Frame{cursor: dataOffset}
	copy(f.buf[0:2], Magic[:])
	f.buf[commandPos] = byte(cmd)
	copy(f.buf[FrameSize-2:], Terminator[:])
	return f
}

// Command returns the frame's command byte.
func (f *Frame) Command() Command {
	return Command(f.buf[commandPos])
}

// Cursor returns the offset of the next unpositioned read or write.
func (f *Frame) Cursor() int {
	return f.cursor
}

// position resolves an absolute offset and enforces the frame bounds.
// Overrunning the data region means a command layout is wrong, which is a
// programming error.
func position(offset, length int) int {
	if offset < 0 {
		offset += FrameSize
	}
	if offset < 0 || offset+length > limitOffset {
		panic(fmt.Sprintf("tc420: frame access out of range (offset %d, length %d)", offset, length))
	}
	return offset
}

// WriteBytes writes data at the cursor and advances it.
func (f *Frame) WriteBytes(data []byte) {
	if len(data) == 0 {
		return
	}
	pos := position(f.cursor, len(data))
	copy(f.buf[pos:], data)
	f.cursor += len(data)
}

// WriteBytesAt writes data at offset without moving the cursor.
func (f *Frame) WriteBytesAt(offset int, data []byte) {
	if len(data) == 0 {
		return
	}
	pos := position(offset, len(data))
	copy(f.buf[pos:], data)
}

// WriteUint8 appends one byte at the cursor.
func (f *Frame) WriteUint8(v uint8) {
	f.WriteBytes([]byte{v})
}

// WriteUint8At writes one byte at offset.
func (f *Frame) WriteUint8At(offset int, v uint8) {
	f.WriteBytesAt(offset, []byte{v})
}

// WriteUint16 appends a big-endian uint16 at the cursor.
func (f *Frame) WriteUint16(v uint16) {
	f.WriteBytes(binary.BigEndian.AppendUint16(nil, v))
}

// WriteUint16At writes a big-endian uint16 at offset.
func (f *Frame) WriteUint16At(offset int, v uint16) {
	f.WriteBytesAt(offset, binary.BigEndian.AppendUint16(nil, v))
}

// ReadBytes reads length bytes at the cursor and advances it.
func (f *Frame) ReadBytes(length int) []byte {
	out := f.ReadBytesAt(f.cursor, length)
	f.cursor += length
	return out
}

// ReadBytesAt reads length bytes at offset without moving the cursor.
func (f *Frame) ReadBytesAt(offset, length int) []byte {
	pos := position(offset, length)
	out := make([]byte, length)
	copy(out, f.buf[pos:pos+length])
	return out
}

// ReadUint8 reads one byte at the cursor.
func (f *Frame) ReadUint8() uint8 {
	return f.ReadBytes(1)[0]
}

// ReadUint8At reads one byte at offset.
func (f *Frame) ReadUint8At(offset int) uint8 {
	return f.ReadBytesAt(offset, 1)[0]
}

// ReadUint16 reads a big-endian uint16 at the cursor.
func (f *Frame) ReadUint16() uint16 {
	return binary.BigEndian.Uint16(f.ReadBytes(2))
}

// ReadUint16At reads a big-endian uint16 at offset.
func (f *Frame) ReadUint16At(offset int) uint16 {
	return binary.BigEndian.Uint16(f.ReadBytesAt(offset, 2))
}

// Finalize stamps the data length and checksum and returns a copy of the
// 64 wire bytes. It may be called again after further writes.
func (f *Frame) Finalize() []byte {
	dataLen := f.cursor - dataOffset
	if dataLen > MaxDataSize {
		panic(fmt.Sprintf("tc420: data length %d exceeds %d", dataLen, MaxDataSize))
	}
	f.WriteUint16At(dataLenOffset, uint16(dataLen))
	f.WriteUint8At(checksumPos, CalculateChecksum(f.buf[:]))

	out := make([]byte, FrameSize)
	copy(out, f.buf[:])
	return out
}
