// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tc420

import "fmt"

// AnomalyType represents different kinds of frame anomalies
type AnomalyType int

const (
	AnomalyBadMagic AnomalyType = iota
	AnomalyBadTerminator
	AnomalyChecksum
	AnomalyLength
	AnomalyUnknownCommand
)

// ValidationError describes one frame anomaly
type ValidationError struct {
	Type    AnomalyType
	Message string
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateFrame checks a frame built by the host against the envelope
// rules. Device responses carry no magic or checksum, so this is a
// diagnostic for traces and never gates an exchange.
func ValidateFrame(p *Packet) []ValidationError {
	errors := []ValidationError{}

	if m := p.Magic(); m != Magic {
		errors = append(errors, ValidationError{
			Type:    AnomalyBadMagic,
			Message: fmt.Sprintf("bad magic 0x%02X%02X", m[0], m[1]),
		})
	}
	if t := [2]byte{p.raw[FrameSize-2], p.raw[FrameSize-1]}; t != Terminator {
		errors = append(errors, ValidationError{
			Type:    AnomalyBadTerminator,
			Message: fmt.Sprintf("bad terminator 0x%02X%02X", t[0], t[1]),
		})
	}
	if want := CalculateChecksum(p.raw[:]); want != p.Checksum() {
		errors = append(errors, ValidationError{
			Type:    AnomalyChecksum,
			Message: fmt.Sprintf("checksum mismatch: expected 0x%02X, got 0x%02X", want, p.Checksum()),
		})
	}
	if p.DataLen() > MaxDataSize {
		errors = append(errors, ValidationError{
			Type:    AnomalyLength,
			Message: fmt.Sprintf("data length %d exceeds %d", p.DataLen(), MaxDataSize),
		})
	}
	if _, ok := commandTable[p.Command()]; !ok {
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownCommand,
			Message: fmt.Sprintf("unknown command 0x%02X", uint8(p.Command())),
		})
	}

	return errors
}
