// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tc420

// CalculateChecksum returns the 8-bit sum of everything before the checksum
// byte (offsets 0..60) of a 64-byte frame.
func CalculateChecksum(frame []byte) uint8 {
	var sum uint8
	for _, b := range frame[:FrameSize+checksumPos] {
		sum += b
	}
	return sum
}
