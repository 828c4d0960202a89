// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tc420

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

func TestNewFrame_Envelope(t *testing.T) {
	f := NewFrame(CmdModeStop)
	wire := f.Finalize()

	if len(wire) != FrameSize {
		t.Fatalf("len = %d, want %d", len(wire), FrameSize)
	}
	if wire[0] != 0x55 || wire[1] != 0xAA {
		t.Errorf("magic = % X, want 55 AA", wire[0:2])
	}
	if wire[2] != byte(CmdModeStop) {
		t.Errorf("command = 0x%02X, want 0x%02X", wire[2], CmdModeStop)
	}
	if wire[62] != 0x0D || wire[63] != 0x0A {
		t.Errorf("terminator = % X, want 0D 0A", wire[62:])
	}
	if wire[3] != 0 || wire[4] != 0 {
		t.Errorf("data length = % X, want 00 00", wire[3:5])
	}
	if f.Cursor() != 5 {
		t.Errorf("Cursor() = %d, want 5", f.Cursor())
	}
}

func TestFrame_SequentialWritesAppend(t *testing.T) {
	f := NewFrame(CmdAck)

	f.WriteUint8(0x01)
	if f.Cursor() != 6 {
		t.Fatalf("cursor after uint8 = %d, want 6", f.Cursor())
	}
	f.WriteUint16(0x0203)
	if f.Cursor() != 8 {
		t.Fatalf("cursor after uint16 = %d, want 8", f.Cursor())
	}
	f.WriteBytes([]byte{0x04, 0x05, 0x06})
	if f.Cursor() != 11 {
		t.Fatalf("cursor after bytes = %d, want 11", f.Cursor())
	}
	f.WriteBytes(nil)
	if f.Cursor() != 11 {
		t.Errorf("empty write moved cursor to %d", f.Cursor())
	}

	got := f.ReadBytesAt(5, 6)
	want := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	if !bytes.Equal(got, want) {
		t.Errorf("data = % X, want % X", got, want)
	}
}

func TestFrame_NegativeOffsetIgnoresCursor(t *testing.T) {
	for _, prefix := range []int{0, 1, 7, 30, 56} {
		f := NewFrame(CmdAck)
		f.WriteBytes(make([]byte, prefix))
		before := f.Cursor()

		f.WriteUint8At(-3, 0xAB)

		if f.Cursor() != before {
			t.Errorf("prefix %d: cursor moved from %d to %d", prefix, before, f.Cursor())
		}
		if got := f.ReadUint8At(61); got != 0xAB {
			t.Errorf("prefix %d: byte 61 = 0x%02X, want 0xAB", prefix, got)
		}
	}
}

func TestFrame_ReadsMirrorWrites(t *testing.T) {
	f := NewFrame(CmdAck)
	f.WriteUint16(0xBEEF)
	f.WriteUint8(0x42)

	if got := f.ReadUint16At(5); got != 0xBEEF {
		t.Errorf("ReadUint16At(5) = 0x%04X, want 0xBEEF", got)
	}
	if got := f.ReadUint8At(7); got != 0x42 {
		t.Errorf("ReadUint8At(7) = 0x%02X, want 0x42", got)
	}
	if got := f.ReadUint16At(-61); got != 0xBEEF {
		t.Errorf("ReadUint16At(-61) = 0x%04X, want 0xBEEF", got)
	}
}

func TestFrame_OutOfRangePanics(t *testing.T) {
	tests := []struct {
		name string
		fn   func(f *Frame)
	}{
		{"write over terminator", func(f *Frame) { f.WriteBytesAt(60, []byte{1, 2, 3}) }},
		{"write at terminator", func(f *Frame) { f.WriteUint8At(-2, 1) }},
		{"cursor overrun", func(f *Frame) { f.WriteBytes(make([]byte, 58)) }},
		{"read over terminator", func(f *Frame) { f.ReadBytesAt(61, 2) }},
		{"offset before frame", func(f *Frame) { f.ReadUint8At(-65) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.fn(NewFrame(CmdAck))
		})
	}
}

func TestFinalize_DataTooLongPanics(t *testing.T) {
	f := NewFrame(CmdAck)
	f.WriteBytes(make([]byte, 57)) // ends at 62, allowed by the bounds check
	defer func() {
		if recover() == nil {
			t.Error("expected panic for 57 data bytes")
		}
	}()
	f.Finalize()
}

func TestFinalize_Checksum(t *testing.T) {
	tests := []struct {
		name  string
		frame *Frame
	}{
		{"empty", NewFrame(CmdClearAll)},
		{"time sync", NewTimeSync(time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC))},
		{"channels", NewPlaySetChannels([NumChannels]int{100, 100, 100, 100, 100})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire := tt.frame.Finalize()
			var sum int
			for _, b := range wire[:61] {
				sum += int(b)
			}
			if wire[61] != byte(sum%256) {
				t.Errorf("checksum = 0x%02X, want 0x%02X", wire[61], sum%256)
			}
		})
	}
}

func TestFinalize_Idempotent(t *testing.T) {
	f := NewModeStop()
	a := f.Finalize()
	b := f.Finalize()
	if !bytes.Equal(a, b) {
		t.Errorf("second Finalize differs:\n% X\n% X", a, b)
	}
	a[10] = 0xFF
	if f.ReadUint8At(10) == 0xFF {
		t.Error("Finalize returned the internal buffer")
	}
}

func TestDecodeFrame_RoundTrip(t *testing.T) {
	f := NewFrame(CmdModeInit)
	f.WriteUint8(3)
	f.WriteUint8(4)
	f.WriteBytes([]byte("sunrise"))
	wire := f.Finalize()

	p, err := DecodeFrame(wire)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	if p.Magic() != Magic {
		t.Errorf("Magic() = % X", p.Magic())
	}
	if p.Command() != CmdModeInit {
		t.Errorf("Command() = 0x%02X, want 0x%02X", p.Command(), CmdModeInit)
	}
	if p.DataLen() != 9 {
		t.Errorf("DataLen() = %d, want 9", p.DataLen())
	}
	if want := append([]byte{3, 4}, "sunrise"...); !bytes.Equal(p.Data(), want) {
		t.Errorf("Data() = % X, want % X", p.Data(), want)
	}
	if p.Checksum() != CalculateChecksum(wire) {
		t.Errorf("Checksum() = 0x%02X, want 0x%02X", p.Checksum(), CalculateChecksum(wire))
	}
	if errs := ValidateFrame(p); len(errs) != 0 {
		t.Errorf("ValidateFrame() = %v, want none", errs)
	}
}

func TestDecodeFrame_InvalidSize(t *testing.T) {
	for _, n := range []int{0, 1, 63, 65} {
		if _, err := DecodeFrame(make([]byte, n)); err == nil {
			t.Errorf("DecodeFrame(%d bytes) should fail", n)
		}
	}
}

func TestPacket_DataClamped(t *testing.T) {
	b := make([]byte, FrameSize)
	b[3], b[4] = 0xFF, 0xFF
	p, _ := DecodeFrame(b)
	if len(p.Data()) != MaxDataSize {
		t.Errorf("len(Data()) = %d, want %d", len(p.Data()), MaxDataSize)
	}
	errs := ValidateFrame(p)
	found := false
	for _, e := range errs {
		if e.Type == AnomalyLength {
			found = true
		}
	}
	if !found {
		t.Errorf("ValidateFrame() = %v, want a length anomaly", errs)
	}
}

func TestPacket_IsAck(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want bool
	}{
		{"ack", ackFrame(), true},
		{"empty", make([]byte, FrameSize), false},
		{"echo of request", nackFrame(NewModeStop().Finalize()), false},
		{"non-zero status", func() []byte { b := ackFrame(); b[5] = 1; return b }(), false},
		{"two data bytes", func() []byte { b := ackFrame(); b[4] = 2; return b }(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodeFrame(tt.raw)
			if err != nil {
				t.Fatal(err)
			}
			if p.IsAck() != tt.want {
				t.Errorf("IsAck() = %v, want %v", p.IsAck(), tt.want)
			}
		})
	}
}

func TestValidateFrame_Corruption(t *testing.T) {
	wire := NewClearAll().Finalize()
	wire[0] = 0x00
	wire[63] = 0x00
	wire[61]++

	p, _ := DecodeFrame(wire)
	got := map[AnomalyType]bool{}
	for _, e := range ValidateFrame(p) {
		got[e.Type] = true
	}
	for _, want := range []AnomalyType{AnomalyBadMagic, AnomalyBadTerminator, AnomalyChecksum} {
		if !got[want] {
			t.Errorf("missing anomaly %d", want)
		}
	}
}

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := time.Now().UnixNano()
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if s, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			seed = s
		}
	}
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

func TestFuzz_FrameRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)

	for round := 0; round < getFuzzRounds(); round++ {
		cmd := Command(rng.Intn(256))
		data := make([]byte, rng.Intn(MaxDataSize+1))
		rng.Read(data)

		f := NewFrame(cmd)
		f.WriteBytes(data)
		wire := f.Finalize()

		p, err := DecodeFrame(wire)
		if err != nil {
			t.Fatalf("round %d: DecodeFrame failed: %v", round, err)
		}
		if p.Command() != cmd || p.DataLen() != len(data) || !bytes.Equal(p.Data(), data) {
			t.Fatalf("round %d: round trip mismatch for cmd 0x%02X len %d", round, cmd, len(data))
		}
		var sum byte
		for _, b := range wire[:61] {
			sum += b
		}
		if p.Checksum() != sum {
			t.Fatalf("round %d: checksum 0x%02X, want 0x%02X", round, p.Checksum(), sum)
		}
	}
}
