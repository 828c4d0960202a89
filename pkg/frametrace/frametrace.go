// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package frametrace records the frames exchanged with a TC420 and reads
// them back.
//
// A trace is a CBOR sequence: one header record naming the session and the
// device, then one record per frame in exchange order.
package frametrace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/Thermoquad/tc420ctl/pkg/tc420"
)

// Direction tells what a record holds
type Direction uint8

const (
	DirHeader Direction = iota
	DirOut              // host to device
	DirIn               // device to host
)

func (d Direction) String() string {
	switch d {
	case DirHeader:
		return "header"
	case DirOut:
		return "out"
	case DirIn:
		return "in"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// Record is one trace entry. Header records carry Note instead of Frame.
type Record struct {
	Session   uuid.UUID `cbor:"1,keyasint"`
	Seq       uint64    `cbor:"2,keyasint"`
	Time      time.Time `cbor:"3,keyasint"`
	Direction Direction `cbor:"4,keyasint"`
	Frame     []byte    `cbor:"5,keyasint,omitempty"`
	Note      string    `cbor:"6,keyasint,omitempty"`
}

// Packet decodes the record's frame
func (r Record) Packet() (*tc420.Packet, error) {
	return tc420.DecodeFrameAt(r.Frame, r.Time)
}

var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Recorder is a tc420.Transport that copies every frame moved through the
// wrapped transport to a trace.
type Recorder struct {
	transport tc420.Transport
	now       func() time.Time

	mu      sync.Mutex
	enc     *cbor.Encoder
	session uuid.UUID
	seq     uint64
	err     error
}

// NewRecorder starts a trace on w for transport and writes its header.
// note usually names the device.
func NewRecorder(transport tc420.Transport, w io.Writer, note string) (*Recorder, error) {
	return newRecorder(transport, w, note, time.Now)
}

func newRecorder(transport tc420.Transport, w io.Writer, note string, now func() time.Time) (*Recorder, error) {
	r := &Recorder{
		transport: transport,
		now:       now,
		enc:       encMode.NewEncoder(w),
		session:   uuid.New(),
	}
	header := Record{Session: r.session, Time: now(), Direction: DirHeader, Note: note}
	if err := r.enc.Encode(header); err != nil {
		return nil, fmt.Errorf("write trace header: %w", err)
	}
	return r, nil
}

// Session returns the id stamped on every record of this trace
func (r *Recorder) Session() uuid.UUID {
	return r.session
}

// Write writes p to the device and records what was written
func (r *Recorder) Write(ctx context.Context, p []byte) (int, error) {
	n, err := r.transport.Write(ctx, p)
	if n > 0 {
		r.record(DirOut, p[:n])
	}
	return n, err
}

// Read reads from the device and records what was read
func (r *Recorder) Read(ctx context.Context, p []byte) (int, error) {
	n, err := r.transport.Read(ctx, p)
	if n > 0 {
		r.record(DirIn, p[:n])
	}
	return n, err
}

// Close closes the wrapped transport. The trace writer is left open.
func (r *Recorder) Close() error {
	return r.transport.Close()
}

// Err returns the first error writing the trace. Tracing never fails an
// exchange.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) record(dir Direction, frame []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	r.seq++
	rec := Record{
		Session:   r.session,
		Seq:       r.seq,
		Time:      r.now(),
		Direction: dir,
		Frame:     append([]byte(nil), frame...),
	}
	if err := r.enc.Encode(rec); err != nil {
		r.err = fmt.Errorf("write trace record %d: %w", r.seq, err)
	}
}

// ErrNotTrace is returned when a stream does not start with a header record
var ErrNotTrace = errors.New("not a frame trace")

// Reader reads a trace written by a Recorder
type Reader struct {
	dec    *cbor.Decoder
	header Record
}

// NewReader reads the trace header from r
func NewReader(r io.Reader) (*Reader, error) {
	tr := &Reader{dec: cbor.NewDecoder(r)}
	if err := tr.dec.Decode(&tr.header); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNotTrace
		}
		return nil, fmt.Errorf("%w: %v", ErrNotTrace, err)
	}
	if tr.header.Direction != DirHeader || tr.header.Session == uuid.Nil {
		return nil, ErrNotTrace
	}
	return tr, nil
}

// Header returns the header record
func (r *Reader) Header() Record {
	return r.header
}

// Next returns the next frame record, or io.EOF after the last one.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		return Record{}, err
	}
	if rec.Session != r.header.Session {
		return Record{}, fmt.Errorf("record %d belongs to session %s", rec.Seq, rec.Session)
	}
	return rec, nil
}
