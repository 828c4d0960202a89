// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tc420

import (
	"context"
	"sync"
	"testing"
	"time"
)

// mockTransport simulates a TC420 for testing. By default every frame is
// acknowledged; respond can script other answers.
type mockTransport struct {
	mu       sync.Mutex
	writes   [][]byte
	reads    int
	pending  []byte
	respond  func(n int, frame []byte) []byte // n is the 0-based write count
	writeErr error
	readErr  error
	closed   bool
}

func newMockTransport() *mockTransport {
	return &mockTransport{}
}

func (m *mockTransport) Write(_ context.Context, p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	frame := append([]byte(nil), p...)
	m.writes = append(m.writes, frame)
	if m.respond != nil {
		m.pending = m.respond(len(m.writes)-1, frame)
	} else {
		m.pending = ackFrame()
	}
	return len(p), nil
}

func (m *mockTransport) Read(_ context.Context, p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return 0, m.readErr
	}
	m.reads++
	return copy(p, m.pending), nil
}

func (m *mockTransport) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *mockTransport) frames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.writes...)
}

func (m *mockTransport) readCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *mockTransport) setReadErr(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
}

// commands returns the command byte of every written frame
func (m *mockTransport) commands() []Command {
	var out []Command
	for _, f := range m.frames() {
		out = append(out, Command(f[commandPos]))
	}
	return out
}

// ackFrame is what the device answers on success
func ackFrame() []byte {
	b := make([]byte, FrameSize)
	b[dataLenOffset+1] = 1
	b[dataOffset] = StatusOK
	return b
}

// nackFrame mimics the device's failure answer: the request echoed from
// offset 2.
func nackFrame(request []byte) []byte {
	b := make([]byte, FrameSize)
	copy(b, request[2:])
	return b
}

func nackAt(index int) func(int, []byte) []byte {
	return func(n int, frame []byte) []byte {
		if n == index {
			return nackFrame(frame)
		}
		return ackFrame()
	}
}

// fakeClock advances by step on every reading
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC), step: step}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

func testDevice(m *mockTransport, opts ...Option) *Device {
	return NewDevice(m, append([]Option{WithSettleDelay(0)}, opts...)...)
}

// waitFor polls cond until it holds or the test times out
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// stallTransport holds one read, once armed, until release delivers its
// outcome. The held read honors its context like a USB endpoint does.
type stallTransport struct {
	*mockTransport

	mu      sync.Mutex
	stall   chan error
	stalled chan struct{}
	aborted int
}

func newStallTransport() *stallTransport {
	return &stallTransport{mockTransport: newMockTransport()}
}

// arm makes the next read stall and returns a channel closed when it does
func (s *stallTransport) arm() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stall = make(chan error)
	s.stalled = make(chan struct{})
	return s.stalled
}

func (s *stallTransport) release(err error) {
	s.mu.Lock()
	stall := s.stall
	s.mu.Unlock()
	stall <- err
}

func (s *stallTransport) abortedReads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

func (s *stallTransport) Read(ctx context.Context, p []byte) (int, error) {
	s.mu.Lock()
	stall, stalled := s.stall, s.stalled
	s.stalled = nil
	s.mu.Unlock()

	if stalled != nil {
		close(stalled)
		select {
		case err := <-stall:
			if err != nil {
				return 0, err
			}
		case <-ctx.Done():
			s.mu.Lock()
			s.aborted++
			s.mu.Unlock()
			return 0, ctx.Err()
		}
	}
	return s.mockTransport.Read(ctx, p)
}

type logEntry struct {
	level string
	msg   string
	kv    []interface{}
}

// recordLogger keeps every log call
type recordLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordLogger) add(level, msg string, kv []interface{}) {
	l.mu.Lock()
	l.entries = append(l.entries, logEntry{level, msg, kv})
	l.mu.Unlock()
}

func (l *recordLogger) Debug(msg string, kv ...interface{}) { l.add("debug", msg, kv) }
func (l *recordLogger) Info(msg string, kv ...interface{})  { l.add("info", msg, kv) }
func (l *recordLogger) Error(msg string, kv ...interface{}) { l.add("error", msg, kv) }

func (l *recordLogger) errors() []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logEntry
	for _, e := range l.entries {
		if e.level == "error" {
			out = append(out, e)
		}
	}
	return out
}
