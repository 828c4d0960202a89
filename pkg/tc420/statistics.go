// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tc420

import (
	"fmt"
	"sync"
	"time"
)

// Statistics counts exchanges on a channel. It is safe for concurrent use
// so a display can read it while a play session sends.
type Statistics struct {
	mu sync.Mutex
	s  StatsSnapshot
}

// StatsSnapshot is a point-in-time copy of the counters
type StatsSnapshot struct {
	StartTime time.Time

	FramesSent      uint64
	Acks            uint64
	Nacks           uint64
	Unanswered      uint64 // commands the device never answers
	TransportErrors uint64

	FrameRate float64 // frames/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{s: StatsSnapshot{StartTime: time.Now()}}
}

func (s *Statistics) recordSent() {
	s.mu.Lock()
	s.s.FramesSent++
	s.mu.Unlock()
}

func (s *Statistics) recordResponse(answered, ack bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case !answered:
		s.s.Unanswered++
	case ack:
		s.s.Acks++
	default:
		s.s.Nacks++
	}
}

func (s *Statistics) recordTransportError() {
	s.mu.Lock()
	s.s.TransportErrors++
	s.mu.Unlock()
}

// Snapshot returns the current counters with the frame rate calculated
func (s *Statistics) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.s
	if elapsed := time.Since(out.StartTime).Seconds(); elapsed > 0 {
		out.FrameRate = float64(out.FramesSent) / elapsed
	}
	return out
}

// Reset resets all counters
func (s *Statistics) Reset() {
	s.mu.Lock()
	s.s = StatsSnapshot{StartTime: time.Now()}
	s.mu.Unlock()
}

// String returns a formatted statistics summary
func (s StatsSnapshot) String() string {
	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Frames Sent:     %8d\n", s.FramesSent)
	result += fmt.Sprintf("Acknowledged:    %8d\n", s.Acks)
	if s.Nacks > 0 {
		result += fmt.Sprintf("Not Acked:       %8d\n", s.Nacks)
	}
	if s.Unanswered > 0 {
		result += fmt.Sprintf("Unanswered:      %8d\n", s.Unanswered)
	}
	if s.TransportErrors > 0 {
		result += fmt.Sprintf("Transport Errors:%8d\n", s.TransportErrors)
	}
	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += "================================\n"
	return result
}
