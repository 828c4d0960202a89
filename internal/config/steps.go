// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Thermoquad/tc420ctl/pkg/tc420"
)

// Time-of-day layouts accepted in mode step lines
var timeLayouts = []string{"15:04", "15.04", "1504"}

// ParseModeStep parses "<TIME> <CH1> <CH2> <CH3> <CH4> <CH5>", for example
// "13:00 100 99 50 0 -70".
func ParseModeStep(line string) (tc420.ModeStep, error) {
	fields := strings.Fields(line)
	if len(fields) != 1+tc420.NumChannels {
		return tc420.ModeStep{}, fmt.Errorf("step %q: want a time and %d channel values", line, tc420.NumChannels)
	}

	var (
		t   time.Time
		err error
	)
	for _, layout := range timeLayouts {
		if t, err = time.Parse(layout, fields[0]); err == nil {
			break
		}
	}
	if err != nil {
		return tc420.ModeStep{}, fmt.Errorf("step %q: bad time %q", line, fields[0])
	}

	channels, err := parseChannels(fields[1:])
	if err != nil {
		return tc420.ModeStep{}, fmt.Errorf("step %q: %w", line, err)
	}
	return tc420.ModeStep{Hour: t.Hour(), Minute: t.Minute(), Channels: channels}, nil
}

// ParsePlayStep parses "<DURATION sec> <CH1> <CH2> <CH3> <CH4> <CH5>", for
// example "1.5 100 99 50 0 -70".
func ParsePlayStep(line string) (tc420.PlayStep, error) {
	fields := strings.Fields(line)
	if len(fields) != 1+tc420.NumChannels {
		return tc420.PlayStep{}, fmt.Errorf("step %q: want a duration and %d channel values", line, tc420.NumChannels)
	}

	secs, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || secs < 0 {
		return tc420.PlayStep{}, fmt.Errorf("step %q: bad duration %q", line, fields[0])
	}

	channels, err := parseChannels(fields[1:])
	if err != nil {
		return tc420.PlayStep{}, fmt.Errorf("step %q: %w", line, err)
	}
	return tc420.PlayStep{
		Duration: time.Duration(secs * float64(time.Second)),
		Channels: channels,
	}, nil
}

// ParseModeSteps parses every line, stopping at the first error
func ParseModeSteps(lines []string) ([]tc420.ModeStep, error) {
	steps := make([]tc420.ModeStep, 0, len(lines))
	for _, l := range lines {
		s, err := ParseModeStep(l)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, nil
}

// ParsePlaySteps parses every line, stopping at the first error
func ParsePlaySteps(lines []string) ([]tc420.PlayStep, error) {
	steps := make([]tc420.PlayStep, 0, len(lines))
	for _, l := range lines {
		s, err := ParsePlayStep(l)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, nil
}

func parseChannels(fields []string) ([tc420.NumChannels]int, error) {
	var out [tc420.NumChannels]int
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return out, fmt.Errorf("channel %d: %q is not a number", i+1, f)
		}
		if v < tc420.MinChannelCode || v > tc420.MaxChannelCode {
			return out, fmt.Errorf("channel %d: %d outside %d..%d", i+1, v, tc420.MinChannelCode, tc420.MaxChannelCode)
		}
		out[i] = v
	}
	return out, nil
}
