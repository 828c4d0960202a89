// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"math/rand"
	"testing"

	"github.com/Thermoquad/tc420ctl/pkg/tc420"
)

func TestDemoScene_Steps(t *testing.T) {
	mask := [tc420.NumChannels]bool{true, true, false, true, false}
	scene := newDemoScene(rand.New(rand.NewSource(42)), mask)

	var prev [tc420.NumChannels]int
	for i := 0; i < 5000; i++ {
		step, err := scene.Next(context.Background(), i)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if step.Duration != demoStepTime {
			t.Fatalf("step %d: duration %s", i, step.Duration)
		}

		for c, v := range step.Channels {
			if v < 0 || v > 100 {
				t.Fatalf("step %d: channel %d = %d", i, c+1, v)
			}
			if !mask[c] && v != 0 {
				t.Fatalf("step %d: masked channel %d = %d", i, c+1, v)
			}
			if i > 0 && (v-prev[c] > 1 || prev[c]-v > 1) {
				t.Fatalf("step %d: channel %d jumped %d -> %d", i, c+1, prev[c], v)
			}
		}
		prev = step.Channels
	}
}

func TestDemoScene_Deterministic(t *testing.T) {
	mask := [tc420.NumChannels]bool{true, true, true, true, true}
	a := newDemoScene(rand.New(rand.NewSource(7)), mask)
	b := newDemoScene(rand.New(rand.NewSource(7)), mask)

	for i := 0; i < 100; i++ {
		sa, _ := a.Next(context.Background(), i)
		sb, _ := b.Next(context.Background(), i)
		if sa != sb {
			t.Fatalf("step %d differs: %v vs %v", i, sa, sb)
		}
	}
}

func TestDemoScene_StopsOnCancel(t *testing.T) {
	scene := newDemoScene(rand.New(rand.NewSource(1)), [tc420.NumChannels]bool{true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := scene.Next(ctx, 0); err == nil {
		t.Error("Next() on a cancelled context should fail")
	}
}
