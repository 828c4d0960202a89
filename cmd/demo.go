// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/tc420ctl/pkg/tc420"
)

var (
	demoChannels []int
	demoSeed     int64
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Fast play a demo scene",
	Long: `"Fast" play a demo scene. You can stop it by pressing Ctrl+C.

Channels fade in and out at random speeds. Programs already on the device
are not touched.

Example:
  # Only use channels 1, 2 and 5
  tc420ctl demo --channels 1,1,0,0,1`,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().IntSliceVarP(&demoChannels, "channels", "c", []int{1, 1, 1, 1, 1}, "Channel mask, 1 where the channel is used, 0 where not")
	demoCmd.Flags().Int64Var(&demoSeed, "seed", 0, "Random seed (0 for time based)")
	demoCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI when stdout is a terminal")
}

func runDemo(cmd *cobra.Command, args []string) error {
	if len(demoChannels) != tc420.NumChannels {
		return fmt.Errorf("--channels needs %d values, got %d", tc420.NumChannels, len(demoChannels))
	}
	var mask [tc420.NumChannels]bool
	for i, v := range demoChannels {
		if v != 0 && v != 1 {
			return fmt.Errorf("--channels: value %d for channel %d is not 0 or 1", v, i+1)
		}
		mask[i] = v == 1
	}

	seed := demoSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	appLog.Debugf("demo seed %d", seed)

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	scene := newDemoScene(rand.New(rand.NewSource(seed)), mask)
	return playAndFinish(cmd.Context(), s, "Demo", scene, formatDemoLine)
}

func formatDemoLine(_ int, _ time.Duration, v [tc420.NumChannels]int) string {
	return fmt.Sprintf("Playing (CTRL+C to exit)... CH1: %3d, CH2: %3d, CH3: %3d, CH4: %3d, CH5: %3d",
		v[0], v[1], v[2], v[3], v[4])
}

const (
	demoTick     = 0.0001 // seconds of scene time per timer pass
	demoStepTime = 100 * time.Microsecond
)

// demoScene is an endless step source that walks every channel up and
// down by one percent. Each channel waits its own random interval between
// moves and picks a new one when it turns around.
type demoScene struct {
	rng        *rand.Rand
	mask       [tc420.NumChannels]bool
	channels   [tc420.NumChannels]int
	directions [tc420.NumChannels]int
	sleeps     [tc420.NumChannels]float64
	timers     [tc420.NumChannels]float64
}

func newDemoScene(rng *rand.Rand, mask [tc420.NumChannels]bool) *demoScene {
	d := &demoScene{rng: rng, mask: mask}
	for i := range d.channels {
		d.channels[i] = rng.Intn(101)
		d.directions[i] = 1
		if rng.Intn(2) == 0 {
			d.directions[i] = -1
		}
		d.sleeps[i] = d.randSleep()
	}
	return d
}

func (d *demoScene) randSleep() float64 {
	return 0.0005 + d.rng.Float64()*0.01
}

// Next advances the timers until at least one channel moves
func (d *demoScene) Next(ctx context.Context, _ int) (tc420.PlayStep, error) {
	if err := ctx.Err(); err != nil {
		return tc420.PlayStep{}, err
	}

	changed := false
	for !changed {
		for i := range d.channels {
			d.timers[i] -= demoTick
			if d.timers[i] > 0 {
				continue
			}
			changed = true

			d.channels[i] += d.directions[i]
			if !d.mask[i] {
				d.channels[i] = 0
			}
			switch {
			case d.channels[i] <= 0:
				d.channels[i] = 0
				d.directions[i] = 1
				d.sleeps[i] = d.randSleep()
			case d.channels[i] >= 100:
				d.channels[i] = 100
				d.directions[i] = -1
				d.sleeps[i] = d.randSleep()
			}
			d.timers[i] = d.sleeps[i]
		}
	}

	return tc420.PlayStep{Duration: demoStepTime, Channels: d.channels}, nil
}
