// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tc420

import (
	"context"
	"fmt"
	"time"
)

// Device is one opened TC420. It programs modes and runs fast play
// sessions over a single Channel.
//
// Two goroutines may touch the device: the caller, and while a play
// session runs, the play worker. Programming calls are refused while a
// session runs, so only one of them ever sends.
type Device struct {
	channel *Channel
	player  *Player
	config  Config
}

// NewDevice creates a Device over an opened transport.
//
// Example:
//
//	handle, err := usbdev.Open(-1)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dev := tc420.NewDevice(handle, tc420.WithTimeout(2*time.Second))
//	defer dev.Close()
//	ok, err := dev.TimeSync(ctx, time.Now())
func NewDevice(t Transport, opts ...Option) *Device {
	if t == nil {
		panic("transport cannot be nil")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	ch := newChannel(t, cfg)
	return &Device{
		channel: ch,
		player:  newPlayer(ch, cfg),
		config:  cfg,
	}
}

// Channel returns the device's request/response channel
func (d *Device) Channel() *Channel {
	return d.channel
}

// Player returns the device's play engine
func (d *Device) Player() *Player {
	return d.player
}

// Close stops a running play session and closes the transport.
func (d *Device) Close() error {
	d.player.reset()
	return d.channel.Close()
}

func (d *Device) checkIdle() error {
	if d.player.State() != StateIdle {
		return ErrAlreadyPlaying
	}
	return nil
}

// TimeSync sets the device clock to t. A false result means the device
// did not acknowledge.
func (d *Device) TimeSync(ctx context.Context, t time.Time) (bool, error) {
	if err := d.checkIdle(); err != nil {
		return false, err
	}
	d.config.Logger.Info("syncing time", "time", t.Format(time.DateTime))
	return d.channel.Send(ctx, NewTimeSync(t), true)
}

// ProgramMode writes mode into its bank: MODE_INIT, one MODE_STEP per step,
// then MODE_STEPS_STOP. onStepDone (optional) is called with the 1-based
// step number after each step is acknowledged.
//
// All arguments are validated before anything is sent. The first
// unacknowledged frame aborts the sequence with a *NackError; steps already
// written stay on the device.
func (d *Device) ProgramMode(ctx context.Context, mode Mode, onStepDone func(step int)) error {
	if err := d.checkIdle(); err != nil {
		return err
	}

	initFrame, err := NewModeInit(mode.Bank, len(mode.Steps), mode.Name)
	if err != nil {
		return err
	}
	steps := make([]*Frame, len(mode.Steps))
	for i, s := range mode.Steps {
		if steps[i], err = NewModeStep(s); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	d.config.Logger.Info("programming mode", "name", mode.Name, "bank", mode.Bank, "steps", len(mode.Steps))

	ok, err := d.channel.Send(ctx, initFrame, true)
	if err != nil {
		return fmt.Errorf("mode %q: %w", mode.Name, err)
	}
	if !ok {
		return &NackError{Command: CmdModeInit}
	}

	for i, f := range steps {
		ok, err := d.channel.Send(ctx, f, true)
		if err != nil {
			return fmt.Errorf("mode %q step %d: %w", mode.Name, i+1, err)
		}
		if !ok {
			return &NackError{Command: CmdModeStep, Step: i + 1}
		}
		if onStepDone != nil {
			onStepDone(i + 1)
		}
	}

	if _, err := d.channel.Send(ctx, NewModeStepsStop(), false); err != nil {
		return fmt.Errorf("mode %q: %w", mode.Name, err)
	}
	return nil
}

// ModeStop ends programming or play. Any play session is stopped and
// joined first, and its state is discarded. A session that failed while
// stopping is logged, not returned.
func (d *Device) ModeStop(ctx context.Context) (bool, error) {
	d.player.reset()
	return d.channel.Send(ctx, NewModeStop(), true)
}

// ClearAllModes erases every bank.
func (d *Device) ClearAllModes(ctx context.Context) (bool, error) {
	if err := d.checkIdle(); err != nil {
		return false, err
	}
	return d.channel.Send(ctx, NewClearAll(), true)
}

// Play starts a fast play session. With wait set it blocks until the
// session ends and returns its terminal error.
func (d *Device) Play(ctx context.Context, name string, source StepSource, onChange ChangeFunc, wait bool) error {
	if err := d.player.Start(ctx, name, source, onChange); err != nil {
		return err
	}
	if wait {
		return d.player.Wait()
	}
	return nil
}

// Stop stops a running play session without waiting for it.
func (d *Device) Stop() error {
	return d.player.Stop()
}

// PlayStep hands the next target to a running play session.
func (d *Device) PlayStep(step PlayStep) error {
	return d.player.PlayStep(step)
}
