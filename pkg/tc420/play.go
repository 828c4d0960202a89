// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tc420

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

// State is the play engine state
type State int32

// Play engine states
const (
	StateIdle State = iota
	StateInitSent
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitSent:
		return "init-sent"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// StepSource yields play steps on demand. Next is called from the play
// worker with the index of the step to play and returns ErrEndOfSteps when
// the sequence is over. The context is cancelled when the session stops,
// so a source that blocks should watch it.
type StepSource interface {
	Next(ctx context.Context, index int) (PlayStep, error)
}

// StepSourceFunc adapts a function to StepSource
type StepSourceFunc func(ctx context.Context, index int) (PlayStep, error)

// Next calls f
func (f StepSourceFunc) Next(ctx context.Context, index int) (PlayStep, error) {
	return f(ctx, index)
}

// StepSlice plays a fixed list of steps once
type StepSlice []PlayStep

// Next returns the step at index
func (s StepSlice) Next(_ context.Context, index int) (PlayStep, error) {
	if index < 0 || index >= len(s) {
		return PlayStep{}, ErrEndOfSteps
	}
	return s[index], nil
}

// ChangeFunc is called from the play worker whenever the displayed channel
// values change. index is the number of steps completed so far.
type ChangeFunc func(index int, elapsed time.Duration, values [NumChannels]int)

// Player runs fast play sessions: a worker goroutine interpolates channel
// values towards the current step target and sends them to the device on
// every iteration. The device drops the session when the frames stop, so
// values are sent even when nothing changed.
type Player struct {
	channel *Channel
	config  Config

	state   atomic.Int32
	running atomic.Bool
	handoff chan PlayStep // single slot, newest step wins
	stop    context.CancelFunc
	done    chan struct{}
	err     error
}

func newPlayer(ch *Channel, cfg Config) *Player {
	return &Player{
		channel: ch,
		config:  cfg,
		handoff: make(chan PlayStep, 1),
	}
}

// State returns the current state
func (p *Player) State() State {
	return State(p.state.Load())
}

// Running reports whether a session is running
func (p *Player) Running() bool {
	return p.running.Load()
}

// Start sends PLAY_INIT and launches the worker. source may be nil, in
// which case steps only arrive through PlayStep. Cancelling ctx ends the
// session like Stop.
func (p *Player) Start(ctx context.Context, name string, source StepSource, onChange ChangeFunc) error {
	frame, err := NewPlayInit(name)
	if err != nil {
		return err
	}
	if !p.state.CompareAndSwap(int32(StateIdle), int32(StateInitSent)) {
		return ErrAlreadyPlaying
	}

	ok, err := p.channel.Send(ctx, frame, true)
	if err != nil || !ok {
		p.state.Store(int32(StateIdle))
		if err != nil {
			return fmt.Errorf("play init: %w", err)
		}
		return &NackError{Command: CmdPlayInit}
	}

	p.drain()
	stopCtx, stop := context.WithCancel(ctx)
	p.stop = stop
	p.done = make(chan struct{})
	p.err = nil
	p.running.Store(true)
	p.state.Store(int32(StateRunning))

	p.config.Logger.Info("play started", "name", name)
	go p.run(ctx, stopCtx, source, onChange)
	return nil
}

// Stop asks the worker to exit at its next iteration. It does not wait;
// use Wait to join.
func (p *Player) Stop() error {
	if !p.running.CompareAndSwap(true, false) {
		return ErrNotPlaying
	}
	// The worker may already have exited and stored StateIdle.
	p.state.CompareAndSwap(int32(StateRunning), int32(StateStopping))
	p.stop()
	return nil
}

// Wait blocks until the worker exits and returns its error. It returns
// nil at once if no session was started. It must not race with Start.
func (p *Player) Wait() error {
	if p.done == nil {
		return nil
	}
	<-p.done
	return p.err
}

// PlayStep replaces the current target with step; its fade starts now.
func (p *Player) PlayStep(step PlayStep) error {
	if !p.running.Load() {
		return ErrNotPlaying
	}
	if err := validateCodes(step.Channels); err != nil {
		return err
	}
	for {
		select {
		case p.handoff <- step:
			return nil
		default:
			p.drain()
		}
	}
}

func (p *Player) drain() {
	select {
	case <-p.handoff:
	default:
	}
}

// reset stops and joins a running session and forgets its state.
func (p *Player) reset() {
	if p.Stop() == nil {
		if err := p.Wait(); err != nil {
			p.config.Logger.Error("play session failed", "error", err)
		}
	}
	p.drain()
}

func (p *Player) run(ctx, stopCtx context.Context, source StepSource, onChange ChangeFunc) {
	defer close(p.done)
	defer func() {
		p.running.Store(false)
		p.stop()
		p.state.Store(int32(StateIdle))
	}()

	var (
		index    int
		baseline [NumChannels]int
		current  [NumChannels]int
		last     [NumChannels]int
		reported bool
		pending  *PlayStep
		start    time.Time
	)

	// A cancel only ends the loop. The exchange in flight runs to
	// completion so its answer is not left for the next command to read.
	sendCtx := context.WithoutCancel(ctx)

	for p.running.Load() {
		if ctx.Err() != nil {
			break
		}

		select {
		case s := <-p.handoff:
			pending, start = &s, p.config.Now()
		default:
		}

		if pending == nil && source != nil {
			s, err := source.Next(stopCtx, index)
			if errors.Is(err, ErrEndOfSteps) {
				p.config.Logger.Debug("step source exhausted", "steps", index)
				break
			}
			if err != nil {
				if stopCtx.Err() == nil {
					p.err = fmt.Errorf("step %d: %w", index, err)
				}
				break
			}
			if err := validateCodes(s.Channels); err != nil {
				p.err = fmt.Errorf("step %d: %w", index, err)
				break
			}
			pending, start = &s, p.config.Now()
		}

		if pending != nil {
			elapsed := p.config.Now().Sub(start)
			if elapsed >= pending.Duration {
				baseline = Levels(pending.Channels)
				current = baseline
				index++
				pending = nil
			} else {
				current = Interpolate(baseline, *pending, elapsed)
			}

			if onChange != nil && (!reported || current != last) {
				onChange(index, elapsed, current)
				last, reported = current, true
			}
		}

		ok, err := p.channel.Send(sendCtx, NewPlaySetChannels(current), true)
		if err != nil {
			p.err = err
			break
		}
		if !ok {
			p.config.Logger.Error("channel update not acknowledged", "step", index)
		}
	}

	p.config.Logger.Info("play stopped", "steps", index)
}

// Interpolate returns the displayed levels elapsed into step, fading from
// baseline. Jump-coded channels show their target at once. Fades are
// linear and rounded half to even.
func Interpolate(baseline [NumChannels]int, step PlayStep, elapsed time.Duration) [NumChannels]int {
	var out [NumChannels]int
	for c, code := range step.Channels {
		target := Level(code)
		if IsJump(code) || step.Duration <= 0 || elapsed >= step.Duration {
			out[c] = target
			continue
		}
		if elapsed < 0 {
			elapsed = 0
		}
		frac := float64(elapsed) / float64(step.Duration)
		out[c] = int(math.RoundToEven(float64(baseline[c]) + float64(target-baseline[c])*frac))
	}
	return out
}
