// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tc420

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Transport is the endpoint pair of one opened device. Reads and writes
// move whole frames and must honor the context deadline.
type Transport interface {
	Write(ctx context.Context, p []byte) (int, error)
	Read(ctx context.Context, p []byte) (int, error)
	Close() error
}

// Channel performs request/response exchanges with one device.
//
// A Channel is not safe for concurrent use. The device interleaves
// nothing, so callers must never send from two goroutines at once.
type Channel struct {
	transport Transport
	config    Config
	stats     *Statistics
}

// NewChannel creates a Channel over an opened transport.
func NewChannel(t Transport, opts ...Option) *Channel {
	if t == nil {
		panic("transport cannot be nil")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newChannel(t, cfg)
}

func newChannel(t Transport, cfg Config) *Channel {
	return &Channel{
		transport: t,
		config:    cfg,
		stats:     NewStatistics(),
	}
}

// Statistics returns the channel's exchange counters
func (c *Channel) Statistics() *Statistics {
	return c.stats
}

// Send finalizes and writes f, then reads and decodes the device's answer.
//
// The result is true when expectAck is false, when the command has no
// answer (MODE_STEPS_STOP), or when the answer is an acknowledgment. Any
// other answer is false with a nil error; the caller decides whether that
// is fatal. Endpoint failures return a *TransportError and are not retried.
func (c *Channel) Send(ctx context.Context, f *Frame, expectAck bool) (bool, error) {
	cmd := f.Command()
	wire := f.Finalize()

	wctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	n, err := c.transport.Write(wctx, wire)
	cancel()
	if err == nil && n != len(wire) {
		err = io.ErrShortWrite
	}
	if err != nil {
		c.stats.recordTransportError()
		return false, &TransportError{Command: cmd, Op: "write", Err: err}
	}
	c.stats.recordSent()

	ok := true
	if ExpectsResponse(cmd) {
		resp, err := c.receive(ctx)
		if err != nil {
			c.stats.recordTransportError()
			return false, &TransportError{Command: cmd, Op: "read", Err: err}
		}
		if expectAck {
			ok = resp.IsAck()
		}
		c.stats.recordResponse(true, resp.IsAck())
		c.config.Logger.Debug("exchange",
			"command", CommandName(cmd),
			"ack", resp.IsAck(),
			"response", fmt.Sprintf("% X", resp.Data()),
		)
	} else {
		c.stats.recordResponse(false, false)
		c.config.Logger.Debug("exchange", "command", CommandName(cmd), "ack", "none")
	}

	time.Sleep(c.config.SettleDelay)
	return ok, nil
}

func (c *Channel) receive(ctx context.Context) (*Packet, error) {
	rctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	buf := make([]byte, FrameSize)
	n, err := c.transport.Read(rctx, buf)
	if err != nil {
		return nil, err
	}
	return DecodeFrame(buf[:n])
}

// Close closes the underlying transport
func (c *Channel) Close() error {
	return c.transport.Close()
}
