// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tc420

import "time"

// Config holds the device configuration.
type Config struct {
	// Timeout bounds each endpoint write and read
	Timeout time.Duration

	// SettleDelay is slept after every exchange. The device has no flow
	// control and needs the pause to finish processing a command.
	SettleDelay time.Duration

	// Logger is used for logging exchanges (optional)
	Logger Logger

	// Now is the clock used by the play engine
	Now func() time.Time
}

func defaultConfig() Config {
	return Config{
		Timeout:     DefaultTimeout,
		SettleDelay: DefaultSettleDelay,
		Logger:      nopLogger{},
		Now:         time.Now,
	}
}

// Option is a functional option for configuring a Device or Channel.
type Option func(*Config)

// WithTimeout sets the endpoint write and read timeout.
//
// Example:
//
//	dev := tc420.NewDevice(handle, tc420.WithTimeout(2*time.Second))
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.Timeout = timeout
		}
	}
}

// WithSettleDelay sets the pause after every exchange. Zero disables it.
func WithSettleDelay(delay time.Duration) Option {
	return func(c *Config) {
		if delay >= 0 {
			c.SettleDelay = delay
		}
	}
}

// WithLogger sets a logger for exchanges and play sessions.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithClock replaces the wall clock used to measure play step progress.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		if now != nil {
			c.Now = now
		}
	}
}

// Logger is an optional logging interface so any logging framework can be
// plugged in.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
