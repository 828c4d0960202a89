// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads tc420ctl program files.
//
// A program file describes the device connection, logging, and any number
// of modes and play scenes:
//
//	[log]
//	level = "info"
//
//	[device]
//	index = -1
//	timeout = "5s"
//	settle_delay = "10ms"
//
//	time_sync = true
//
//	[[mode]]
//	name = "sunrise"
//	steps = ["06:00 0 0 0 0 0", "08:30 100 80 60 -41 0"]
//
//	[[play]]
//	name = "test"
//	steps = ["1.5 100 99 50 0 -70", "2 0 0 0 0 0"]
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Thermoquad/tc420ctl/pkg/tc420"
)

// AutoBank asks for the bank after the previous mode's.
const AutoBank = -1

// Config is a program file
type Config struct {
	Log      LogConf    `toml:"log"`
	Device   DeviceConf `toml:"device"`
	TimeSync bool       `toml:"time_sync"`
	Modes    []ModeConf `toml:"mode"`
	Plays    []PlayConf `toml:"play"`
}

// LogConf configures the logger
type LogConf struct {
	Level string `toml:"level"`
}

// DeviceConf selects and tunes the device connection
type DeviceConf struct {
	Index       int           `toml:"index"`
	Timeout     time.Duration `toml:"timeout"`
	SettleDelay time.Duration `toml:"settle_delay"`
}

// ModeConf is one persisted mode. Bank defaults to AutoBank.
type ModeConf struct {
	Name  string   `toml:"name"`
	Bank  *int     `toml:"bank"`
	Steps []string `toml:"steps"`
}

// PlayConf is one fast play scene
type PlayConf struct {
	Name  string   `toml:"name"`
	Steps []string `toml:"steps"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Log: LogConf{Level: "info"},
		Device: DeviceConf{
			Index:       -1,
			Timeout:     tc420.DefaultTimeout,
			SettleDelay: tc420.DefaultSettleDelay,
		},
	}
}

// Load reads a program file over the defaults and checks every step line.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err == nil {
		err = cfg.check(md)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &cfg, nil
}

// Decode parses a program file held in memory.
func Decode(data string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, &cfg)
	if err == nil {
		err = cfg.check(md)
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) check(md toml.MetaData) error {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	return c.validate()
}

func (c *Config) validate() error {
	if _, err := c.ModeList(); err != nil {
		return err
	}
	for _, p := range c.Plays {
		if _, err := p.PlaySteps(); err != nil {
			return err
		}
	}
	if c.Device.Timeout <= 0 {
		return fmt.Errorf("device timeout must be positive, got %s", c.Device.Timeout)
	}
	if c.Device.SettleDelay < 0 {
		return fmt.Errorf("device settle_delay must not be negative, got %s", c.Device.SettleDelay)
	}
	return nil
}

// ModeList converts the [[mode]] tables to modes with banks assigned.
func (c *Config) ModeList() ([]tc420.Mode, error) {
	requested := make([]int, len(c.Modes))
	for i, m := range c.Modes {
		requested[i] = AutoBank
		if m.Bank != nil {
			requested[i] = *m.Bank
		}
	}
	banks, err := AssignBanks(requested)
	if err != nil {
		return nil, err
	}

	modes := make([]tc420.Mode, len(c.Modes))
	for i, m := range c.Modes {
		steps, err := ParseModeSteps(m.Steps)
		if err != nil {
			return nil, fmt.Errorf("mode %q: %w", m.Name, err)
		}
		modes[i] = tc420.Mode{Name: m.Name, Bank: banks[i], Steps: steps}
	}
	return modes, nil
}

// Play returns the [[play]] scene called name, or the first one when name
// is empty.
func (c *Config) Play(name string) (*PlayConf, error) {
	for i := range c.Plays {
		if name == "" || c.Plays[i].Name == name {
			return &c.Plays[i], nil
		}
	}
	if name == "" {
		return nil, fmt.Errorf("no play scene defined")
	}
	return nil, fmt.Errorf("no play scene named %q", name)
}

// PlaySteps parses the scene's step lines
func (p *PlayConf) PlaySteps() ([]tc420.PlayStep, error) {
	steps, err := ParsePlaySteps(p.Steps)
	if err != nil {
		return nil, fmt.Errorf("play %q: %w", p.Name, err)
	}
	return steps, nil
}

// AssignBanks resolves AutoBank entries: each one takes the previous
// mode's bank plus one, and the first defaults to bank 0. Explicit and
// automatic numbering may be mixed.
func AssignBanks(requested []int) ([]int, error) {
	banks := make([]int, len(requested))
	prev := -1
	for i, b := range requested {
		if b == AutoBank {
			b = prev + 1
		}
		if b < 0 || b >= tc420.NumBanks {
			return nil, fmt.Errorf("mode %d: bank %d outside 0..%d", i+1, b, tc420.NumBanks-1)
		}
		banks[i] = b
		prev = b
	}
	return banks, nil
}
