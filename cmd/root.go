// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/tc420ctl/internal/config"
	"github.com/Thermoquad/tc420ctl/internal/logger"
	"github.com/Thermoquad/tc420ctl/pkg/tc420"
	"github.com/Thermoquad/tc420ctl/pkg/tc420/usbdev"
)

var (
	// Device selection flags
	deviceIndex int
	timeout     time.Duration
	settleDelay time.Duration

	// Diagnostics flags
	logLevel  string
	tracePath string

	configPath string

	appConfig *config.Config
	appLog    *logger.Log
)

var rootCmd = &cobra.Command{
	Use:   "tc420ctl",
	Short: "TC420 LED Controller CLI Utility",
	Long: `tc420ctl - Program and drive TC420 5-channel LED dimmers over USB.

Modes are stored in the device's 64 banks and run on the device clock.
Play sessions fade the channels live from this computer without storing
anything.

Channel values are percentages from 0 to 100. Negative values are "jump"
(immediate) values shifted by one, since -0 cannot be written: -1 is 0%,
-2 is 1% ... and -101 is 100%.

Device selection:
  The TC420 has no serial number. With several attached, devices are
  ordered by their USB bus path and picked with --device N (see "list").
  The default -1 opens the first one found.

Settings may also come from a program file (--config), see "program".`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&deviceIndex, "device", "d", -1, "Device index from \"list\" (-1 for the first found)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", tc420.DefaultTimeout, "USB transfer timeout")
	rootCmd.PersistentFlags().DurationVar(&settleDelay, "settle-delay", tc420.DefaultSettleDelay, "Pause after every exchange")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warning, error)")
	rootCmd.PersistentFlags().StringVar(&tracePath, "trace", "", "Record every frame to this file (read it back with \"trace\")")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Program file (TOML)")
}

// setup loads the program file and applies flag overrides to it
func setup(cmd *cobra.Command, args []string) error {
	return loadConfig(cmd, configPath)
}

func loadConfig(cmd *cobra.Command, path string) error {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = *loaded
	}

	flags := cmd.Flags()
	if flags.Changed("device") {
		cfg.Device.Index = deviceIndex
	}
	if flags.Changed("timeout") {
		cfg.Device.Timeout = timeout
	}
	if flags.Changed("settle-delay") {
		cfg.Device.SettleDelay = settleDelay
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log, err := logger.New(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	appConfig, appLog = &cfg, log
	appLog.With(logger.Fields{"module": "cmd"}).Debugf("configuration: %+v", cfg.Device)
	return nil
}

// exitError carries a process exit code
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// ExitCode maps a command error to the process exit code: 2 when the
// device failed or refused a command, 1 otherwise.
func ExitCode(err error) int {
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	var nack *tc420.NackError
	var transport *tc420.TransportError
	switch {
	case errors.Is(err, usbdev.ErrNoDeviceFound):
		return 1
	case errors.As(err, &nack), errors.As(err, &transport):
		return 2
	default:
		return 1
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
