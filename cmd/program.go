// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var programCmd = &cobra.Command{
	Use:   "program [file]",
	Short: "Apply a program file to the device",
	Long: `Apply a program file (TOML) to the device: optionally sync the clock,
then write every [[mode]] in order and finish with a mode stop.

Modes without a bank take the previous mode's bank plus one; the first one
defaults to bank 0. Explicit and automatic numbering may be mixed.

Example file:

  time_sync = true

  [device]
  index = 0

  [[mode]]
  name = "sunrise"
  steps = ["06:00 0 0 0 0 0", "08:30 100 80 60 -41 0", "21:00 -1 -1 -1 -1 -1"]

  [[mode]]
  name = "night"
  bank = 5
  steps = ["21:00 5 5 0 0 0", "06:00 0 0 0 0 0"]

  [[play]]
  name = "test"
  steps = ["1.5 100 99 50 0 -70", "2 0 0 0 0 0"]

The file may also be given with --config. [[play]] scenes are run with
"play --config file".`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProgram,
}

func init() {
	rootCmd.AddCommand(programCmd)
}

func runProgram(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		if err := loadConfig(cmd, args[0]); err != nil {
			return err
		}
	} else if configPath == "" {
		return errors.New("no program file: pass one as argument or with --config")
	}

	modes, err := appConfig.ModeList()
	if err != nil {
		return err
	}
	if len(modes) == 0 && !appConfig.TimeSync {
		return errors.New("program file has nothing to write")
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if appConfig.TimeSync {
		fmt.Print("Syncing time... ")
		if err := checkResult(s.dev.TimeSync(cmd.Context(), time.Now())); err != nil {
			return err
		}
	}
	for _, m := range modes {
		if err := writeMode(cmd.Context(), s, m); err != nil {
			return err
		}
	}
	return s.finish()
}
