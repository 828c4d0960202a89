// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/tc420ctl/internal/config"
	"github.com/Thermoquad/tc420ctl/pkg/tc420"
)

var (
	modeName  string
	modeBank  int
	modeSteps []string
)

var modeCmd = &cobra.Command{
	Use:   "mode",
	Short: "Create (or modify) a mode (program)",
	Long: `Create (or modify) a mode (program) in a device bank.

Each --step gives a time of day and the five channel values to reach at
that time. Times may be written 13:00, 13.00 or 1300.

You can specify the bank number to overwrite a specific mode. Without one,
bank 0 is used. To write several modes with automatic bank numbering use
"program". Note that the device does not skip empty banks in its menu.

Example:
  tc420ctl mode -n test1 -s "00:00 0 0 0 0 0" -s "12:00 100 100 100 100 -101"`,
	RunE: runMode,
}

func init() {
	rootCmd.AddCommand(modeCmd)
	modeCmd.Flags().StringVarP(&modeName, "name", "n", "", "The name of the mode (1-8 characters)")
	modeCmd.Flags().IntVarP(&modeBank, "bank", "b", config.AutoBank, "Bank number, indexed from 0 (-1 for automatic)")
	modeCmd.Flags().StringArrayVarP(&modeSteps, "step", "s", nil, "Step: \"<TIME> <CH1> <CH2> <CH3> <CH4> <CH5>\"")
	modeCmd.MarkFlagRequired("name")
	modeCmd.MarkFlagRequired("step")
}

func runMode(cmd *cobra.Command, args []string) error {
	steps, err := config.ParseModeSteps(modeSteps)
	if err != nil {
		return err
	}
	banks, err := config.AssignBanks([]int{modeBank})
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	mode := tc420.Mode{Name: modeName, Bank: banks[0], Steps: steps}
	if err := writeMode(cmd.Context(), s, mode); err != nil {
		return err
	}
	return s.finish()
}

// writeMode programs one mode, printing each step number as it is accepted
func writeMode(ctx context.Context, s *session, mode tc420.Mode) error {
	fmt.Printf("Setting mode '%s' in bank %d... ", mode.Name, mode.Bank)
	s.modeStopNeeded = true

	err := s.dev.ProgramMode(ctx, mode, func(step int) {
		fmt.Printf("%d ", step)
	})
	if err != nil {
		fmt.Println("ERROR!")
		return err
	}
	fmt.Println("OK.")
	return nil
}
