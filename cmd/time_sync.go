// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var timeSyncCmd = &cobra.Command{
	Use:   "time-sync",
	Short: "Synchronize device time to this computer",
	Long: `Set the device clock to the local time of this computer.

Modes run on the device clock, so sync it after a power loss.

Exit codes:
  0 - Time set
  1 - No device found
  2 - The device did not acknowledge`,
	RunE: runTimeSync,
}

func init() {
	rootCmd.AddCommand(timeSyncCmd)
}

func runTimeSync(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Print("Syncing time... ")
	return checkResult(s.dev.TimeSync(cmd.Context(), time.Now()))
}
