// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearAllCmd = &cobra.Command{
	Use:   "clear-all-modes",
	Short: "Clear all modes (programs) from the device",
	RunE:  runClearAll,
}

func init() {
	rootCmd.AddCommand(clearAllCmd)
}

func runClearAll(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Print("Clearing all modes from device... ")
	return checkResult(s.dev.ClearAllModes(cmd.Context()))
}
