// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/tc420ctl/pkg/tc420/usbdev"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List attached TC420 devices",
	Long: `List attached TC420 devices in selection order.

The TC420 has no serial number, so devices are told apart by where they
are plugged in. The index shown here is what --device takes; it stays the
same as long as nothing is re-plugged.

Exit codes:
  0 - At least one device found
  1 - No device found`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	devices, err := usbdev.List()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return &exitError{code: 1, err: usbdev.ErrNoDeviceFound}
	}

	fmt.Printf("%-6s %-16s %-4s %-8s %s\n", "INDEX", "PATH", "BUS", "ADDRESS", "SPEED")
	for _, d := range devices {
		fmt.Printf("%-6d %-16s %03d  %03d      %s\n", d.Index, d.Path, d.Bus, d.Address, d.Speed)
	}
	fmt.Printf("\nDevices found: %d\n", len(devices))
	return nil
}
