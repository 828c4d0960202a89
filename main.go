// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// tc420ctl - TC420 LED Controller CLI
//
// Programs modes into TC420 5-channel LED dimmers and plays scenes on them
// live over USB.

package main

import (
	"fmt"
	"os"

	"github.com/Thermoquad/tc420ctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cmd.ExitCode(err))
	}
}
