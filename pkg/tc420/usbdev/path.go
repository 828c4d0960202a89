// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package usbdev

import "fmt"

// BusPath builds the topology path of a device from the port numbers
// leading to it from the root hub. Each hop is written "bus:port" and hops
// are joined by dots, parent first:
//
//	BusPath(1, []int{2, 4}) == "01:02.01:04"
func BusPath(bus int, ports []int) string {
	if len(ports) == 0 {
		return fmt.Sprintf("%02d", bus)
	}
	hop := fmt.Sprintf("%02d:%02d", bus, ports[len(ports)-1])
	if len(ports) == 1 {
		return hop
	}
	return BusPath(bus, ports[:len(ports)-1]) + "." + hop
}
