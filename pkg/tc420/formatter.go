// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package tc420

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// FormatFrame formats a packet into a human-readable string
func FormatFrame(p *Packet) string {
	timestamp := p.timestamp.Format("15:04:05.000")
	result := fmt.Sprintf("[%s] %s (0x%02X) len=%d checksum=0x%02X\n",
		timestamp, CommandName(p.Command()), uint8(p.Command()), p.DataLen(), p.Checksum())
	return result + FormatData(p.Command(), p.Data())
}

// FormatData decodes a data region using the command's field layout.
// Unknown commands, and data that does not fit the layout (such as device
// responses), are hex dumped.
func FormatData(cmd Command, data []byte) string {
	spec, ok := commandTable[cmd]
	if !ok || len(spec.fields) == 0 {
		if len(data) == 0 {
			return "  (no data)\n"
		}
		return hexDump(data)
	}

	fixed := 0
	for _, f := range spec.fields {
		fixed += f.kind.size()
	}
	if len(data) < fixed {
		return hexDump(data)
	}

	var b strings.Builder
	pos := 0
	for i, f := range spec.fields {
		size := f.kind.size()
		if f.kind == fieldName {
			rest := 0
			for _, g := range spec.fields[i+1:] {
				rest += g.kind.size()
			}
			size = len(data) - pos - rest
		}
		v := data[pos : pos+size]
		pos += size

		switch f.kind {
		case fieldUint8:
			fmt.Fprintf(&b, "  %s: %d\n", f.name, v[0])
		case fieldUint16:
			fmt.Fprintf(&b, "  %s: %d\n", f.name, binary.BigEndian.Uint16(v))
		case fieldName:
			fmt.Fprintf(&b, "  %s: %q\n", f.name, string(v))
		case fieldLevels:
			fmt.Fprintf(&b, "  %s:", f.name)
			for c, l := range v {
				fmt.Fprintf(&b, " CH%d=%d%%", c+1, l)
			}
			b.WriteString("\n")
		case fieldJumpFlags:
			fmt.Fprintf(&b, "  %s: 0b%05b\n", f.name, v[0])
		}
	}
	return b.String()
}

func hexDump(data []byte) string {
	result := "  Data: "
	for i, b := range data {
		if i > 0 && i%16 == 0 {
			result += "\n        "
		}
		result += fmt.Sprintf("%02X ", b)
	}
	return result + "\n"
}
