// SPDX-License-Identifier: MIT

// Uartprobe - MBP481-AXL Boot Console Explorer
//
// A CLI tool for probing the serial boot console of the Motorola
// MBP481-AXL camera firmware: mode entry, opcode and payload sweeps,
// register scans and raw console capture.

package main

import (
	"os"

	"github.com/hazardcore/uartprobe/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
