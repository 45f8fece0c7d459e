// SPDX-License-Identifier: MIT

package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket bridge flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Engine flags
	configPath   string
	sessionLog   string
	enableHazard bool
)

var rootCmd = &cobra.Command{
	Use:   "uartprobe",
	Short: "MBP481-AXL boot console exploration tool",
	Long: `Uartprobe - a CLI tool for probing the MBP481-AXL baby monitor's boot
firmware over its UART console.

The boot firmware exposes several hidden command parsers behind a short
post-boot menu window. This tool tracks the window, drives the mode
state machine, and sweeps the ATE, CMOS shell, and bootloader frame
surfaces while classifying every response.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the UARTPROBE_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.

Opcode 0x0D payloads at or past 208 bytes overwrite the device's call stack
and are refused unless --enable-hazard is given.`,
	Version: "0.3.0",
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket bridge flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Engine flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Probe configuration file (TOML)")
	rootCmd.PersistentFlags().StringVar(&sessionLog, "session-log", "", "Write the structured session log to this file")
	rootCmd.PersistentFlags().BoolVar(&enableHazard, "enable-hazard", false, "Allow the known memory-corruption vector (opcode 0x0D, length >= 208)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
