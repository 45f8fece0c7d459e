// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/hazardcore/uartprobe/pkg/mbp481"
)

var snapshotMode string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Trigger the analog snapshot request",
	Long: `Send the snapshot request ('g'), optionally after entering a mode first.

The device stops accepting console input afterwards and keeps emitting its
analog video feed; only a power-cycle brings the menu back. The tool refuses
all further traffic once the request has been sent.`,
	RunE: runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().StringVar(&snapshotMode, "mode", "", "Enter this mode before the request (telemetry, cmos-day, cmos-night, ate)")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	session, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if snapshotMode != "" {
		mode, ok := entryModeNames[snapshotMode]
		if !ok {
			return fmt.Errorf("unknown mode %q", snapshotMode)
		}
		if !mbp481.SnapshotModes[mode] {
			return fmt.Errorf("mode %s does not accept the snapshot request", mode)
		}
		if _, err := session.EnterMode(ctx, mode); err != nil {
			return err
		}
	}

	res, err := session.Snapshot(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Snapshot requested from %s: %s\n", res.Mode, mbp481.FormatVerdict(res.Verdict))
	fmt.Println("Device is frozen now; power-cycle it to get the menu back.")
	return nil
}
