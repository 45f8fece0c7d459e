// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/hazardcore/uartprobe/pkg/mbp481"
	"github.com/hazardcore/uartprobe/pkg/probe"
)

var badcharLength int

var badcharCmd = &cobra.Command{
	Use:   "badchar",
	Short: "Find payload byte values the ATE parser mishandles",
	Long: `Send one frame per byte value 0x00-0xFF on the 0x0D vector, each with the
candidate byte embedded in an otherwise constant payload, and compare the
replies against the run's dominant response.

A byte whose reply deviates from the baseline is being consumed by something
other than the payload copy, which matters when building longer payloads.`,
	RunE: runBadchar,
}

func init() {
	rootCmd.AddCommand(badcharCmd)
	badcharCmd.Flags().IntVar(&badcharLength, "length", 32, "Payload length for each frame")
}

// verdictKey folds a verdict into a comparable baseline signature
func verdictKey(v mbp481.Verdict) string {
	return v.Kind.String() + "/" + v.Pattern
}

func runBadchar(cmd *cobra.Command, args []string) error {
	cfg, err := loadProbeConfig()
	if err != nil {
		return err
	}
	if badcharLength >= mbp481.AteHazardLength {
		return fmt.Errorf("--length %d is at or past the fault threshold (%d); use the sweep command with --enable-hazard for overflow work",
			badcharLength, mbp481.AteHazardLength)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	session, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Printf("Uartprobe - Bad Byte Finder (payload length %d)\n\n", badcharLength)

	results, sweepErr := session.Sweep(ctx, mbp481.ModeAte,
		probe.BadCharSweep(badcharLength, cfg.AteMaxPayloadLen))
	if sweepErr != nil {
		return sweepErr
	}
	if len(results) == 0 {
		return fmt.Errorf("no frames answered")
	}

	// The dominant reply is the baseline; everything else marks its byte
	counts := make(map[string]int)
	for _, res := range results {
		counts[verdictKey(res.Verdict)]++
	}
	baseline := ""
	for key, n := range counts {
		if baseline == "" || n > counts[baseline] {
			baseline = key
		}
	}
	fmt.Printf("Baseline reply: %s (%d/%d frames)\n\n", baseline, counts[baseline], len(results))

	bad := 0
	for _, res := range results {
		if verdictKey(res.Verdict) == baseline {
			continue
		}
		bad++
		// Candidate byte sits at the mark offset inside the encoded frame:
		// preamble, opcode, two length bytes, then 16 filler bytes
		candidate := res.FrameBytes[4+16]
		fmt.Printf("  0x%02X  %s\n", candidate, mbp481.FormatVerdict(res.Verdict))
	}
	if bad == 0 {
		fmt.Println("No deviating byte values found.")
	} else {
		fmt.Printf("\n%d byte values deviate from the baseline\n", bad)
	}
	return nil
}
