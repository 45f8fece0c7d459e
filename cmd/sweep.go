// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazardcore/uartprobe/pkg/mbp481"
	"github.com/hazardcore/uartprobe/pkg/probe"
)

var (
	sweepFamily     string
	sweepFirst      string
	sweepLast       string
	sweepOpcode     string
	sweepLengths    []int
	sweepFill       uint8
	sweepAddrs      []string
	sweepBlockLens  []int
	sweepTranscript string
	sweepUseTUI     bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Sweep a frame surface and classify every response",
	Long: `Probe a range of frames against one of the binary parsers and record
how the device answers each one.

Families:
  ate        Zero-length frames across an opcode range (default 0x00-0xFF)
  ate-len    One opcode across a series of payload lengths (--opcode, --lengths)
  bootloader Address/length pairs in both checksum variants (--addr, --block-len)

Responses are classified against the known reply literals; anything
unrecognized is kept verbatim in the session history. Use --transcript to
export the full history as CBOR for offline analysis.`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepFamily, "family", "ate", "Frame family to sweep (ate, ate-len, bootloader)")
	sweepCmd.Flags().StringVar(&sweepFirst, "first", "0x00", "First opcode (ate family)")
	sweepCmd.Flags().StringVar(&sweepLast, "last", "0xFF", "Last opcode (ate family)")
	sweepCmd.Flags().StringVar(&sweepOpcode, "opcode", "0x0D", "Opcode under test (ate-len family)")
	sweepCmd.Flags().IntSliceVar(&sweepLengths, "lengths", []int{0, 1, 16, 64, 128, 192, 207}, "Payload lengths to try (ate-len family)")
	sweepCmd.Flags().Uint8Var(&sweepFill, "fill", 'A', "Payload fill byte (ate-len family)")
	sweepCmd.Flags().StringSliceVar(&sweepAddrs, "addr", []string{"0x00000000", "0x80000000"}, "Addresses to read (bootloader family)")
	sweepCmd.Flags().IntSliceVar(&sweepBlockLens, "block-len", []int{16, 256}, "Read lengths (bootloader family)")
	sweepCmd.Flags().StringVar(&sweepTranscript, "transcript", "", "Export the session history as CBOR to this file")
	sweepCmd.Flags().BoolVar(&sweepUseTUI, "tui", false, "Show sweep progress in a terminal UI")
}

// parseByte accepts a hex byte with or without the 0x prefix
func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte value %q", s)
	}
	return byte(v), nil
}

func parseAddr(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return uint32(v), nil
}

// buildSweep resolves the family flags into a mode and a generator.
func buildSweep(cfg probe.Config) (mbp481.Mode, probe.FrameGenerator, int, error) {
	switch sweepFamily {
	case "ate":
		first, err := parseByte(sweepFirst)
		if err != nil {
			return 0, nil, 0, err
		}
		last, err := parseByte(sweepLast)
		if err != nil {
			return 0, nil, 0, err
		}
		if first > last {
			return 0, nil, 0, fmt.Errorf("--first must not exceed --last")
		}
		return mbp481.ModeAte, probe.AteOpcodeSweep(first, last), int(last) - int(first) + 1, nil

	case "ate-len":
		opcode, err := parseByte(sweepOpcode)
		if err != nil {
			return 0, nil, 0, err
		}
		gen := probe.AtePayloadLengthSweep(opcode, sweepLengths, sweepFill, cfg.AteMaxPayloadLen)
		return mbp481.ModeAte, gen, len(sweepLengths), nil

	case "bootloader":
		addrs := make([]uint32, len(sweepAddrs))
		for i, s := range sweepAddrs {
			a, err := parseAddr(s)
			if err != nil {
				return 0, nil, 0, err
			}
			addrs[i] = a
		}
		lengths := make([]uint16, len(sweepBlockLens))
		for i, l := range sweepBlockLens {
			if l < 0 || l > 0xFFFF {
				return 0, nil, 0, fmt.Errorf("block length %d out of range", l)
			}
			lengths[i] = uint16(l)
		}
		gen := probe.BootLoaderVariantSweep(mbp481.BootLoaderOpRead, addrs, lengths)
		return mbp481.ModeBootLoader, gen, len(addrs) * len(lengths) * 2, nil
	}
	return 0, nil, 0, fmt.Errorf("unknown family %q", sweepFamily)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadProbeConfig()
	if err != nil {
		return err
	}
	mode, gen, total, err := buildSweep(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if sweepUseTUI {
		return runSweepTUI(ctx, mode, gen, total)
	}

	session, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Printf("Uartprobe - %s sweep (%d frames)\n\n", sweepFamily, total)

	results, sweepErr := session.Sweep(ctx, mode, gen)
	for _, res := range results {
		fmt.Printf("%-40s %s\n", res.FrameDesc, mbp481.FormatVerdict(res.Verdict))
	}

	fmt.Println()
	fmt.Print(session.Stats().String())

	if sweepTranscript != "" {
		if err := exportTranscript(session, sweepTranscript); err != nil {
			return err
		}
		fmt.Printf("Transcript written to %s\n", sweepTranscript)
	}

	if sweepErr != nil && !errors.Is(sweepErr, probe.ErrSessionClosed) {
		return sweepErr
	}
	return nil
}

func exportTranscript(session *probe.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create transcript: %v", err)
	}
	defer f.Close()
	return probe.ExportTranscript(f, session.History())
}
