// SPDX-License-Identifier: MIT

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/hazardcore/uartprobe/pkg/mbp481"
	"github.com/hazardcore/uartprobe/pkg/probe"
)

var (
	regStart  int
	regEnd    int
	regNight  bool
	regDiff   bool
	regOutput string
)

var registersCmd = &cobra.Command{
	Use:   "registers",
	Short: "Scan the image sensor registers through the CMOS shell",
	Long: `Read a range of image sensor registers through the CMOS debug shell and
print the values the firmware reports.

The firmware carries two register banks behind separate menu entries, one for
the day sensor and one for the night sensor. --night scans the night bank;
--diff scans both banks and prints only the registers whose values differ.
A --diff run needs a power-cycle between the two scans because the shells are
only reachable from the boot menu.`,
	RunE: runRegisters,
}

func init() {
	rootCmd.AddCommand(registersCmd)
	registersCmd.Flags().IntVar(&regStart, "start", 0x00, "First register address")
	registersCmd.Flags().IntVar(&regEnd, "end", 0xFF, "Last register address")
	registersCmd.Flags().BoolVar(&regNight, "night", false, "Scan the night sensor bank")
	registersCmd.Flags().BoolVar(&regDiff, "diff", false, "Scan both banks and print the differences")
	registersCmd.Flags().StringVarP(&regOutput, "output", "o", "", "Write the scanned values as JSON to this file")
}

// saveBankJSON writes a scanned bank as {"0x12": "0x34", ...}, keyed and
// valued in hex so dumps diff cleanly in a text tool.
func saveBankJSON(path string, values map[byte]byte) error {
	out := make(map[string]string, len(values))
	for addr, data := range values {
		out[fmt.Sprintf("0x%02X", addr)] = fmt.Sprintf("0x%02X", data)
	}
	blob, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(blob, '\n'), 0o644)
}

// scanBank reads every register in [regStart, regEnd] from one shell. Missing
// entries mean the shell never produced a parseable reply for that address.
func scanBank(ctx context.Context, session *probe.Session, mode mbp481.Mode) (map[byte]byte, error) {
	if _, err := session.EnterMode(ctx, mode); err != nil {
		return nil, err
	}

	values := make(map[byte]byte)
	results, err := session.Sweep(ctx, mode, probe.CmosRegisterScan(regStart, regEnd))
	for _, res := range results {
		if addr, data, ok := mbp481.ParseRegisterReply(res.RawResponse); ok {
			values[addr] = data
		}
	}
	return values, err
}

func bankMode(night bool) mbp481.Mode {
	if night {
		return mbp481.ModeCmosNight
	}
	return mbp481.ModeCmosDay
}

func runRegisters(cmd *cobra.Command, args []string) error {
	if regStart < 0 || regEnd > 0xFF || regStart > regEnd {
		return fmt.Errorf("invalid register range 0x%02X..0x%02X", regStart, regEnd)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	session, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if !regDiff {
		mode := bankMode(regNight)
		fmt.Printf("Uartprobe - Register Scan (%s)\n\n", mode)

		values, err := scanBank(ctx, session, mode)
		if err != nil {
			return err
		}
		for addr := regStart; addr <= regEnd; addr++ {
			if data, ok := values[byte(addr)]; ok {
				fmt.Printf("  0x%02X = 0x%02X\n", addr, data)
			} else {
				fmt.Printf("  0x%02X   no reply\n", addr)
			}
		}
		fmt.Printf("\n%d/%d registers answered\n", len(values), regEnd-regStart+1)
		if regOutput != "" {
			if err := saveBankJSON(regOutput, values); err != nil {
				return err
			}
			fmt.Printf("Values written to %s\n", regOutput)
		}
		return nil
	}

	fmt.Printf("Uartprobe - Register Diff (day vs night)\n\n")

	day, err := scanBank(ctx, session, mbp481.ModeCmosDay)
	if err != nil {
		return err
	}

	fmt.Printf("Day bank scanned (%d registers). Power-cycle the device for the night bank.\n", len(day))
	session.NotifyHardReset()
	if err := session.WaitForPrompt(ctx); err != nil {
		return err
	}

	night, err := scanBank(ctx, session, mbp481.ModeCmosNight)
	if err != nil {
		return err
	}

	fmt.Printf("\n%-6s %-6s %-6s\n", "reg", "day", "night")
	diffs := 0
	for addr := regStart; addr <= regEnd; addr++ {
		d, dok := day[byte(addr)]
		n, nok := night[byte(addr)]
		if !dok && !nok {
			continue
		}
		if dok && nok && d == n {
			continue
		}
		diffs++
		dayStr, nightStr := "-", "-"
		if dok {
			dayStr = fmt.Sprintf("0x%02X", d)
		}
		if nok {
			nightStr = fmt.Sprintf("0x%02X", n)
		}
		fmt.Printf("0x%02X   %-6s %-6s\n", addr, dayStr, nightStr)
	}
	fmt.Printf("\n%d registers differ\n", diffs)
	return nil
}
