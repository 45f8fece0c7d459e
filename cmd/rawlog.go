// SPDX-License-Identifier: MIT

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazardcore/uartprobe/pkg/mbp481"
	"github.com/hazardcore/uartprobe/pkg/probe"
)

var rawlogHex bool

var rawlogCmd = &cobra.Command{
	Use:   "rawlog",
	Short: "Dump everything the device prints on the console",
	Long: `Continuously read the UART and print whatever arrives, without sending
anything. Useful for capturing a full boot transcript and spotting new
banner or error literals worth adding to the classifier tables.

Prompt and reboot markers are annotated as they go by.`,
	RunE: runRawlog,
}

func init() {
	rootCmd.AddCommand(rawlogCmd)
	rawlogCmd.Flags().BoolVar(&rawlogHex, "hex", false, "Also print a hex dump of each chunk")
}

func runRawlog(cmd *cobra.Command, args []string) error {
	transport, connInfo, err := OpenTransport()
	if err != nil {
		return err
	}
	defer transport.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Uartprobe - Raw Console Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	tracker := probe.NewBootWindowTracker(probe.DefaultConfig().BootWindow)
	rebootTail := make([]byte, 0, len(mbp481.RebootSignature))

	for {
		if ctx.Err() != nil {
			return nil
		}
		data, err := transport.Read(1024, 200*time.Millisecond)
		if err != nil {
			return fmt.Errorf("read error: %v", err)
		}
		if len(data) == 0 {
			continue
		}

		fmt.Print(mbp481.Printable(data))
		if rawlogHex {
			fmt.Printf("\n  [%s]\n", mbp481.HexDump(data))
		}

		if tracker.Observe(data) == probe.WindowPromptSeen {
			fmt.Printf("\n>>> boot prompt observed, selection window open <<<\n")
		}

		// Reboot marker can straddle chunks like the prompt can
		rebootTail = append(rebootTail, data...)
		if len(rebootTail) > 2*len(mbp481.RebootSignature) {
			rebootTail = rebootTail[len(rebootTail)-2*len(mbp481.RebootSignature):]
		}
		if bytes.Contains(rebootTail, mbp481.RebootSignature) {
			fmt.Printf("\n>>> reboot signature observed, device restarting <<<\n")
			tracker.Rearm()
			rebootTail = rebootTail[:0]
		}
	}
}
