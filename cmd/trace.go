// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The dominobus Authors

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dominohub/dominobus/pkg/domino"
	"github.com/dominohub/dominobus/pkg/trace"
)

var (
	traceErrorsOnly bool
	traceModule     int
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Inspect exchange traces recorded with --trace",
}

var traceShowCmd = &cobra.Command{
	Use:   "show FILE",
	Short: "Print a recorded trace and its statistics",
	Long: `Print every exchange of a trace file recorded with --trace, followed
by outcome counts and latencies of the printed exchanges.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// #nosec G304 - user supplied trace file
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		return showTrace(f, cmd.OutOrStdout())
	},
}

func init() {
	traceShowCmd.Flags().BoolVarP(&traceErrorsOnly, "errors", "e", false, "Only print failed exchanges")
	traceShowCmd.Flags().IntVarP(&traceModule, "module", "m", -1, "Only print exchanges with this module")
	traceCmd.AddCommand(traceShowCmd)
	rootCmd.AddCommand(traceCmd)
}

// showTrace prints the filtered records of a trace and statistics over
// the printed ones. A truncated last record ends the listing with an error.
func showTrace(r io.Reader, out io.Writer) error {
	reader := trace.NewReader(r)
	stats := domino.NewStatistics()
	printed := 0

	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("after %d records: %w", printed, err)
		}

		e := rec.Exchange()
		if traceModule >= 0 && int(e.Request.Module()) != traceModule {
			continue
		}
		failed := rec.Result != domino.ResultOK && rec.Result != domino.ResultNoData
		if traceErrorsOnly && !failed {
			continue
		}

		fmt.Fprint(out, domino.FormatExchange(e))
		stats.Observe(e)
		printed++
	}

	if printed == 0 {
		fmt.Fprintln(out, "no matching exchanges")
		return nil
	}

	// Rates are meaningless for a replay
	fmt.Fprintf(out, "\n%d exchanges\n", printed)
	snap := stats.Snapshot()
	fmt.Fprint(out, formatTraceStats(&snap))
	return nil
}

func formatTraceStats(snap *domino.Statistics) string {
	return fmt.Sprintf("succeeded %d, no data %d, timeouts %d, malformed %d, I/O errors %d, avg latency %s, max latency %s\n",
		snap.Succeeded, snap.NoData, snap.Timeouts, snap.Malformed, snap.IOErrors,
		snap.AverageLatency(), snap.MaxLatency)
}
