// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The dominobus Authors

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dominohub/dominobus/pkg/domino"
)

var (
	pingCount    int
	pingInterval time.Duration
	pingFunction string
)

var pingCmd = &cobra.Command{
	Use:   "ping MODULE",
	Short: "Test the link by exchanging status requests with a module",
	Long: `Send status requests to one module and report each answer.

A "no data" answer counts as a reply: the hub answered even though the
module has nothing to report.

Exit codes:
  0 - At least one reply received
  1 - Every request timed out or got a malformed answer
  2 - Connection error`,
	Args: cobra.ExactArgs(1),
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVarP(&pingCount, "count", "n", 4, "Number of requests to send")
	pingCmd.Flags().DurationVarP(&pingInterval, "interval", "i", time.Second, "Delay between requests")
	pingCmd.Flags().StringVarP(&pingFunction, "function", "f", "status", "Read function (status or outputs)")
}

func runPing(cmd *cobra.Command, args []string) error {
	module, err := parseNumber(args[0])
	if err != nil {
		return err
	}
	function, err := parseFunction(pingFunction)
	if err != nil {
		return err
	}
	req, err := domino.StatusRequest(module, int(function))
	if err != nil {
		return err
	}

	stats := domino.NewStatistics()
	s, connInfo, err := newSession(domino.WithObserver(stats.Observe))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		exit(2)
	}
	if err := s.Open(); err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		exit(2)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "dominobus - Ping\n")
	fmt.Fprintf(out, "Connection: %s\n", connInfo)
	fmt.Fprintf(out, "Request: %s\n\n", domino.FormatFrame(req))

	ioFailed := false
	for seq := 1; seq <= pingCount; seq++ {
		start := time.Now()
		resp, err := s.Exchange(req)
		elapsed := time.Since(start).Round(time.Millisecond)

		switch {
		case err == nil:
			fmt.Fprintf(out, "seq=%d %s time=%v\n", seq, domino.FormatResponse(resp), elapsed)
		case errors.Is(err, domino.ErrTimeout), errors.Is(err, domino.ErrMalformedResponse):
			fmt.Fprintf(out, "seq=%d %v\n", seq, err)
		default:
			fmt.Fprintf(os.Stderr, "seq=%d %v\n", seq, err)
			ioFailed = true
		}
		if ioFailed {
			break
		}

		if seq < pingCount {
			time.Sleep(pingInterval)
		}
	}
	s.Close()

	fmt.Fprintf(out, "\n%s", stats.String())
	snapshot := stats.Snapshot()
	exit(pingExitCode(&snapshot, ioFailed))
	return nil
}

// pingExitCode maps the ping outcome to the documented exit codes.
func pingExitCode(stats *domino.Statistics, ioFailed bool) int {
	switch {
	case stats.Succeeded > 0:
		return 0
	case ioFailed:
		return 2
	default:
		return 1
	}
}
