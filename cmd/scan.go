// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The dominobus Authors

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dominohub/dominobus/pkg/domino"
)

var (
	scanFrom     int
	scanTo       int
	scanFunction string
	scanTimeout  time.Duration
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find modules that answer on the bus",
	Long: `Probe a range of module addresses with a read request and list the
modules that answer. Hubs never announce their modules, so every address in
the range is asked in turn.

Exit codes:
  0 - At least one module answered
  1 - No module answered
  2 - Connection error`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().IntVar(&scanFrom, "from", domino.MinModule, "First module address")
	scanCmd.Flags().IntVar(&scanTo, "to", domino.MaxModule, "Last module address")
	scanCmd.Flags().StringVarP(&scanFunction, "function", "f", "status", "Read function (status or outputs)")
	scanCmd.Flags().DurationVarP(&scanTimeout, "timeout", "t", 500*time.Millisecond, "How long to wait for each module")
}

// scanResult is one module that answered.
type scanResult struct {
	Module   int
	Response domino.Response
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanFrom < domino.MinModule || scanTo > domino.MaxModule || scanFrom > scanTo {
		return fmt.Errorf("invalid module range %d-%d (use %d-%d)", scanFrom, scanTo, domino.MinModule, domino.MaxModule)
	}
	function, err := parseFunction(scanFunction)
	if err != nil {
		return err
	}

	s, connInfo, err := newSession(domino.WithPolling(scanPollInterval, scanPolls(scanTimeout)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		exit(2)
	}
	if err := s.Open(); err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		exit(2)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "dominobus - Scan\n")
	fmt.Fprintf(out, "Connection: %s\n", connInfo)
	fmt.Fprintf(out, "Probing modules %d-%d with %s...\n\n", scanFrom, scanTo, domino.FormatFunction(function))

	found, err := scanModules(s, scanFrom, scanTo, function, func(r scanResult) {
		printScanResult(out, r)
	})
	s.Close()

	fmt.Fprintf(out, "\n--- Scan summary ---\n")
	fmt.Fprintf(out, "Modules probed: %d\n", scanTo-scanFrom+1)
	fmt.Fprintf(out, "Modules found: %d\n", len(found))

	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		exit(2)
	}
	if len(found) == 0 {
		exit(1)
	}
	return nil
}

const scanPollInterval = 50 * time.Millisecond

// scanPolls converts a per-module timeout into a poll count.
func scanPolls(timeout time.Duration) int {
	n := int(timeout / scanPollInterval)
	if n < 1 {
		return 1
	}
	return n
}

// scanModules probes every module in [from, to]. Silent and malformed
// answers are skipped. Any other error stops the scan and is returned with
// the modules found so far.
func scanModules(s *domino.Session, from, to int, function byte, onFound func(scanResult)) ([]scanResult, error) {
	var found []scanResult
	for module := from; module <= to; module++ {
		req, err := domino.StatusRequest(module, int(function))
		if err != nil {
			return found, err
		}

		resp, err := s.Exchange(req)
		switch {
		case err == nil:
			r := scanResult{Module: module, Response: resp}
			found = append(found, r)
			if onFound != nil {
				onFound(r)
			}
		case errors.Is(err, domino.ErrTimeout), errors.Is(err, domino.ErrMalformedResponse):
			continue
		default:
			return found, err
		}
	}
	return found, nil
}

func printScanResult(w io.Writer, r scanResult) {
	if r.Response.Empty() {
		fmt.Fprintf(w, "module %3d: answers, no data\n", r.Module)
		return
	}
	d1, d2 := r.Response.Data()
	fmt.Fprintf(w, "module %3d: status 0x%02X data %02X %02X (word %d)\n",
		r.Module, r.Response.Status(), d1, d2, r.Response.Word())
}
