// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The dominobus Authors

package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dominohub/dominobus/pkg/domino"
)

var frameCmd = &cobra.Command{
	Use:   "frame",
	Short: "Build or decode frames without touching the bus",
}

var frameBuildCmd = &cobra.Command{
	Use:   "build MODULE FUNCTION [D1 D2]",
	Short: "Print the request frame for a module and function",
	Long: `Print the 7-byte request frame for a module and function.

FUNCTION is write, status, outputs, or a number. D1 and D2 default to the
read filler byte 0x33.`,
	Args: cobra.RangeArgs(2, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 3 {
			return fmt.Errorf("give both D1 and D2, or neither")
		}
		module, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		function, err := parseFunction(args[1])
		if err != nil {
			return err
		}

		d1, d2 := domino.DefaultData, domino.DefaultData
		if len(args) == 4 {
			if d1, err = parseNumber(args[2]); err != nil {
				return err
			}
			if d2, err = parseNumber(args[3]); err != nil {
				return err
			}
		}

		f, err := domino.BuildRequest(module, int(function), d1, d2)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), domino.FormatFrame(f))
		return nil
	},
}

var frameDecodeCmd = &cobra.Command{
	Use:   "decode HEX...",
	Short: "Decode a request frame or a hub response",
	Long: `Decode bytes given in hex, either as one string or one byte per
argument. A complete request frame with a valid checksum is decoded as a
request, anything else as a hub response.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := parseHexBytes(args)
		if err != nil {
			return err
		}
		out, err := decodeBytes(data)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	frameCmd.AddCommand(frameBuildCmd, frameDecodeCmd)
	rootCmd.AddCommand(frameCmd)
}

var functionNames = map[string]byte{
	"write":   domino.FuncWrite,
	"status":  domino.FuncReadStatus,
	"outputs": domino.FuncReadOutputs,
}

// parseFunction accepts a function name or number.
func parseFunction(s string) (byte, error) {
	if f, ok := functionNames[strings.ToLower(s)]; ok {
		return f, nil
	}
	v, err := parseNumber(s)
	if err != nil || v < 0 || v > 0xFF {
		return 0, fmt.Errorf("invalid function %q (use write, status, outputs or 0-255)", s)
	}
	return byte(v), nil
}

// parseHexBytes joins the arguments and decodes them as hex. Spaces, colons
// and 0x prefixes are ignored.
func parseHexBytes(args []string) ([]byte, error) {
	var sb strings.Builder
	for _, a := range args {
		for _, tok := range strings.FieldsFunc(a, func(r rune) bool { return r == ' ' || r == ':' || r == ',' }) {
			tok = strings.TrimPrefix(strings.ToLower(tok), "0x")
			if len(tok)%2 == 1 {
				tok = "0" + tok
			}
			sb.WriteString(tok)
		}
	}

	data, err := hex.DecodeString(sb.String())
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no bytes given")
	}
	return data, nil
}

// decodeBytes reads data as a request when it is a complete frame with a
// valid checksum, and as a response otherwise.
func decodeBytes(data []byte) (string, error) {
	if f, err := domino.ParseFrame(data); err == nil {
		return "request " + domino.FormatFrame(f), nil
	}

	r, err := domino.ValidateResponse(data)
	if err != nil {
		return "", err
	}
	return "response " + domino.FormatResponse(r), nil
}
