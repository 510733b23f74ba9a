// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The dominobus Authors

package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dominohub/dominobus/pkg/devices"
	"github.com/dominohub/dominobus/pkg/domino"
)

var readWatch time.Duration

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read one module and print its decoded state",
	Long: `Read a single module on the bus and print its decoded state.

With --watch the read is repeated at the given interval until Ctrl+C.`,
}

var readTempCmd = &cobra.Command{
	Use:   "temp MODULE",
	Short: "Read a room temperature sensor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		module, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		return withBus(cmd, func(s *domino.Session, out io.Writer) (func() error, error) {
			dev, err := devices.NewRoomTemperature(s, module, devices.WithTTL(0))
			if err != nil {
				return nil, err
			}
			return func() error {
				t, err := dev.Status()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "room %d: %s\n", module, t)
				return nil
			}, nil
		})
	},
}

var readMeteoCmd = &cobra.Command{
	Use:   "meteo MODULE",
	Short: "Read a weather station",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		module, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		return withBus(cmd, func(s *domino.Session, out io.Writer) (func() error, error) {
			dev, err := devices.NewMeteo(s, module, devices.WithTTL(0))
			if err != nil {
				return nil, err
			}
			return func() error {
				st, err := dev.Status()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "meteo %d: %s\n", module, st)
				return nil
			}, nil
		})
	},
}

var readDimmerCmd = &cobra.Command{
	Use:   "dimmer MODULE",
	Short: "Read a dimmer level",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		module, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		return withBus(cmd, func(s *domino.Session, out io.Writer) (func() error, error) {
			dev, err := devices.NewDimmer(s, module)
			if err != nil {
				return nil, err
			}
			return func() error {
				level, err := dev.Status()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "dimmer %d: %d%%\n", module, level)
				return nil
			}, nil
		})
	},
}

var readRelayCmd = &cobra.Command{
	Use:   "relay MODULE",
	Short: "Read all relay outputs of a module",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		module, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		return withBus(cmd, func(s *domino.Session, out io.Writer) (func() error, error) {
			bank, err := devices.NewRelayBank(s, module, devices.WithTTL(0))
			if err != nil {
				return nil, err
			}
			return func() error {
				mask, err := bank.Status()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "relay %d: %s\n", module, formatRelayMask(mask))
				return nil
			}, nil
		})
	},
}

var readLightCmd = &cobra.Command{
	Use:   "light MODULE NUM",
	Short: "Read one relay light",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		module, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		num, err := parseNumber(args[1])
		if err != nil {
			return err
		}
		return withBus(cmd, func(s *domino.Session, out io.Writer) (func() error, error) {
			light, err := devices.NewDirectLight(s, module, num)
			if err != nil {
				return nil, err
			}
			return func() error {
				on, err := light.Status()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "light %d/%d: %s\n", module, num, onOff(on))
				return nil
			}, nil
		})
	},
}

func init() {
	readCmd.PersistentFlags().DurationVarP(&readWatch, "watch", "w", 0, "Repeat the read at this interval")
	readCmd.AddCommand(readTempCmd, readMeteoCmd, readDimmerCmd, readRelayCmd, readLightCmd)
	rootCmd.AddCommand(readCmd)
}

// withBus opens a session, builds the reader with prepare and runs it once,
// or repeatedly under --watch until interrupted.
func withBus(cmd *cobra.Command, prepare func(s *domino.Session, out io.Writer) (func() error, error)) error {
	s, connInfo, err := newSession()
	if err != nil {
		return err
	}

	read, err := prepare(s, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	if err := s.Open(); err != nil {
		return err
	}
	defer s.Close()
	logger.Debugf("connected (%s)", connInfo)

	if readWatch <= 0 {
		return read()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(readWatch)
	defer ticker.Stop()
	for {
		if err := read(); err != nil {
			logger.WithError(err).Warn("read failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// parseNumber accepts decimal or 0x-prefixed hex.
func parseNumber(s string) (int, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return int(v), nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// formatRelayMask lists each output as "N:on" or "N:off".
func formatRelayMask(mask byte) string {
	parts := make([]string, 0, devices.MaxRelays)
	for num := 1; num <= devices.MaxRelays; num++ {
		on := mask&(1<<(num-1)) != 0
		parts = append(parts, fmt.Sprintf("%d:%s", num, onOff(on)))
	}
	return fmt.Sprintf("%s (0x%02X)", strings.Join(parts, " "), mask)
}
