// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The dominobus Authors

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dominohub/dominobus/pkg/devices"
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Drive a dimmer or relay output",
}

var setDimmerCmd = &cobra.Command{
	Use:   "dimmer MODULE PERCENT",
	Short: "Set a dimmer level (0-100, clamped)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		module, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		pct, err := parseNumber(args[1])
		if err != nil {
			return err
		}

		s, _, err := newSession()
		if err != nil {
			return err
		}
		dimmer, err := devices.NewDimmer(s, module)
		if err != nil {
			return err
		}
		level := devices.ClampPercent(pct)
		if err := dimmer.SetLevel(level); err != nil {
			return err
		}

		logger.WithField("module", module).Infof("dimmer set to %d%%", level)
		return nil
	},
}

var setLightCmd = &cobra.Command{
	Use:   "light MODULE NUM on|off",
	Short: "Switch one relay output",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		module, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		num, err := parseNumber(args[1])
		if err != nil {
			return err
		}
		on, err := parseOnOff(args[2])
		if err != nil {
			return err
		}

		s, _, err := newSession()
		if err != nil {
			return err
		}
		light, err := devices.NewDirectLight(s, module, num)
		if err != nil {
			return err
		}

		level := 0
		if on {
			level = 100
		}
		if err := light.SetLevel(level); err != nil {
			return err
		}

		logger.WithField("module", module).Infof("light %d switched %s", num, onOff(on))
		return nil
	},
}

func init() {
	setCmd.AddCommand(setDimmerCmd, setLightCmd)
	rootCmd.AddCommand(setCmd)
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid state %q (use on or off)", s)
}
