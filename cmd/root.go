// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The dominobus Authors

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dominohub/dominobus/pkg/config"
	"github.com/dominohub/dominobus/pkg/trace"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Configuration and logging flags
	configPath string
	logLevel   string
	logFormat  string
	tracePath  string
)

var (
	appConfig *config.Config
	logger    *logrus.Logger
	recorder  *trace.Recorder
)

var rootCmd = &cobra.Command{
	Use:   "dominobus",
	Short: "Domino home-automation bus tool",
	Long: `dominobus - Talk to a Domino home-automation hub over its serial bus.

Reads room sensors, weather stations, dimmers and relay lights, drives
outputs, and bridges the bus to MQTT / Home Assistant.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 19200]
  WebSocket: --url ws://host/path [--username user]

Settings are read from --config, or from the first of
/etc/dominobus/config.yaml and ./config.yaml that exists. Flags override
the file.

For WebSocket authentication, the password is read from the DOMINO_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:            "1.0.0",
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 0, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text or json)")
	rootCmd.PersistentFlags().StringVar(&tracePath, "trace", "", "Append every bus exchange to this trace file")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	appConfig = cfg
	logger = log

	if tracePath != "" {
		recorder, err = trace.Create(tracePath)
		if err != nil {
			return err
		}
		logger.WithField("file", tracePath).Debug("recording exchanges")
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if recorder == nil {
		return nil
	}
	err := recorder.Close()
	logger.WithField("exchanges", recorder.Count()).Debug("trace closed")
	recorder = nil
	return err
}

// exit closes the trace file, which os.Exit would skip, and exits.
func exit(code int) {
	if recorder != nil {
		_ = recorder.Close()
	}
	os.Exit(code)
}

// loadConfig reads the configuration file and applies flag overrides.
// Without --config a missing file is not an error.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, _, err := config.Load(configPath)
	if errors.Is(err, config.ErrNotFound) && configPath == "" {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Transport.Port = portName
		cfg.Transport.URL = ""
	}
	if flags.Changed("baud") {
		cfg.Transport.Baud = baudRate
	}
	if flags.Changed("url") {
		cfg.Transport.URL = wsURL
	}
	if flags.Changed("username") {
		cfg.Transport.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		cfg.Transport.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
