// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The dominobus Authors

package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/dominohub/dominobus/pkg/bridge"
	"github.com/dominohub/dominobus/pkg/domino"
)

var monitorInterval time.Duration

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive TUI for watching and driving the configured devices",
	Long: `Watch and control the devices listed in the configuration file.

The TUI polls every device, shows bus statistics and logs each exchange.
Tab switches between the device list and the level input. Enter toggles
the selected light, or applies the typed level to a dimmer.

Supports both serial and WebSocket connections.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().DurationVarP(&monitorInterval, "interval", "i", 0, "Poll interval (default: bridge.poll_interval)")
}

// tuiSink forwards bridge output to the TUI program.
type tuiSink struct {
	p *tea.Program
}

func (t *tuiSink) Announce(ctx context.Context, infos []bridge.Info) error {
	t.p.Send(announceMsg{infos: infos})
	return nil
}

func (t *tuiSink) PublishState(ctx context.Context, info bridge.Info, st bridge.State) error {
	t.p.Send(stateMsg{uid: info.UniqueID, state: st})
	return nil
}

func (t *tuiSink) PublishAvailability(ctx context.Context, info bridge.Info, available bool) error {
	t.p.Send(availabilityMsg{uid: info.UniqueID, available: available})
	return nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	if cfg.Devices.Empty() {
		return fmt.Errorf("no devices configured (see the devices section of the configuration)")
	}
	interval := cfg.Bridge.PollInterval
	if monitorInterval > 0 {
		interval = monitorInterval
	}

	stats := domino.NewStatistics()
	sink := &tuiSink{}
	s, connInfo, err := newSession(
		domino.WithObserver(stats.Observe),
		domino.WithObserver(func(e domino.Exchange) {
			if sink.p != nil {
				sink.p.Send(exchangeMsg(e))
			}
		}))
	if err != nil {
		return err
	}
	if err := s.Open(); err != nil {
		return err
	}
	defer s.Close()

	entities, err := bridge.Build(cfg.Devices, s)
	if err != nil {
		return err
	}

	// Log lines would corrupt the alternate screen
	logger.SetOutput(io.Discard)

	b := bridge.New(entities, []bridge.Sink{sink}, bridge.WithLogger(logger))
	m := initialMonitorModel(b, stats, connInfo)
	p := tea.NewProgram(m, tea.WithAltScreen())
	sink.p = p

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = b.Run(ctx, interval)
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
