// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The dominobus Authors

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dominohub/dominobus/pkg/bridge"
	"github.com/dominohub/dominobus/pkg/domino"
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Bridge the configured devices to MQTT / Home Assistant",
	Long: `Poll every device listed in the configuration file and publish its
state to MQTT with Home Assistant discovery. Light commands received on
<base_topic>/<entity>/set are applied to the bus.

Optionally mirrors state into Redis (redis.address) and serves Prometheus
metrics (metrics.listen).`,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	if err := cfg.ValidateBridge(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *bridge.Metrics
	var sessionOpts []domino.Option
	if cfg.Metrics.Listen != "" {
		metrics = bridge.NewMetrics()
		sessionOpts = append(sessionOpts, domino.WithObserver(metrics.Observe))
	}

	s, connInfo, err := newSession(sessionOpts...)
	if err != nil {
		return err
	}
	// Held for the whole run. A port that fails with an I/O error is
	// reopened by the session on the next poll.
	if err := s.Open(); err != nil {
		return err
	}
	defer s.Close()
	logger.Infof("Connected to hub (%s)", connInfo)

	entities, err := bridge.Build(cfg.Devices, s)
	if err != nil {
		return err
	}

	// The sink needs the bridge's command handler and the bridge needs the
	// sink, so the handler looks the bridge up when a command arrives.
	var b *bridge.Bridge
	handler := func(ctx context.Context, uid string, c bridge.Command) error {
		return b.HandleCommand(ctx, uid, c)
	}

	mqttSink := bridge.NewMQTTSink(cfg.MQTT, cfg.HomeAssistant, handler, logger.WithField("component", "mqtt"))
	sinks := []bridge.Sink{mqttSink}

	if cfg.Redis.Enabled() {
		redisSink := bridge.NewRedisSink(cfg.Redis)
		defer redisSink.Close()
		if err := redisSink.Ping(ctx); err != nil {
			logger.Warnf("Redis not reachable at %s: %v", cfg.Redis.Address, err)
		}
		sinks = append(sinks, redisSink)
	}

	opts := []bridge.Option{bridge.WithLogger(logger.WithField("component", "bridge"))}
	if metrics != nil {
		metrics.WatchSession(s)
		opts = append(opts, bridge.WithMetrics(metrics))
		go func() {
			logger.Infof("Serving metrics on %s/metrics", cfg.Metrics.Listen)
			if err := metrics.Serve(ctx, cfg.Metrics.Listen); err != nil {
				logger.Errorf("Metrics server stopped: %v", err)
			}
		}()
	}
	b = bridge.New(entities, sinks, opts...)

	if err := mqttSink.Connect(ctx); err != nil {
		return err
	}
	defer mqttSink.Close()

	err = b.Run(ctx, cfg.Bridge.PollInterval)
	if errors.Is(err, context.Canceled) {
		logger.Info("Shutting down")
		return nil
	}
	return err
}
