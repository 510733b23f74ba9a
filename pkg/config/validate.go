// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package config

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dominohub/dominobus/pkg/devices"
	"github.com/dominohub/dominobus/pkg/domino"
)

// Validate checks the transport, logging and device sections and returns
// the first problem found.
func (c *Config) Validate() error {
	if c.Transport.URL == "" && c.Transport.Port == "" {
		return errors.New("transport.port or transport.url is required")
	}
	if c.Transport.Baud <= 0 {
		return fmt.Errorf("transport.baud must be positive, got %d", c.Transport.Baud)
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
		return fmt.Errorf("mqtt.port %d out of range", c.MQTT.Port)
	}
	if c.Bridge.PollInterval <= 0 {
		return fmt.Errorf("bridge.poll_interval must be positive, got %v", c.Bridge.PollInterval)
	}
	return c.Devices.validate()
}

// ValidateBridge additionally requires what the bridge command needs.
func (c *Config) ValidateBridge() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.MQTT.Broker == "" {
		return errors.New("mqtt.broker is not specified")
	}
	if c.Devices.Empty() {
		return errors.New("no devices configured")
	}
	return nil
}

// Empty reports whether no device is configured.
func (d DevicesConfig) Empty() bool {
	return len(d.RoomSensors) == 0 && len(d.Meteo) == 0 && len(d.Dimmers) == 0 && len(d.Lights) == 0
}

func (d DevicesConfig) validate() error {
	for i, r := range d.RoomSensors {
		// the reading lives on module+1
		if err := checkModule(fmt.Sprintf("devices.room_sensors[%d]", i), r.Module, 2); err != nil {
			return err
		}
	}

	seen := make(map[int]bool)
	for i, m := range d.Meteo {
		if err := checkModule(fmt.Sprintf("devices.meteo[%d]", i), m, 4); err != nil {
			return err
		}
		if seen[m] {
			return fmt.Errorf("devices.meteo: module %d listed twice", m)
		}
		seen[m] = true
	}

	seen = make(map[int]bool)
	for i, dm := range d.Dimmers {
		if err := checkModule(fmt.Sprintf("devices.dimmers[%d]", i), dm.Module, 1); err != nil {
			return err
		}
		if seen[dm.Module] {
			return fmt.Errorf("devices.dimmers: module %d listed twice", dm.Module)
		}
		seen[dm.Module] = true
	}

	relays := make(map[[2]int]bool)
	for i, l := range d.Lights {
		field := fmt.Sprintf("devices.lights[%d]", i)
		if err := checkModule(field, l.Module, 1); err != nil {
			return err
		}
		if l.Num < 1 || l.Num > devices.MaxRelays {
			return fmt.Errorf("%s: num %d out of range 1-%d", field, l.Num, devices.MaxRelays)
		}
		key := [2]int{l.Module, l.Num}
		if relays[key] {
			return fmt.Errorf("%s: relay %d/%d listed twice", field, l.Module, l.Num)
		}
		relays[key] = true
	}
	return nil
}

// checkModule verifies that span consecutive addresses starting at module
// fit on the bus.
func checkModule(field string, module, span int) error {
	if module < domino.MinModule || module+span-1 > domino.MaxModule {
		return fmt.Errorf("%s: module %d out of range %d-%d", field, module, domino.MinModule, domino.MaxModule-span+1)
	}
	return nil
}
