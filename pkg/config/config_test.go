// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleConfig = `
transport:
  port: /dev/ttyAMA0
  baud: 9600
logging:
  level: debug
  format: json
mqtt:
  broker: mqtt.local
  username: domino
  password: secret
  retry_delay: 2s
homeassistant:
  discovery_prefix: ha
redis:
  address: localhost:6379
metrics:
  listen: ":9108"
bridge:
  poll_interval: 1m
devices:
  room_sensors:
    - module: 30
      name: Kitchen Temperature
    - module: 75
      name: Living Room Temperature
  meteo: [80, 90]
  dimmers:
    - module: 23
      name: Kitchen Dimmer
  lights:
    - module: 12
      num: 3
      name: Porch
    - module: 12
      num: 4
      name: Garden
      direct: true
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Transport.Port != "/dev/ttyAMA0" || cfg.Transport.Baud != 9600 {
		t.Errorf("transport = %+v", cfg.Transport)
	}
	if cfg.MQTT.RetryDelay != 2*time.Second {
		t.Errorf("mqtt.retry_delay = %v, want 2s", cfg.MQTT.RetryDelay)
	}
	if cfg.Bridge.PollInterval != time.Minute {
		t.Errorf("bridge.poll_interval = %v, want 1m", cfg.Bridge.PollInterval)
	}
	if cfg.HomeAssistant.DiscoveryPrefix != "ha" {
		t.Errorf("discovery_prefix = %q, want ha", cfg.HomeAssistant.DiscoveryPrefix)
	}
	if !cfg.Redis.Enabled() {
		t.Error("redis should be enabled")
	}
	if len(cfg.Devices.RoomSensors) != 2 || cfg.Devices.RoomSensors[1].Module != 75 {
		t.Errorf("room_sensors = %+v", cfg.Devices.RoomSensors)
	}
	if len(cfg.Devices.Meteo) != 2 || cfg.Devices.Meteo[0] != 80 {
		t.Errorf("meteo = %v", cfg.Devices.Meteo)
	}
	if !cfg.Devices.Lights[1].Direct {
		t.Error("lights[1].direct = false, want true")
	}
	if err := cfg.ValidateBridge(); err != nil {
		t.Errorf("ValidateBridge failed: %v", err)
	}

	// Defaults fill what the file leaves out
	if cfg.MQTT.Port != 1883 || cfg.MQTT.BaseTopic != "domino" || cfg.MQTT.KeepAlive != time.Minute {
		t.Errorf("mqtt defaults not applied: %+v", cfg.MQTT)
	}
	if cfg.HomeAssistant.DeviceName != "Domino Hub" {
		t.Errorf("device_name = %q, want Domino Hub", cfg.HomeAssistant.DeviceName)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Transport.Port != "/dev/ttyUSB0" {
		t.Errorf("default port = %q", cfg.Transport.Port)
	}
	if cfg.Transport.Baud != 19200 {
		t.Errorf("default baud = %d", cfg.Transport.Baud)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if err := cfg.ValidateBridge(); err == nil {
		t.Error("ValidateBridge accepted a config without broker or devices")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad level", "logging: {level: loud}", "logging.level"},
		{"bad format", "logging: {format: xml}", "logging.format"},
		{"negative baud", "transport: {baud: -1}", "transport.baud"},
		{"room on last address", "devices: {room_sensors: [{module: 255}]}", "room_sensors[0]"},
		{"meteo past the bus", "devices: {meteo: [253]}", "meteo[0]"},
		{"meteo twice", "devices: {meteo: [80, 80]}", "listed twice"},
		{"dimmer zero", "devices: {dimmers: [{module: 0}]}", "dimmers[0]"},
		{"relay number", "devices: {lights: [{module: 12, num: 5}]}", "num 5"},
		{"relay twice", "devices: {lights: [{module: 12, num: 1}, {module: 12, num: 1}]}", "listed twice"},
		{"mqtt port", "mqtt: {port: 70000}", "mqtt.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse accepted invalid configuration")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	if _, err := Parse([]byte("transport: [unterminated")); err == nil {
		t.Error("Parse accepted malformed YAML")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dominobus.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, used, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if used != path {
		t.Errorf("used path = %q, want %q", used, path)
	}
	if cfg.MQTT.Broker != "mqtt.local" {
		t.Errorf("broker = %q", cfg.MQTT.Broker)
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load error = %v, want ErrNotFound", err)
	}
}
