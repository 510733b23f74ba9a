// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

// Package config loads the dominobus YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dominohub/dominobus/pkg/domino"
)

// ErrNotFound is returned by Load when no configuration file exists in any
// of the searched locations.
var ErrNotFound = errors.New("configuration file not found")

// SearchPaths are tried in order after the explicit path.
var SearchPaths = []string{
	"/etc/dominobus/config.yaml",
	"./config.yaml",
}

// Config is the complete application configuration
type Config struct {
	Transport     TransportConfig `yaml:"transport"`
	Logging       LoggingConfig   `yaml:"logging"`
	MQTT          MQTTConfig      `yaml:"mqtt"`
	HomeAssistant HAConfig        `yaml:"homeassistant"`
	Redis         RedisConfig     `yaml:"redis"`
	Metrics       MetricsConfig   `yaml:"metrics"`
	Bridge        BridgeConfig    `yaml:"bridge"`
	Devices       DevicesConfig   `yaml:"devices"`
}

// TransportConfig selects the serial port or WebSocket bridge the hub is
// reached through.
type TransportConfig struct {
	Port        string `yaml:"port"`
	Baud        int    `yaml:"baud"`
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`
}

// LoggingConfig sets the logrus level and formatter ("text" or "json").
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MQTTConfig contains broker settings for the bridge
type MQTTConfig struct {
	Broker     string        `yaml:"broker"`
	Port       int           `yaml:"port"`
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"`
	ClientID   string        `yaml:"client_id"`
	BaseTopic  string        `yaml:"base_topic"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	KeepAlive  time.Duration `yaml:"keep_alive"`
}

// HAConfig contains Home Assistant MQTT discovery settings
type HAConfig struct {
	DiscoveryPrefix string `yaml:"discovery_prefix"`
	DeviceName      string `yaml:"device_name"`
}

// RedisConfig enables the Redis state mirror when Address is set.
type RedisConfig struct {
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

// MetricsConfig enables the Prometheus endpoint when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// BridgeConfig tunes the polling loop
type BridgeConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// DevicesConfig lists the modules exposed by the bridge
type DevicesConfig struct {
	RoomSensors []RoomSensorConfig `yaml:"room_sensors"`
	Meteo       []int              `yaml:"meteo"`
	Dimmers     []DimmerConfig     `yaml:"dimmers"`
	Lights      []LightConfig      `yaml:"lights"`
}

// RoomSensorConfig is one room thermostat
type RoomSensorConfig struct {
	Module int    `yaml:"module"`
	Name   string `yaml:"name"`
}

// DimmerConfig is one dimmable output
type DimmerConfig struct {
	Module int    `yaml:"module"`
	Name   string `yaml:"name"`
}

// LightConfig is one relay output. Direct lights skip the shared bank cache.
type LightConfig struct {
	Module int    `yaml:"module"`
	Num    int    `yaml:"num"`
	Name   string `yaml:"name"`
	Direct bool   `yaml:"direct"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Transport.Port == "" {
		c.Transport.Port = domino.DefaultPort
	}
	if c.Transport.Baud == 0 {
		c.Transport.Baud = domino.DefaultBaud
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.MQTT.Port == 0 {
		c.MQTT.Port = 1883
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "dominobus"
	}
	if c.MQTT.BaseTopic == "" {
		c.MQTT.BaseTopic = "domino"
	}
	if c.MQTT.RetryDelay == 0 {
		c.MQTT.RetryDelay = 5 * time.Second
	}
	if c.MQTT.KeepAlive == 0 {
		c.MQTT.KeepAlive = 60 * time.Second
	}
	if c.HomeAssistant.DiscoveryPrefix == "" {
		c.HomeAssistant.DiscoveryPrefix = "homeassistant"
	}
	if c.HomeAssistant.DeviceName == "" {
		c.HomeAssistant.DeviceName = "Domino Hub"
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "domino:"
	}
	if c.Bridge.PollInterval == 0 {
		c.Bridge.PollInterval = 30 * time.Second
	}
}

// Load reads the configuration from path, or from the first readable
// SearchPaths entry when path is empty. It returns the path actually used.
func Load(path string) (*Config, string, error) {
	paths := SearchPaths
	if path != "" {
		paths = []string{path}
	}

	for _, p := range paths {
		// #nosec G304 - path comes from the command line or the fixed search list
		data, err := os.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, p, fmt.Errorf("cannot read configuration %s: %w", p, err)
		}
		cfg, err := Parse(data)
		if err != nil {
			return nil, p, fmt.Errorf("%s: %w", p, err)
		}
		return cfg, p, nil
	}
	return nil, "", fmt.Errorf("%w in any of %v", ErrNotFound, paths)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing configuration: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
