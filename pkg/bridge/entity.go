// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

// Package bridge publishes Domino devices to home automation systems.
//
// Devices are wrapped as entities with Home Assistant semantics. A Bridge
// polls every entity on an interval and fans the resulting states out to
// its sinks (MQTT discovery, Redis). Light commands arrive through the
// MQTT sink and are echoed back as state once written.
package bridge

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Entity components
const (
	ComponentSensor = "sensor"
	ComponentLight  = "light"
)

// Light states as carried in JSON payloads
const (
	StateOn  = "ON"
	StateOff = "OFF"
)

// Info describes an entity for discovery.
type Info struct {
	UniqueID    string
	Name        string
	Component   string
	Unit        string
	DeviceClass string
	StateClass  string
	Options     []string

	// Dimmable lights report and accept brightness 0-255.
	Dimmable bool
}

// State is one entity reading. Sensors use Value; lights use On and
// Brightness.
type State struct {
	Value      string
	On         bool
	Brightness int
}

// Known reports whether a sensor state carries a value.
func (s State) Known() bool {
	return s.Value != ""
}

// Command is a light command in the JSON light schema.
type Command struct {
	State      string `json:"state"`
	Brightness *int   `json:"brightness,omitempty"`
}

// lightPayload is the JSON light schema state
type lightPayload struct {
	State      string `json:"state"`
	Brightness *int   `json:"brightness,omitempty"`
}

// Payload renders a state the way it is published.
func (i Info) Payload(s State) ([]byte, error) {
	if i.Component != ComponentLight {
		return []byte(s.Value), nil
	}
	p := lightPayload{State: StateOff}
	if s.On {
		p.State = StateOn
	}
	if i.Dimmable {
		bri := s.Brightness
		p.Brightness = &bri
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("error serializing %s state: %w", i.UniqueID, err)
	}
	return data, nil
}

// ParseCommand decodes a light command. Bare ON/OFF payloads are accepted
// as well as the JSON schema.
func ParseCommand(payload []byte) (Command, error) {
	switch string(payload) {
	case StateOn, StateOff:
		return Command{State: string(payload)}, nil
	}

	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return cmd, fmt.Errorf("invalid light command %q: %w", payload, err)
	}
	if cmd.State != StateOn && cmd.State != StateOff {
		return cmd, fmt.Errorf("invalid light command state %q", cmd.State)
	}
	return cmd, nil
}

// Entity is a polled device.
type Entity interface {
	Info() Info
	Update() (State, error)
}

// Controllable entities accept commands and return the state to publish.
type Controllable interface {
	Entity
	Apply(cmd Command) (State, error)
}

// RangeError reports a reading outside the plausible range. The state
// returned with it is the last accepted one.
type RangeError struct {
	Entity string
	Value  float64
	Min    float64
	Max    float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: value %v out of expected range %v..%v", e.Entity, e.Value, e.Min, e.Max)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
