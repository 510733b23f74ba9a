// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package bridge

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dominohub/dominobus/pkg/devices"
)

// Plausible room temperature range in °C. Readings outside it are dropped.
const (
	roomMinCelsius = -20
	roomMaxCelsius = 50
)

// Rain sensor states
const (
	RainYes = "Rain"
	RainNo  = "No Rain"
)

// RoomSensor publishes a room thermostat temperature.
type RoomSensor struct {
	info Info
	dev  *devices.RoomTemperature

	mu   sync.Mutex
	last State
}

// NewRoomSensor wraps a room thermostat.
func NewRoomSensor(dev *devices.RoomTemperature, name string) *RoomSensor {
	return &RoomSensor{
		dev: dev,
		info: Info{
			UniqueID:    fmt.Sprintf("domino_sensor_temp_%d", dev.Module()),
			Name:        name,
			Component:   ComponentSensor,
			Unit:        "°C",
			DeviceClass: "temperature",
			StateClass:  "measurement",
		},
	}
}

func (r *RoomSensor) Info() Info {
	return r.info
}

// Update reads the temperature. Implausible readings return the previous
// state with a *RangeError.
func (r *RoomSensor) Update() (State, error) {
	t, err := r.dev.Status()
	if err != nil {
		return State{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	c := t.Celsius()
	if c < roomMinCelsius || c > roomMaxCelsius {
		return r.last, &RangeError{Entity: r.info.UniqueID, Value: c, Min: roomMinCelsius, Max: roomMaxCelsius}
	}
	r.last = State{Value: formatFloat(c)}
	return r.last, nil
}

// Stations is a set of weather stations read together. The external
// sensors share one Stations so each station is read once per cache window.
type Stations struct {
	meteos []*devices.Meteo
}

// NewStations groups weather stations.
func NewStations(meteos ...*devices.Meteo) *Stations {
	return &Stations{meteos: meteos}
}

// ids joins the station addresses for unique IDs.
func (s *Stations) ids() string {
	parts := make([]string, len(s.meteos))
	for i, m := range s.meteos {
		parts[i] = strconv.Itoa(m.Module())
	}
	return strings.Join(parts, "_")
}

// Statuses reads every station. Any failure fails the whole reading.
func (s *Stations) Statuses() ([]devices.MeteoStatus, error) {
	out := make([]devices.MeteoStatus, 0, len(s.meteos))
	for _, m := range s.meteos {
		st, err := m.Status()
		if err != nil {
			return nil, fmt.Errorf("meteo %d: %w", m.Module(), err)
		}
		out = append(out, st)
	}
	return out, nil
}

// MeteoSensor publishes one value aggregated over all stations.
type MeteoSensor struct {
	info     Info
	stations *Stations
	value    func([]devices.MeteoStatus) string
}

func (m *MeteoSensor) Info() Info {
	return m.info
}

func (m *MeteoSensor) Update() (State, error) {
	statuses, err := m.stations.Statuses()
	if err != nil {
		return State{}, err
	}
	return State{Value: m.value(statuses)}, nil
}

// NewExternalTemperature averages the station temperatures.
func NewExternalTemperature(s *Stations, name string) *MeteoSensor {
	return &MeteoSensor{
		stations: s,
		info: Info{
			UniqueID:    "domino_sensor_temp_" + s.ids(),
			Name:        name,
			Component:   ComponentSensor,
			Unit:        "°C",
			DeviceClass: "temperature",
			StateClass:  "measurement",
		},
		value: func(st []devices.MeteoStatus) string {
			return formatFloat(devices.AverageCelsius(st))
		},
	}
}

// NewExternalIlluminance reports the brightest station.
func NewExternalIlluminance(s *Stations, name string) *MeteoSensor {
	return &MeteoSensor{
		stations: s,
		info: Info{
			UniqueID:    "domino_sensor_lux_" + s.ids(),
			Name:        name,
			Component:   ComponentSensor,
			Unit:        "lx",
			DeviceClass: "illuminance",
			StateClass:  "measurement",
		},
		value: func(st []devices.MeteoStatus) string {
			return formatFloat(devices.MaxLux(st))
		},
	}
}

// NewExternalWind reports the aggregated wind speed.
func NewExternalWind(s *Stations, name string) *MeteoSensor {
	return &MeteoSensor{
		stations: s,
		info: Info{
			UniqueID:    "domino_sensor_wind_" + s.ids(),
			Name:        name,
			Component:   ComponentSensor,
			Unit:        "m/s",
			DeviceClass: "wind_speed",
			StateClass:  "measurement",
		},
		value: func(st []devices.MeteoStatus) string {
			return formatFloat(devices.AggregateWind(devices.Winds(st)))
		},
	}
}

// NewExternalRain reports rain when any station detects it.
func NewExternalRain(s *Stations, name string) *MeteoSensor {
	return &MeteoSensor{
		stations: s,
		info: Info{
			UniqueID:    "domino_sensor_rain_" + s.ids(),
			Name:        name,
			Component:   ComponentSensor,
			DeviceClass: "enum",
			Options:     []string{RainYes, RainNo},
		},
		value: func(st []devices.MeteoStatus) string {
			if devices.AnyRaining(st) {
				return RainYes
			}
			return RainNo
		},
	}
}
