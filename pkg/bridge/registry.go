// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package bridge

import (
	"fmt"

	"github.com/dominohub/dominobus/pkg/config"
	"github.com/dominohub/dominobus/pkg/devices"
	"github.com/dominohub/dominobus/pkg/domino"
)

// Build creates the entities listed in the device configuration. All
// facades share session s; relay lights on the same module share one bank.
func Build(cfg config.DevicesConfig, s *domino.Session, opts ...devices.Option) ([]Entity, error) {
	var entities []Entity

	for _, r := range cfg.RoomSensors {
		dev, err := devices.NewRoomTemperature(s, r.Module, opts...)
		if err != nil {
			return nil, fmt.Errorf("room sensor: %w", err)
		}
		entities = append(entities, NewRoomSensor(dev, nameOr(r.Name, "Room %d Temperature", r.Module)))
	}

	if len(cfg.Meteo) > 0 {
		meteos := make([]*devices.Meteo, len(cfg.Meteo))
		for i, module := range cfg.Meteo {
			m, err := devices.NewMeteo(s, module, opts...)
			if err != nil {
				return nil, fmt.Errorf("meteo: %w", err)
			}
			meteos[i] = m
		}
		stations := NewStations(meteos...)
		entities = append(entities,
			NewExternalTemperature(stations, "External Temperature"),
			NewExternalIlluminance(stations, "External Illuminance"),
			NewExternalWind(stations, "External Wind Speed"),
			NewExternalRain(stations, "External Rain"),
		)
	}

	for _, d := range cfg.Dimmers {
		dev, err := devices.NewDimmer(s, d.Module, opts...)
		if err != nil {
			return nil, fmt.Errorf("dimmer: %w", err)
		}
		entities = append(entities, NewDimmerLight(dev, nameOr(d.Name, "Dimmer %d", d.Module)))
	}

	banks := make(map[int]*devices.RelayBank)
	for _, l := range cfg.Lights {
		name := l.Name
		if name == "" {
			name = fmt.Sprintf("Light %d/%d", l.Module, l.Num)
		}
		if l.Direct {
			dev, err := devices.NewDirectLight(s, l.Module, l.Num)
			if err != nil {
				return nil, fmt.Errorf("light: %w", err)
			}
			entities = append(entities, NewRelayLight(dev, name))
			continue
		}

		bank, ok := banks[l.Module]
		if !ok {
			var err error
			bank, err = devices.NewRelayBank(s, l.Module, opts...)
			if err != nil {
				return nil, fmt.Errorf("light: %w", err)
			}
			banks[l.Module] = bank
		}
		dev, err := devices.NewLight(bank, l.Num)
		if err != nil {
			return nil, fmt.Errorf("light: %w", err)
		}
		entities = append(entities, NewRelayLight(dev, name))
	}

	seen := make(map[string]bool, len(entities))
	for _, e := range entities {
		id := e.Info().UniqueID
		if seen[id] {
			return nil, fmt.Errorf("duplicate entity %s", id)
		}
		seen[id] = true
	}
	return entities, nil
}

func nameOr(name, format string, module int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf(format, module)
}
