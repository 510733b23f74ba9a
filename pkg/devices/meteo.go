// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package devices

import (
	"fmt"
	"strings"

	"github.com/dominohub/dominobus/pkg/domino"
)

// MeteoFlags is the weather station's first flag byte.
type MeteoFlags byte

// Flag bits
const (
	FlagRaining       MeteoFlags = 0x80
	FlagTwilight      MeteoFlags = 0x40
	FlagTempOverRange MeteoFlags = 0x20
	FlagLuxOverRange  MeteoFlags = 0x10
	FlagWindOverRange MeteoFlags = 0x08
	FlagLightSouth    MeteoFlags = 0x04
	FlagLightWest     MeteoFlags = 0x02
	FlagLightEast     MeteoFlags = 0x01
)

// Diagnostic byte values
const (
	diagnosticBadSensor = 0x02

	// windGlitchPattern in the diagnostic byte accompanies bogus wind readings.
	windGlitchPattern = 0x10
)

// Has reports whether all bits of f are set.
func (m MeteoFlags) Has(f MeteoFlags) bool {
	return m&f == f
}

// MeteoStatus is one full weather station reading.
type MeteoStatus struct {
	Temperature
	DeciLux     uint16
	DeciWind    uint16
	Flags       MeteoFlags
	Diagnostics byte
}

// Lux returns the illuminance in lux.
func (m MeteoStatus) Lux() float64 {
	return round2(float64(m.DeciLux) * 10)
}

// Wind returns the wind speed in m/s.
func (m MeteoStatus) Wind() float64 {
	return round2(float64(m.DeciWind) / 10)
}

// Raining reports the rain sensor state.
func (m MeteoStatus) Raining() bool {
	return m.Flags.Has(FlagRaining)
}

// Twilight reports whether the light level is below the twilight threshold.
func (m MeteoStatus) Twilight() bool {
	return m.Flags.Has(FlagTwilight)
}

// BadSensor reports the station's own sensor fault bit.
func (m MeteoStatus) BadSensor() bool {
	return m.Diagnostics&diagnosticBadSensor != 0
}

func (m MeteoStatus) String() string {
	rain := "not raining"
	if m.Raining() {
		rain = "raining"
	}
	light := "day"
	if m.Twilight() {
		light = "twilight"
	}
	return fmt.Sprintf("%s / %.2f lux / %.2f m/s / %s / %s", m.Temperature, m.Lux(), m.Wind(), rain, light)
}

// OverRange lists the measurements the station flagged as out of range.
func (m MeteoStatus) OverRange() []string {
	var out []string
	for _, f := range []struct {
		flag MeteoFlags
		name string
	}{
		{FlagTempOverRange, "temperature"},
		{FlagLuxOverRange, "illuminance"},
		{FlagWindOverRange, "wind"},
	} {
		if m.Flags.Has(f.flag) {
			out = append(out, f.name)
		}
	}
	return out
}

// SunDirection names the facades the station sees light on (S, W, E).
func (m MeteoStatus) SunDirection() string {
	var sb strings.Builder
	for _, f := range []struct {
		flag MeteoFlags
		name string
	}{
		{FlagLightSouth, "S"},
		{FlagLightWest, "W"},
		{FlagLightEast, "E"},
	} {
		if m.Flags.Has(f.flag) {
			sb.WriteString(f.name)
		}
	}
	return sb.String()
}

// decodeMeteo assembles a status from the four station registers.
func decodeMeteo(kelvin, lux, wind uint16, flags, diag byte) MeteoStatus {
	if diag == windGlitchPattern {
		wind = 0
	}
	return MeteoStatus{
		Temperature: Temperature{KelvinTenths: kelvin},
		DeciLux:     lux,
		DeciWind:    wind,
		Flags:       MeteoFlags(flags),
		Diagnostics: diag,
	}
}

// Meteo is an outdoor weather station occupying four consecutive addresses:
// temperature, illuminance, wind and flags.
type Meteo struct {
	module int
	dec    decoder[MeteoStatus]
}

// NewMeteo creates a weather station facade for module.
func NewMeteo(s *domino.Session, module int, opts ...Option) (*Meteo, error) {
	frames, err := statusRequests(module, 4, domino.FuncReadStatus)
	if err != nil {
		return nil, err
	}

	m := &Meteo{module: module}
	m.dec = newDecoder(s, true, defaultOptions(opts), func(x Exchanger) (MeteoStatus, error) {
		var words [3]uint16
		for i := range words {
			w, err := exchangeWord(x, frames[i])
			if err != nil {
				return MeteoStatus{}, err
			}
			words[i] = w
		}
		flags, diag, err := exchangeData(x, frames[3])
		if err != nil {
			return MeteoStatus{}, err
		}
		return decodeMeteo(words[0], words[1], words[2], flags, diag), nil
	})
	return m, nil
}

// Module returns the station's first address.
func (m *Meteo) Module() int {
	return m.module
}

// Status returns the station reading, served from cache for 60 seconds.
func (m *Meteo) Status() (MeteoStatus, error) {
	return m.dec.status()
}
