// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package devices

import (
	"fmt"

	"github.com/dominohub/dominobus/pkg/domino"
)

// Temperature is a reading in tenths of a kelvin.
type Temperature struct {
	KelvinTenths uint16
}

// Kelvin returns the temperature in kelvin, rounded to 2 decimals.
func (t Temperature) Kelvin() float64 {
	return round2(float64(t.KelvinTenths) / 10)
}

// Celsius returns the temperature in degrees Celsius, rounded to 2 decimals.
func (t Temperature) Celsius() float64 {
	return round2(t.Kelvin() - 273.15)
}

func (t Temperature) String() string {
	return fmt.Sprintf("%.2f°C / %.2fK", t.Celsius(), t.Kelvin())
}

// RoomTemperature is a room thermostat module. The measured value lives on
// the address following the module's own.
type RoomTemperature struct {
	module int
	dec    decoder[Temperature]
}

// NewRoomTemperature creates a room sensor facade for module.
func NewRoomTemperature(s *domino.Session, module int, opts ...Option) (*RoomTemperature, error) {
	frames, err := statusRequests(module, 2, domino.FuncReadStatus)
	if err != nil {
		return nil, err
	}
	req := frames[1]

	r := &RoomTemperature{module: module}
	r.dec = newDecoder(s, true, defaultOptions(opts), func(x Exchanger) (Temperature, error) {
		kelvin, err := exchangeWord(x, req)
		if err != nil {
			return Temperature{}, err
		}
		return Temperature{KelvinTenths: kelvin}, nil
	})
	return r, nil
}

// Module returns the module address.
func (r *RoomTemperature) Module() int {
	return r.module
}

// Status returns the room temperature, served from cache for 60 seconds.
func (r *RoomTemperature) Status() (Temperature, error) {
	return r.dec.status()
}
