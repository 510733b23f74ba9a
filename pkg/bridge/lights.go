// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package bridge

import (
	"fmt"
	"sync"

	"github.com/dominohub/dominobus/pkg/devices"
)

// MaxBrightness is the top of the brightness scale lights are published on.
const MaxBrightness = 255

func brightnessToPercent(bri int) int {
	return bri * 100 / MaxBrightness
}

func percentToBrightness(pct int) int {
	return pct * MaxBrightness / 100
}

// DimmerLight publishes a dimmer as a brightness light. Turning it on
// without a brightness restores the last nonzero level.
type DimmerLight struct {
	info Info
	dev  *devices.Dimmer

	mu    sync.Mutex
	state State
	prev  int
}

// NewDimmerLight wraps a dimmer.
func NewDimmerLight(dev *devices.Dimmer, name string) *DimmerLight {
	return &DimmerLight{
		dev: dev,
		info: Info{
			UniqueID:  fmt.Sprintf("domino_dimmer_%d", dev.Module()),
			Name:      name,
			Component: ComponentLight,
			Dimmable:  true,
		},
	}
}

func (d *DimmerLight) Info() Info {
	return d.info
}

func (d *DimmerLight) Update() (State, error) {
	pct, err := d.dev.Status()
	if err != nil {
		return State{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	bri := percentToBrightness(pct)
	d.state = State{On: pct > 0, Brightness: bri}
	if d.prev == 0 && bri > 0 {
		d.prev = bri
	}
	return d.state, nil
}

// Apply writes the command. The returned state reflects the command even
// when the write fails; the next poll corrects it.
func (d *DimmerLight) Apply(cmd Command) (State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cmd.State == StateOff {
		err := d.dev.SetLevel(0)
		if d.state.Brightness > 0 {
			d.prev = d.state.Brightness
		}
		d.state = State{}
		return d.state, err
	}

	bri := MaxBrightness
	if d.prev > 0 {
		bri = d.prev
	}
	if cmd.Brightness != nil {
		bri = min(max(*cmd.Brightness, 0), MaxBrightness)
	}
	err := d.dev.SetLevel(brightnessToPercent(bri))
	d.state = State{On: true, Brightness: bri}
	d.prev = bri
	return d.state, err
}

// switchable is a relay output, shared-bank or direct.
type switchable interface {
	Module() int
	Num() int
	Status() (bool, error)
	SetLevel(pct int) error
}

// RelayLight publishes one relay as an on/off light.
type RelayLight struct {
	info Info
	dev  switchable
}

// NewRelayLight wraps a relay light. dev is a *devices.Light or a
// *devices.DirectLight.
func NewRelayLight(dev switchable, name string) *RelayLight {
	return &RelayLight{
		dev: dev,
		info: Info{
			UniqueID:  fmt.Sprintf("domino_light_%d_%d", dev.Module(), dev.Num()),
			Name:      name,
			Component: ComponentLight,
		},
	}
}

func (r *RelayLight) Info() Info {
	return r.info
}

func (r *RelayLight) Update() (State, error) {
	on, err := r.dev.Status()
	if err != nil {
		return State{}, err
	}
	return State{On: on}, nil
}

func (r *RelayLight) Apply(cmd Command) (State, error) {
	on := cmd.State == StateOn
	level := 0
	if on {
		level = 100
	}
	err := r.dev.SetLevel(level)
	return State{On: on}, err
}
