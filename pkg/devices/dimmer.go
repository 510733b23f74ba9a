// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package devices

import (
	"fmt"

	"github.com/dominohub/dominobus/pkg/domino"
)

// Dimmer is a single dimmable output. Its level is always read live.
type Dimmer struct {
	module  int
	session *domino.Session
	dec     decoder[int]
}

// decodeDimmer maps the output register to a percentage. A nonzero first
// byte means the module has no valid level and reads as off.
func decodeDimmer(d1, d2 byte) int {
	if d1 != 0 {
		return 0
	}
	return int(d2)
}

// NewDimmer creates a dimmer facade for module.
func NewDimmer(s *domino.Session, module int, opts ...Option) (*Dimmer, error) {
	frames, err := statusRequests(module, 1, domino.FuncReadOutputs)
	if err != nil {
		return nil, err
	}
	req := frames[0]

	d := &Dimmer{module: module, session: s}
	d.dec = newDecoder(s, false, defaultOptions(opts), func(x Exchanger) (int, error) {
		d1, d2, err := exchangeData(x, req)
		if err != nil {
			return 0, err
		}
		return decodeDimmer(d1, d2), nil
	})
	return d, nil
}

// Module returns the module address.
func (d *Dimmer) Module() int {
	return d.module
}

// Status returns the current level in percent.
func (d *Dimmer) Status() (int, error) {
	return d.dec.status()
}

// SetLevel sets the output level. pct is clamped to 0-100.
func (d *Dimmer) SetLevel(pct int) error {
	req, err := domino.WriteRequest(d.module, 0, ClampPercent(pct))
	if err != nil {
		return fmt.Errorf("dimmer %d: %w", d.module, err)
	}
	return withSession(d.session, func() error {
		_, err := d.session.Exchange(req)
		return err
	})
}
