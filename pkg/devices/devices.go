// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

// Package devices decodes Domino module responses into typed values and
// exposes the bus modules as small stateful facades.
//
// A facade is bound to one shared *domino.Session. Each call acquires the
// session for its duration, so the port stays open only while some facade
// is talking to the hub.
package devices

import (
	"fmt"
	"math"
	"time"

	"github.com/dominohub/dominobus/pkg/domino"
)

// Exchanger performs one request/response cycle. *domino.Session implements it.
type Exchanger interface {
	Exchange(req domino.Frame) (domino.Response, error)
}

// Option configures a facade
type Option func(*options)

type options struct {
	ttl   time.Duration
	clock Clock
}

func defaultOptions(opts []Option) options {
	o := options{ttl: CacheTTL, clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock substitutes the time source used for cache freshness.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithTTL overrides the cache freshness window.
func WithTTL(d time.Duration) Option {
	return func(o *options) {
		o.ttl = d
	}
}

// decoder binds a pure read function to a session and an optional cache.
type decoder[T any] struct {
	session *domino.Session
	cache   *Cached[T]
	read    func(x Exchanger) (T, error)
}

func newDecoder[T any](s *domino.Session, cached bool, o options, read func(x Exchanger) (T, error)) decoder[T] {
	d := decoder[T]{session: s, read: read}
	if cached {
		d.cache = NewCached[T](o.ttl, o.clock)
	}
	return d
}

func (d *decoder[T]) status() (T, error) {
	if d.cache == nil {
		return d.fetch()
	}
	return d.cache.Get(d.fetch)
}

func (d *decoder[T]) fetch() (T, error) {
	var v T
	err := withSession(d.session, func() error {
		var err error
		v, err = d.read(d.session)
		return err
	})
	return v, err
}

// withSession holds the session open for the duration of fn.
func withSession(s *domino.Session, fn func() error) error {
	if err := s.Open(); err != nil {
		return err
	}
	defer s.Close()
	return fn()
}

// exchangeData sends req and returns the payload bytes, turning a sentinel
// answer into domino.ErrNoData.
func exchangeData(x Exchanger, req domino.Frame) (byte, byte, error) {
	resp, err := x.Exchange(req)
	if err != nil {
		return 0, 0, err
	}
	if resp.Empty() {
		return 0, 0, fmt.Errorf("module %d: %w", req.Module(), domino.ErrNoData)
	}
	d1, d2 := resp.Data()
	return d1, d2, nil
}

func exchangeWord(x Exchanger, req domino.Frame) (uint16, error) {
	d1, d2, err := exchangeData(x, req)
	if err != nil {
		return 0, err
	}
	return domino.DecodeWord(d1, d2), nil
}

// statusRequests prebuilds read frames for count consecutive modules.
func statusRequests(module, count, function int) ([]domino.Frame, error) {
	if module < domino.MinModule || module+count-1 > domino.MaxModule {
		return nil, fmt.Errorf("%w: module %d needs addresses %d-%d within %d-%d",
			domino.ErrInvalidArgument, module, module, module+count-1, domino.MinModule, domino.MaxModule)
	}
	frames := make([]domino.Frame, count)
	for i := range frames {
		f, err := domino.StatusRequest(module+i, function)
		if err != nil {
			return nil, err
		}
		frames[i] = f
	}
	return frames, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ClampPercent limits a level to 0-100, as every dimmer write does.
func ClampPercent(pct int) int {
	return min(max(pct, 0), 100)
}
