// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Sink receives entity announcements, states and availability changes.
type Sink interface {
	Announce(ctx context.Context, infos []Info) error
	PublishState(ctx context.Context, info Info, st State) error
	PublishAvailability(ctx context.Context, info Info, available bool) error
}

// ErrUnknownEntity is returned for commands addressed to no known entity.
var ErrUnknownEntity = errors.New("unknown entity")

// ErrNotControllable is returned for commands sent to a read-only entity.
var ErrNotControllable = errors.New("entity does not accept commands")

// Option configures a Bridge
type Option func(*Bridge)

// WithLogger sets the bridge logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(b *Bridge) {
		b.log = log
	}
}

// WithMetrics records poll outcomes.
func WithMetrics(m *Metrics) Option {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// Bridge polls entities and publishes their state to every sink.
type Bridge struct {
	entities []Entity
	byID     map[string]Entity
	sinks    []Sink
	log      logrus.FieldLogger
	metrics  *Metrics

	mu        sync.Mutex
	available map[string]bool
}

// New creates a bridge over entities.
func New(entities []Entity, sinks []Sink, opts ...Option) *Bridge {
	b := &Bridge{
		entities:  entities,
		byID:      make(map[string]Entity, len(entities)),
		sinks:     sinks,
		log:       logrus.StandardLogger(),
		available: make(map[string]bool),
	}
	for _, e := range entities {
		b.byID[e.Info().UniqueID] = e
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Entities returns the bridged entities in configuration order.
func (b *Bridge) Entities() []Entity {
	return b.entities
}

// Announce publishes discovery information to every sink.
func (b *Bridge) Announce(ctx context.Context) error {
	infos := make([]Info, len(b.entities))
	for i, e := range b.entities {
		infos[i] = e.Info()
	}
	var errs []error
	for _, s := range b.sinks {
		if err := s.Announce(ctx, infos); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PollOnce updates every entity once, in order. A failing entity is marked
// unavailable and keeps its last published state; it is retried on the
// next cycle only.
func (b *Bridge) PollOnce(ctx context.Context) {
	for _, e := range b.entities {
		if ctx.Err() != nil {
			return
		}
		b.poll(ctx, e)
	}
}

func (b *Bridge) poll(ctx context.Context, e Entity) {
	info := e.Info()
	log := b.log.WithField("entity", info.UniqueID)

	start := time.Now()
	st, err := e.Update()
	if b.metrics != nil {
		b.metrics.ObservePoll(info.UniqueID, time.Since(start), err)
	}

	var rangeErr *RangeError
	switch {
	case errors.As(err, &rangeErr):
		log.Warnf("Discarding reading: %v", err)
		if !st.Known() {
			return
		}
	case err != nil:
		log.Errorf("Update failed: %v", err)
		b.setAvailable(ctx, info, false)
		return
	}

	log.Debugf("State %+v", st)
	b.setAvailable(ctx, info, true)
	b.publish(ctx, info, st)
}

// HandleCommand applies a light command and publishes the resulting state.
func (b *Bridge) HandleCommand(ctx context.Context, uniqueID string, cmd Command) error {
	e, ok := b.byID[uniqueID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, uniqueID)
	}
	c, ok := e.(Controllable)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotControllable, uniqueID)
	}

	info := e.Info()
	st, err := c.Apply(cmd)
	if err != nil {
		b.log.WithField("entity", uniqueID).Errorf("Command %s failed: %v", cmd.State, err)
	} else {
		b.log.WithField("entity", uniqueID).Infof("Turned %s (brightness %d)", cmd.State, st.Brightness)
	}
	b.publish(ctx, info, st)
	return err
}

// Run announces the entities, then polls immediately and on every interval
// until ctx is done.
func (b *Bridge) Run(ctx context.Context, interval time.Duration) error {
	if err := b.Announce(ctx); err != nil {
		b.log.Warnf("Announcing entities failed: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.log.Infof("Polling %d entities every %v", len(b.entities), interval)
	b.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			b.log.Debug("Polling stopped")
			return ctx.Err()
		case <-ticker.C:
			b.PollOnce(ctx)
		}
	}
}

func (b *Bridge) publish(ctx context.Context, info Info, st State) {
	for _, s := range b.sinks {
		if err := s.PublishState(ctx, info, st); err != nil {
			b.log.WithField("entity", info.UniqueID).Warnf("Publishing state failed: %v", err)
		}
	}
}

// setAvailable publishes availability when it changes.
func (b *Bridge) setAvailable(ctx context.Context, info Info, available bool) {
	b.mu.Lock()
	prev, known := b.available[info.UniqueID]
	b.available[info.UniqueID] = available
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.SetAvailable(info.UniqueID, available)
	}
	if known && prev == available {
		return
	}
	for _, s := range b.sinks {
		if err := s.PublishAvailability(ctx, info, available); err != nil {
			b.log.WithField("entity", info.UniqueID).Warnf("Publishing availability failed: %v", err)
		}
	}
}

// Available reports the last known availability of an entity.
func (b *Bridge) Available(uniqueID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available[uniqueID]
}
