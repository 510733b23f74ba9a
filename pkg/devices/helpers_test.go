// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package devices

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dominohub/dominobus/pkg/domino"
	"github.com/dominohub/dominobus/pkg/domino/dominotest"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestSession(t *testing.T, hub *dominotest.Hub) *domino.Session {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return domino.NewSession(hub.Opener(),
		domino.WithLogger(log),
		domino.WithPolling(time.Millisecond, 2),
		domino.WithSettleTime(0))
}

func countRequests(hub *dominotest.Hub, function, module byte) int {
	n := 0
	for _, r := range hub.Requests() {
		if r.Function() == function && r.Module() == module {
			n++
		}
	}
	return n
}
