// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package domino

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestStatistics_Observe(t *testing.T) {
	s := NewStatistics()
	req := MustBuildRequest(10, FuncReadStatus, DefaultData, DefaultData)
	now := time.Now()

	s.Observe(Exchange{Time: now, Request: req, Response: []byte{0x55, 0x82, 0x01, 0x0A, 0x0A, 0xAB, 0x00}, Duration: 20 * time.Millisecond})
	s.Observe(Exchange{Time: now, Request: req, Response: []byte{0x55, 0x82, 0x00, 0x0A, 0x00, 0xF0, 0x00}, Duration: 40 * time.Millisecond})
	s.Observe(Exchange{Time: now, Request: req, Err: ErrTimeout, Duration: 10 * time.Second})
	s.Observe(Exchange{Time: now, Request: req, Err: ErrMalformedResponse})
	s.Observe(Exchange{Time: now, Request: req, Err: errors.New("broken pipe")})

	snap := s.Snapshot()
	checks := []struct {
		name string
		got  uint64
		want uint64
	}{
		{"TotalExchanges", snap.TotalExchanges, 5},
		{"Succeeded", snap.Succeeded, 2},
		{"NoData", snap.NoData, 1},
		{"Timeouts", snap.Timeouts, 1},
		{"Malformed", snap.Malformed, 1},
		{"IOErrors", snap.IOErrors, 1},
		{"Errors()", snap.Errors(), 3},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}

	if snap.AverageLatency() != 30*time.Millisecond {
		t.Errorf("AverageLatency() = %s, want 30ms", snap.AverageLatency())
	}
	if snap.MaxLatency != 40*time.Millisecond {
		t.Errorf("MaxLatency = %s, want 40ms", snap.MaxLatency)
	}
}

func TestStatistics_StringAndReset(t *testing.T) {
	s := NewStatistics()
	s.Observe(Exchange{Time: time.Now(), Err: ErrTimeout})

	out := s.String()
	for _, want := range []string{"Exchanges:", "Timeouts:", "Error Rate:"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q:\n%s", want, out)
		}
	}

	s.Reset()
	if snap := s.Snapshot(); snap.TotalExchanges != 0 || snap.Timeouts != 0 {
		t.Errorf("after Reset() counters = %d/%d, want 0/0", snap.TotalExchanges, snap.Timeouts)
	}
}
