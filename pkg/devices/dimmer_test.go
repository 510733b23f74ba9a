// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package devices

import (
	"errors"
	"testing"

	"github.com/dominohub/dominobus/pkg/domino"
	"github.com/dominohub/dominobus/pkg/domino/dominotest"
)

func TestDecodeDimmer(t *testing.T) {
	tests := []struct {
		d1, d2 byte
		want   int
	}{
		{0x00, 0, 0},
		{0x00, 42, 42},
		{0x00, 100, 100},
		{0x01, 80, 0},
		{0xFF, 100, 0},
	}
	for _, tt := range tests {
		if got := decodeDimmer(tt.d1, tt.d2); got != tt.want {
			t.Errorf("decodeDimmer(0x%02X, %d) = %d, want %d", tt.d1, tt.d2, got, tt.want)
		}
	}
}

func TestClampPercent(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-5, 0},
		{0, 0},
		{42, 42},
		{100, 100},
		{150, 100},
	}
	for _, tt := range tests {
		if got := ClampPercent(tt.in); got != tt.want {
			t.Errorf("ClampPercent(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDimmer_StatusIsLive(t *testing.T) {
	hub := dominotest.NewHub(dominotest.Table(map[[2]byte][]byte{
		dominotest.Key(domino.FuncReadOutputs, 60): dominotest.Reply(60, 0x01, 0x00, 75),
	}))
	s := newTestSession(t, hub)

	d, err := NewDimmer(s, 60)
	if err != nil {
		t.Fatalf("NewDimmer failed: %v", err)
	}
	for iter := 0; iter < 3; iter++ {
		level, err := d.Status()
		if err != nil {
			t.Fatalf("Status() failed: %v", err)
		}
		if level != 75 {
			t.Errorf("Status() = %d, want 75", level)
		}
	}
	if n := countRequests(hub, domino.FuncReadOutputs, 60); n != 3 {
		t.Errorf("read requests = %d, want 3", n)
	}
}

func TestDimmer_SetLevel(t *testing.T) {
	tests := []struct {
		pct  int
		want byte
	}{
		{0, 0},
		{55, 55},
		{100, 100},
		{150, 100},
		{-5, 0},
	}

	for _, tt := range tests {
		hub := dominotest.NewHub(func(req domino.Frame) [][]byte {
			return [][]byte{dominotest.Reply(req.Module(), 0x01, 0x00, 0x00)}
		})
		s := newTestSession(t, hub)
		d, _ := NewDimmer(s, 61)

		if err := d.SetLevel(tt.pct); err != nil {
			t.Fatalf("SetLevel(%d) failed: %v", tt.pct, err)
		}
		reqs := hub.Requests()
		if len(reqs) != 1 {
			t.Fatalf("SetLevel(%d) sent %d frames, want 1", tt.pct, len(reqs))
		}
		want := domino.MustBuildRequest(61, domino.FuncWrite, 0, int(tt.want))
		if reqs[0] != want {
			t.Errorf("SetLevel(%d) frame = % X, want % X", tt.pct, reqs[0].Bytes(), want.Bytes())
		}
	}
}

func TestDimmer_NoData(t *testing.T) {
	hub := dominotest.NewHub(dominotest.Table(map[[2]byte][]byte{
		dominotest.Key(domino.FuncReadOutputs, 62): dominotest.NoData(62),
	}))
	d, _ := NewDimmer(newTestSession(t, hub), 62)
	if _, err := d.Status(); !errors.Is(err, domino.ErrNoData) {
		t.Errorf("Status() error = %v, want ErrNoData", err)
	}
}
