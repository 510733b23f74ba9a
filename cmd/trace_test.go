// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The dominobus Authors

package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dominohub/dominobus/pkg/domino"
	"github.com/dominohub/dominobus/pkg/domino/dominotest"
	"github.com/dominohub/dominobus/pkg/trace"
)

func recordedTrace(t *testing.T) *bytes.Buffer {
	t.Helper()
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	rec := trace.NewRecorder(&buf)
	rec.Observe(domino.Exchange{
		Time:     start,
		Request:  domino.MustBuildRequest(31, domino.FuncReadStatus, domino.DefaultData, domino.DefaultData),
		Response: dominotest.Word(31, 2931),
		Duration: 40 * time.Millisecond,
	})
	rec.Observe(domino.Exchange{
		Time:     start.Add(time.Second),
		Request:  domino.MustBuildRequest(41, domino.FuncReadStatus, domino.DefaultData, domino.DefaultData),
		Response: dominotest.NoData(41),
		Duration: 30 * time.Millisecond,
	})
	rec.Observe(domino.Exchange{
		Time:     start.Add(2 * time.Second),
		Request:  domino.MustBuildRequest(23, domino.FuncWrite, 0, 50),
		Duration: 10 * time.Second,
		Err:      domino.ErrTimeout,
	})
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return &buf
}

func resetTraceFlags(t *testing.T) {
	t.Cleanup(func() {
		traceErrorsOnly = false
		traceModule = -1
	})
}

func TestShowTrace(t *testing.T) {
	resetTraceFlags(t)
	traceModule = -1

	var out bytes.Buffer
	if err := showTrace(recordedTrace(t), &out); err != nil {
		t.Fatalf("showTrace failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"module=31", "word=2931", "NO_DATA", "no response from hub",
		"3 exchanges", "succeeded 2, no data 1, timeouts 1",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestShowTrace_Filters(t *testing.T) {
	resetTraceFlags(t)

	traceErrorsOnly = true
	traceModule = -1
	var out bytes.Buffer
	if err := showTrace(recordedTrace(t), &out); err != nil {
		t.Fatalf("showTrace failed: %v", err)
	}
	if strings.Contains(out.String(), "module=31") || !strings.Contains(out.String(), "1 exchanges") {
		t.Errorf("errors-only output:\n%s", out.String())
	}

	traceErrorsOnly = false
	traceModule = 41
	out.Reset()
	if err := showTrace(recordedTrace(t), &out); err != nil {
		t.Fatalf("showTrace failed: %v", err)
	}
	if !strings.Contains(out.String(), "module=41") || strings.Contains(out.String(), "module=23") {
		t.Errorf("module filter output:\n%s", out.String())
	}

	traceModule = 99
	out.Reset()
	if err := showTrace(recordedTrace(t), &out); err != nil {
		t.Fatalf("showTrace failed: %v", err)
	}
	if !strings.Contains(out.String(), "no matching exchanges") {
		t.Errorf("empty filter output:\n%s", out.String())
	}
}

func TestShowTrace_Truncated(t *testing.T) {
	resetTraceFlags(t)
	traceModule = -1

	buf := recordedTrace(t)
	data := buf.Bytes()[:buf.Len()-2]

	var out bytes.Buffer
	err := showTrace(bytes.NewReader(data), &out)
	if err == nil || !strings.Contains(err.Error(), "after 2 records") {
		t.Errorf("showTrace(truncated) error = %v", err)
	}
}
