// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package trace

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/dominohub/dominobus/pkg/domino"
	"github.com/dominohub/dominobus/pkg/domino/dominotest"
)

func sampleExchanges() []domino.Exchange {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []domino.Exchange{
		{
			Time:     start,
			Request:  domino.MustBuildRequest(31, domino.FuncReadStatus, domino.DefaultData, domino.DefaultData),
			Response: dominotest.Word(31, 2931),
			Duration: 40 * time.Millisecond,
		},
		{
			Time:     start.Add(time.Second),
			Request:  domino.MustBuildRequest(41, domino.FuncReadStatus, domino.DefaultData, domino.DefaultData),
			Response: dominotest.NoData(41),
			Duration: 35 * time.Millisecond,
		},
		{
			Time:     start.Add(2 * time.Second),
			Request:  domino.MustBuildRequest(23, domino.FuncWrite, 0, 50),
			Duration: 10 * time.Second,
			Err:      domino.ErrTimeout,
		},
	}
}

func TestRecorder_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(&buf)
	for _, e := range sampleExchanges() {
		rec.Observe(e)
	}
	if rec.Count() != 3 {
		t.Errorf("Count() = %d, want 3", rec.Count())
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	records, err := NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("read %d records, want 3", len(records))
	}

	want := sampleExchanges()
	for i, r := range records {
		got := r.Exchange()
		if !got.Time.Equal(want[i].Time) {
			t.Errorf("record %d time = %v, want %v", i, got.Time, want[i].Time)
		}
		if got.Request != want[i].Request {
			t.Errorf("record %d request = % X, want % X", i, got.Request.Bytes(), want[i].Request.Bytes())
		}
		if !bytes.Equal(got.Response, want[i].Response) {
			t.Errorf("record %d response = % X, want % X", i, got.Response, want[i].Response)
		}
		if got.Duration != want[i].Duration {
			t.Errorf("record %d duration = %v, want %v", i, got.Duration, want[i].Duration)
		}
	}

	if records[0].Result != domino.ResultOK || records[1].Result != domino.ResultNoData || records[2].Result != domino.ResultTimeout {
		t.Errorf("results = %s/%s/%s", records[0].Result, records[1].Result, records[2].Result)
	}
	if records[2].Error != domino.ErrTimeout.Error() {
		t.Errorf("error text = %q", records[2].Error)
	}

	replayed := records[2].Exchange()
	if !errors.Is(replayed.Err, domino.ErrTimeout) {
		t.Errorf("replayed error %v does not match ErrTimeout", replayed.Err)
	}
	if replayed.Result() != domino.ResultTimeout {
		t.Errorf("replayed Result() = %q, want %q", replayed.Result(), domino.ResultTimeout)
	}
}

func TestReader_Truncated(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(&buf)
	rec.Observe(sampleExchanges()[0])

	data := buf.Bytes()
	r := NewReader(bytes.NewReader(data[:len(data)-3]))
	if _, err := r.Next(); err == nil || errors.Is(err, io.EOF) {
		t.Errorf("Next() on truncated record = %v, want decode error", err)
	}
}

func TestReader_Empty(t *testing.T) {
	records, err := NewReader(bytes.NewReader(nil)).ReadAll()
	if err != nil || len(records) != 0 {
		t.Errorf("ReadAll(empty) = %v, %v", records, err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestRecorder_WriteErrorSticks(t *testing.T) {
	rec := NewRecorder(failingWriter{})
	rec.Observe(sampleExchanges()[0])
	rec.Observe(sampleExchanges()[1])
	if rec.Err() == nil {
		t.Fatal("Err() = nil after failed write")
	}
	if rec.Count() != 0 {
		t.Errorf("Count() = %d, want 0", rec.Count())
	}
	if rec.Close() == nil {
		t.Error("Close() = nil after failed write")
	}
}

func TestCreateAndOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bus.trace")

	// Two sessions append to the same file
	for iter := 0; iter < 2; iter++ {
		rec, err := Create(path)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		rec.Observe(sampleExchanges()[0])
		if err := rec.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}

	records, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("read %d records, want 2", len(records))
	}
}

func TestRecorder_AsSessionObserver(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(&buf)

	hub := dominotest.NewHub(dominotest.Table(map[[2]byte][]byte{
		dominotest.Key(domino.FuncReadStatus, 31): dominotest.Word(31, 2931),
	}))
	s := domino.NewSession(hub.Opener(),
		domino.WithObserver(rec.Observe),
		domino.WithPolling(time.Millisecond, 2),
		domino.WithSettleTime(0))
	if err := s.Open(); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	req, _ := domino.StatusRequest(31, domino.FuncReadStatus)
	if _, err := s.Exchange(req); err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}

	records, err := NewReader(&buf).ReadAll()
	if err != nil || len(records) != 1 {
		t.Fatalf("ReadAll = %d records, %v", len(records), err)
	}
	if records[0].Exchange().Request != req {
		t.Error("recorded request differs from the frame sent")
	}
}
