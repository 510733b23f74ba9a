// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

// Package trace records bus exchanges to a file and reads them back.
//
// A trace is a CBOR sequence: one array-encoded Record per exchange,
// appended as exchanges complete.
package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/dominohub/dominobus/pkg/domino"
)

// Record is one exchange as stored in a trace file.
type Record struct {
	_        struct{} `cbor:",toarray"`
	Time     int64    // unix nanoseconds
	Request  []byte
	Response []byte
	Duration int64 // nanoseconds
	Result   string
	Error    string
}

// NewRecord converts an exchange into its stored form.
func NewRecord(e domino.Exchange) Record {
	r := Record{
		Time:     e.Time.UnixNano(),
		Request:  append([]byte(nil), e.Request.Bytes()...),
		Response: append([]byte(nil), e.Response...),
		Duration: int64(e.Duration),
		Result:   e.Result(),
	}
	if e.Err != nil {
		r.Error = e.Err.Error()
	}
	return r
}

// recordedError restores an error read back from a trace. It keeps the
// original text and unwraps to the protocol error matching the result.
type recordedError struct {
	msg  string
	kind error
}

func (e *recordedError) Error() string { return e.msg }
func (e *recordedError) Unwrap() error { return e.kind }

func resultError(result string) error {
	switch result {
	case domino.ResultTimeout:
		return domino.ErrTimeout
	case domino.ResultMalformed:
		return domino.ErrMalformedResponse
	}
	return nil
}

// Exchange rebuilds the exchange. The error keeps its text and still
// matches ErrTimeout or ErrMalformedResponse with errors.Is.
func (r Record) Exchange() domino.Exchange {
	e := domino.Exchange{
		Time:     time.Unix(0, r.Time),
		Response: r.Response,
		Duration: time.Duration(r.Duration),
	}
	copy(e.Request[:], r.Request)
	if r.Error != "" {
		e.Err = &recordedError{msg: r.Error, kind: resultError(r.Result)}
	}
	return e
}

// Recorder appends exchanges to a trace. Observe can be registered as a
// session observer.
type Recorder struct {
	mu     sync.Mutex
	enc    *cbor.Encoder
	closer io.Closer
	count  int
	err    error
}

// NewRecorder writes records to w.
func NewRecorder(w io.Writer) *Recorder {
	r := &Recorder{enc: cbor.NewEncoder(w)}
	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}
	return r
}

// Create opens path for appending and returns a recorder writing to it.
func Create(path string) (*Recorder, error) {
	// #nosec G304 - trace path is supplied by the user
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace %s: %w", path, err)
	}
	return NewRecorder(f), nil
}

// Observe records one exchange. After the first write error the recorder
// stops writing and reports the error from Err and Close.
func (r *Recorder) Observe(e domino.Exchange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return
	}
	if err := r.enc.Encode(NewRecord(e)); err != nil {
		r.err = fmt.Errorf("trace write failed: %w", err)
		return
	}
	r.count++
}

// Count returns the number of records written.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Err returns the first write error.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close closes the underlying file, if the recorder owns one.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closer != nil {
		if err := r.closer.Close(); err != nil && r.err == nil {
			r.err = err
		}
		r.closer = nil
	}
	return r.err
}

// Reader decodes records from a trace.
type Reader struct {
	dec *cbor.Decoder
}

// NewReader reads records from rd.
func NewReader(rd io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(rd)}
}

// Next returns the next record, or io.EOF at the end of the trace.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return rec, io.EOF
		}
		return rec, fmt.Errorf("failed to decode trace record: %w", err)
	}
	return rec, nil
}

// ReadAll returns every record up to the end of the trace.
func (r *Reader) ReadAll() ([]Record, error) {
	var out []Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

// Open reads every record of the trace at path.
func Open(path string) ([]Record, error) {
	// #nosec G304 - trace path is supplied by the user
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace %s: %w", path, err)
	}
	defer f.Close()
	return NewReader(f).ReadAll()
}
