// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

// Package dominotest provides a scripted in-memory hub for tests.
package dominotest

import (
	"errors"
	"sync"
	"time"

	"github.com/dominohub/dominobus/pkg/domino"
)

// Responder produces the chunks a hub sends back for one request. Returning
// no chunks simulates a hub that stays silent.
type Responder func(req domino.Frame) [][]byte

// Hub is a fake Domino hub. Every Opener call yields a new Port connected
// to the same hub, so open/close counts can be asserted.
type Hub struct {
	mu        sync.Mutex
	responder Responder
	requests  []domino.Frame
	opens     int
	closes    int
	openErr   error
	writeErr  error
}

// NewHub creates a hub answering with responder.
func NewHub(responder Responder) *Hub {
	return &Hub{responder: responder}
}

// Opener returns a domino.Opener backed by the hub.
func (h *Hub) Opener() domino.Opener {
	return func() (domino.Port, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.openErr != nil {
			return nil, h.openErr
		}
		h.opens++
		return &Port{hub: h}, nil
	}
}

// FailOpen makes subsequent opens fail with err (nil restores).
func (h *Hub) FailOpen(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.openErr = err
}

// FailWrite makes subsequent writes fail with err (nil restores).
func (h *Hub) FailWrite(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writeErr = err
}

// SetResponder swaps the responder.
func (h *Hub) SetResponder(r Responder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.responder = r
}

// Requests returns every frame received so far.
func (h *Hub) Requests() []domino.Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domino.Frame, len(h.requests))
	copy(out, h.requests)
	return out
}

// Opens returns the number of physical opens.
func (h *Hub) Opens() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opens
}

// Closes returns the number of physical closes.
func (h *Hub) Closes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closes
}

// Port is one open connection to a Hub.
type Port struct {
	hub     *Hub
	mu      sync.Mutex
	pending [][]byte
	closed  bool
	timeout time.Duration
}

// Read returns the next pending chunk, or 0 bytes when nothing is queued,
// like a serial read that hit its timeout.
func (p *Port) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errors.New("dominotest: port closed")
	}
	if len(p.pending) == 0 {
		return 0, nil
	}
	n := copy(b, p.pending[0])
	if n < len(p.pending[0]) {
		p.pending[0] = p.pending[0][n:]
	} else {
		p.pending = p.pending[1:]
	}
	return n, nil
}

// Write parses a request frame and queues the hub's answer.
func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errors.New("dominotest: port closed")
	}

	p.hub.mu.Lock()
	writeErr := p.hub.writeErr
	responder := p.hub.responder
	p.hub.mu.Unlock()
	if writeErr != nil {
		return 0, writeErr
	}

	req, err := domino.ParseFrame(b)
	if err != nil {
		return 0, err
	}

	p.hub.mu.Lock()
	p.hub.requests = append(p.hub.requests, req)
	p.hub.mu.Unlock()

	if responder != nil {
		p.pending = append(p.pending, responder(req)...)
	}
	return len(b), nil
}

// Close closes the port.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	p.hub.mu.Lock()
	p.hub.closes++
	p.hub.mu.Unlock()
	return nil
}

// SetReadTimeout records the timeout; reads never block.
func (p *Port) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = t
	return nil
}

// Reply builds a 7-byte response carrying status, d1 and d2.
func Reply(module, status, d1, d2 byte) []byte {
	resp := []byte{domino.SyncByte, domino.HeaderByte, status, module, d1, d2}
	return append(resp, domino.Checksum(resp))
}

// Word builds a successful response carrying a 16-bit value.
func Word(module byte, v uint16) []byte {
	d1, d2 := domino.EncodeWord(v)
	return Reply(module, 0x01, d1, d2)
}

// NoData builds the no-value sentinel response.
func NoData(module byte) []byte {
	return Reply(module, 0x00, 0x00, 0xF0)
}

// Table answers by (function, module) with one chunk; missing entries stay silent.
func Table(answers map[[2]byte][]byte) Responder {
	return func(req domino.Frame) [][]byte {
		if resp, ok := answers[[2]byte{req.Function(), req.Module()}]; ok {
			return [][]byte{resp}
		}
		return nil
	}
}

// Key is a Table key for function and module.
func Key(function, module byte) [2]byte {
	return [2]byte{function, module}
}
