// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package domino

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Exchange describes one completed request/response cycle. Observers
// receive it after the bus lock has been released.
type Exchange struct {
	Time     time.Time
	Request  Frame
	Response []byte
	Duration time.Duration
	Err      error
}

// Exchange outcomes reported by Exchange.Result.
const (
	ResultOK        = "ok"
	ResultNoData    = "no_data"
	ResultTimeout   = "timeout"
	ResultMalformed = "malformed"
	ResultIOError   = "io_error"
)

// Result classifies the outcome of the exchange.
func (e Exchange) Result() string {
	switch {
	case e.Err == nil:
		if resp, err := ValidateResponse(e.Response); err == nil && resp.Empty() {
			return ResultNoData
		}
		return ResultOK
	case errors.Is(e.Err, ErrTimeout):
		return ResultTimeout
	case errors.Is(e.Err, ErrMalformedResponse):
		return ResultMalformed
	default:
		return ResultIOError
	}
}

// Observer is notified of every exchange. It must not call back into the
// session that produced the event.
type Observer func(Exchange)

// Option configures a Session
type Option func(*Session)

// WithLogger sets the logger used for frame dumps and lifecycle events.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// WithObserver registers an exchange observer. May be given several times.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		s.observers = append(s.observers, o)
	}
}

// WithPolling overrides the read poll interval and poll count.
func WithPolling(interval time.Duration, maxPolls int) Option {
	return func(s *Session) {
		s.pollInterval = interval
		s.maxPolls = maxPolls
	}
}

// WithSettleTime sets how long ReadAvailable keeps draining after the first
// bytes of a response arrive. Zero returns the first chunk as is.
func WithSettleTime(d time.Duration) Option {
	return func(s *Session) {
		s.settle = d
	}
}

// Session owns the single physical connection to a hub.
//
// The port is open exactly while the reference count is positive: Open
// increments it and opens the port on the 0→1 transition, Close decrements
// it and closes the port at zero. Exchange serializes request/response
// cycles across all goroutines sharing the session.
type Session struct {
	opener       Opener
	log          logrus.FieldLogger
	observers    []Observer
	pollInterval time.Duration
	maxPolls     int
	settle       time.Duration

	mu   sync.Mutex // guards port and refs
	port Port
	refs int

	bus sync.Mutex // held for the whole write+read+validate cycle
}

// NewSession creates a closed session. The opener fixes the port path and
// line settings for the lifetime of the session.
func NewSession(opener Opener, opts ...Option) *Session {
	s := &Session{
		opener:       opener,
		log:          logrus.StandardLogger(),
		pollInterval: DefaultPollInterval,
		maxPolls:     DefaultMaxPolls,
		settle:       DefaultSettleTime,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open acquires the session, opening the physical port on first use.
// Calls nest: every successful Open must be paired with a Close.
func (s *Session) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refs == 0 {
		if err := s.openPortLocked(); err != nil {
			return err
		}
	}

	s.refs++
	s.log.WithField("refs", s.refs).Trace("domino session acquired")
	return nil
}

func (s *Session) openPortLocked() error {
	port, err := s.opener()
	if err != nil {
		return err
	}
	if err := port.SetReadTimeout(s.pollInterval); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}
	s.port = port
	s.log.Debug("domino session opened")
	return nil
}

// Close releases the session. The port is closed when the last holder
// releases it. Closing an already closed session does nothing.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refs == 0 {
		return nil
	}

	s.refs--
	s.log.WithField("refs", s.refs).Trace("domino session released")
	if s.refs > 0 {
		return nil
	}

	port := s.port
	s.port = nil
	s.log.Debug("domino session closed")
	if port == nil {
		return nil
	}
	return port.Close()
}

// discardPort closes a port that failed with an I/O error. Holders keep
// their references; the next exchange reopens the port.
func (s *Session) discardPort(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return
	}
	s.log.WithError(cause).Warn("domino port failed, reopening on next exchange")
	_ = s.port.Close()
	s.port = nil
}

// Refs returns the current reference count.
func (s *Session) Refs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

// IsOpen reports whether the physical port is open.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}

// currentPort returns the open port. A port discarded after a failure is
// reopened here while the session is still held.
func (s *Session) currentPort() (Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs == 0 {
		return nil, ErrSessionClosed
	}
	if s.port == nil {
		if err := s.openPortLocked(); err != nil {
			return nil, fmt.Errorf("reopen failed: %w", err)
		}
	}
	return s.port, nil
}

// Write performs a blocking write of the whole buffer. Use Exchange for
// request/response traffic; Write alone does not take the bus lock.
func (s *Session) Write(data []byte) error {
	port, err := s.currentPort()
	if err != nil {
		return err
	}

	for written := 0; written < len(data); {
		n, err := port.Write(data[written:])
		if err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("write failed: %w", errors.New("port accepted no bytes"))
		}
		written += n
	}
	return nil
}

// ReadAvailable waits for the hub to answer, polling up to maxPolls times
// with one poll interval each, and returns every byte available once the
// first ones arrive. It fails with ErrTimeout when nothing arrives.
func (s *Session) ReadAvailable() ([]byte, error) {
	port, err := s.currentPort()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 64)
	for poll := 0; poll < s.maxPolls; poll++ {
		n, err := port.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("read failed: %w", err)
		}
		if n > 0 {
			return s.drain(port, buf[:n])
		}
	}
	return nil, ErrTimeout
}

// drain collects the rest of a response that arrived in several chunks.
func (s *Session) drain(port Port, data []byte) ([]byte, error) {
	if s.settle <= 0 {
		return data, nil
	}

	if err := port.SetReadTimeout(s.settle); err != nil {
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}
	defer port.SetReadTimeout(s.pollInterval)

	buf := make([]byte, 64)
	for len(data) < 256 {
		n, err := port.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("read failed: %w", err)
		}
		if n == 0 {
			break
		}
		data = append(data, buf[:n]...)
	}
	return data, nil
}

// Exchange sends one request and returns the hub's response. Only one
// exchange is in flight per session at any time. The session must be open.
//
// A sentinel answer comes back as an empty Response with a nil error.
// Timeouts and malformed responses are returned as *ExchangeError and are
// never retried here. Any other failure also closes the port, and the next
// exchange reopens it.
func (s *Session) Exchange(req Frame) (Response, error) {
	s.bus.Lock()
	event, resp, err := s.exchangeLocked(req)
	if err != nil && !errors.Is(err, ErrTimeout) && !errors.Is(err, ErrMalformedResponse) && !errors.Is(err, ErrSessionClosed) {
		s.discardPort(err)
	}
	s.bus.Unlock()

	for _, o := range s.observers {
		o(event)
	}

	if err != nil {
		return Response{}, &ExchangeError{Function: req.Function(), Module: req.Module(), Err: err}
	}
	return resp, nil
}

func (s *Session) exchangeLocked(req Frame) (Exchange, Response, error) {
	log := s.log.WithFields(logrus.Fields{
		"module":   req.Module(),
		"function": FormatFunction(req.Function()),
	})

	start := time.Now()
	event := Exchange{Time: start, Request: req}

	log.Debugf("TX %s", FormatBytes(req.Bytes()))
	if err := s.Write(req.Bytes()); err != nil {
		event.Duration = time.Since(start)
		event.Err = err
		return event, Response{}, err
	}

	raw, err := s.ReadAvailable()
	event.Duration = time.Since(start)
	event.Response = raw
	if err != nil {
		log.WithError(err).Debug("RX failed")
		event.Err = err
		return event, Response{}, err
	}
	log.Debugf("RX %s", FormatBytes(raw))

	resp, err := ValidateResponse(raw)
	if err != nil {
		event.Err = err
		return event, Response{}, err
	}
	return event, resp, nil
}
