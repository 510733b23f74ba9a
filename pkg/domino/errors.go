// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package domino

import (
	"errors"
	"fmt"
)

// Protocol errors. Match them with errors.Is.
var (
	// ErrTimeout is returned when no byte arrived within the poll budget.
	ErrTimeout = errors.New("domino: no response from hub")

	// ErrMalformedResponse is returned for responses too short to classify.
	ErrMalformedResponse = errors.New("domino: malformed response")

	// ErrInvalidArgument is returned before any I/O for out-of-range values.
	ErrInvalidArgument = errors.New("domino: invalid argument")

	// ErrNoData marks a sentinel response: the module has no measurement.
	ErrNoData = errors.New("domino: no data")

	// ErrSessionClosed is returned when exchanging on a session that is not open.
	ErrSessionClosed = errors.New("domino: session not open")
)

// ExchangeError wraps a failure of one request/response cycle with the
// request that caused it.
type ExchangeError struct {
	Function byte
	Module   byte
	Err      error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("%s module %d: %v", FormatFunction(e.Function), e.Module, e.Err)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}
