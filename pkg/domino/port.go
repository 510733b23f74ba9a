// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package domino

import (
	"io"
	"time"
)

// Port is the byte stream to the hub. A Read that times out returns 0 bytes
// and a nil error, which is how go.bug.st/serial ports behave.
type Port interface {
	io.Reader
	io.Writer
	io.Closer
	SetReadTimeout(t time.Duration) error
}

// Opener opens the physical port. A Session calls it each time its
// reference count goes from zero to one.
type Opener func() (Port, error)
