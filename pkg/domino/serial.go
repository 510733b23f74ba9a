// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package domino

import (
	"fmt"

	"go.bug.st/serial"
)

// SerialMode returns the fixed line settings of a Domino hub: 8-N-1 with no
// flow control.
func SerialMode(baud int) *serial.Mode {
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// SerialOpener returns an Opener for a local serial device.
func SerialOpener(path string, baud int) Opener {
	return func() (Port, error) {
		if baud <= 0 {
			return nil, fmt.Errorf("%w: baud rate %d", ErrInvalidArgument, baud)
		}

		port, err := serial.Open(path, SerialMode(baud))
		if err != nil {
			return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
		}

		return port, nil
	}
}
