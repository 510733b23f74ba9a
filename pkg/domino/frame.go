// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package domino

import "fmt"

// Frame is a complete request frame ready for transmission.
type Frame [FrameSize]byte

// Checksum computes the Domino checksum over data: 0xFF minus the low byte
// of the byte sum.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return 0xFF - sum
}

// BuildRequest assembles a request frame. Every argument must fit in a byte.
func BuildRequest(module, function, d1, d2 int) (Frame, error) {
	var f Frame
	for _, arg := range []struct {
		name  string
		value int
	}{
		{"module", module},
		{"function", function},
		{"data1", d1},
		{"data2", d2},
	} {
		if arg.value < 0 || arg.value > 0xFF {
			return f, fmt.Errorf("%w: %s %d out of range 0-255", ErrInvalidArgument, arg.name, arg.value)
		}
	}

	f[0] = SyncByte
	f[1] = HeaderByte
	f[2] = byte(function)
	f[3] = byte(module)
	f[4] = byte(d1)
	f[5] = byte(d2)
	f[6] = Checksum(f[:PayloadSize])
	return f, nil
}

// StatusRequest builds a read request carrying the default filler data.
func StatusRequest(module, function int) (Frame, error) {
	return BuildRequest(module, function, DefaultData, DefaultData)
}

// WriteRequest builds a write request for the given data bytes.
func WriteRequest(module, d1, d2 int) (Frame, error) {
	return BuildRequest(module, FuncWrite, d1, d2)
}

// MustBuildRequest is like BuildRequest but panics on invalid arguments.
func MustBuildRequest(module, function, d1, d2 int) Frame {
	f, err := BuildRequest(module, function, d1, d2)
	if err != nil {
		panic(fmt.Sprintf("domino: build request: %v", err))
	}
	return f
}

// Function returns the frame's function code.
func (f Frame) Function() byte {
	return f[2]
}

// Module returns the addressed module.
func (f Frame) Module() byte {
	return f[3]
}

// Data returns the two data bytes.
func (f Frame) Data() (byte, byte) {
	return f[4], f[5]
}

// Valid reports whether the trailing checksum matches the frame contents.
func (f Frame) Valid() bool {
	return f[0] == SyncByte && f[1] == HeaderByte && f[6] == Checksum(f[:PayloadSize])
}

// Bytes returns the frame as a slice.
func (f Frame) Bytes() []byte {
	return f[:]
}

// ParseFrame copies a raw 7-byte request back into a Frame and checks it.
func ParseFrame(data []byte) (Frame, error) {
	var f Frame
	if len(data) != FrameSize {
		return f, fmt.Errorf("%w: frame length %d, want %d", ErrMalformedResponse, len(data), FrameSize)
	}
	copy(f[:], data)
	if !f.Valid() {
		return f, fmt.Errorf("%w: checksum mismatch: expected 0x%02X, got 0x%02X",
			ErrMalformedResponse, Checksum(f[:PayloadSize]), f[6])
	}
	return f, nil
}
