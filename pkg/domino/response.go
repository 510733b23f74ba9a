// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package domino

import "fmt"

// Response is a validated hub response.
type Response struct {
	raw   []byte
	empty bool
}

// ValidateResponse classifies raw bytes read from the hub. A sentinel
// response yields a Response whose Empty method reports true; it is not an
// error, but it carries nothing worth decoding.
func ValidateResponse(data []byte) (Response, error) {
	if len(data) < MinResponseSize {
		return Response{}, fmt.Errorf("%w: %d bytes, need at least %d", ErrMalformedResponse, len(data), MinResponseSize)
	}

	raw := make([]byte, len(data))
	copy(raw, data)

	d2 := raw[respData2Offset]
	empty := raw[respStatusOffset] == 0x00 && (d2 == sentinelNoValue || d2 == sentinelUnset)
	return Response{raw: raw, empty: empty}, nil
}

// Empty reports whether the hub answered with the no-value sentinel.
func (r Response) Empty() bool {
	return r.empty
}

// Status returns the status/error byte.
func (r Response) Status() byte {
	return r.raw[respStatusOffset]
}

// Data returns the two payload bytes.
func (r Response) Data() (byte, byte) {
	return r.raw[respData1Offset], r.raw[respData2Offset]
}

// Word returns the payload as a big-endian 16-bit value.
func (r Response) Word() uint16 {
	return DecodeWord(r.Data())
}

// Bytes returns the raw response bytes.
func (r Response) Bytes() []byte {
	return r.raw
}

// DecodeWord combines data1 (high) and data2 (low).
func DecodeWord(d1, d2 byte) uint16 {
	return uint16(d1)<<8 | uint16(d2)
}

// EncodeWord splits v into data1 (high) and data2 (low).
func EncodeWord(v uint16) (byte, byte) {
	return byte(v >> 8), byte(v)
}
