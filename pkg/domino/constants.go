// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

// Package domino implements the request/response protocol spoken by Domino
// home-automation bus hubs over an RS-485 serial link.
//
// Every request is a fixed 7-byte frame. The hub answers each request with a
// single response frame and never speaks unsolicited, so the bus carries at
// most one exchange at a time. A Session owns the physical port and serializes
// exchanges from any number of goroutines.
package domino

import "time"

// Request framing bytes
const (
	SyncByte    = 0x55
	HeaderByte  = 0x82
	FrameSize   = 7
	PayloadSize = FrameSize - 1
)

// Function codes
const (
	FuncWrite       = 0x10
	FuncReadStatus  = 0x30
	FuncReadOutputs = 0x31
)

// DefaultData is the filler data byte sent with read requests.
const DefaultData = 0x33

// Response layout
const (
	MinResponseSize = 6

	respStatusOffset = 2
	respData1Offset  = 4
	respData2Offset  = 5
)

// No-value sentinels found in data2 when the status byte is zero
const (
	sentinelNoValue = 0xF0
	sentinelUnset   = 0xFF
)

// Transport timing
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultMaxPolls     = 20
	DefaultSettleTime   = 50 * time.Millisecond

	// IdleReadTimeout is the longest a single blocking read may wait.
	IdleReadTimeout = 5 * time.Second
)

// Serial defaults
const (
	DefaultPort = "/dev/ttyUSB0"
	DefaultBaud = 19200
)

// Module address range
const (
	MinModule = 1
	MaxModule = 255
)
