// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package devices

import (
	"fmt"

	"github.com/dominohub/dominobus/pkg/domino"
)

// MaxRelays is the number of outputs one relay module drives. The write
// byte carries a 4-bit enable mask above a 4-bit value.
const MaxRelays = 4

// relayBit returns the bit for relay num (1-based).
func relayBit(num int) (byte, error) {
	if num < 1 || num > MaxRelays {
		return 0, fmt.Errorf("%w: relay %d out of range 1-%d", domino.ErrInvalidArgument, num, MaxRelays)
	}
	return 1 << (num - 1), nil
}

// relayWriteData encodes a single relay change: the high nibble enables the
// write for that bit only, the low nibble carries the new value.
func relayWriteData(num int, on bool) (byte, error) {
	bit, err := relayBit(num)
	if err != nil {
		return 0, err
	}
	if on {
		return bit<<4 | bit, nil
	}
	return bit << 4, nil
}

// RelayBank is a relay module whose output byte is shared by several
// lights. Reads are cached; every write invalidates the cache.
type RelayBank struct {
	module  int
	session *domino.Session
	dec     decoder[byte]
}

// NewRelayBank creates a relay bank facade for module.
func NewRelayBank(s *domino.Session, module int, opts ...Option) (*RelayBank, error) {
	frames, err := statusRequests(module, 1, domino.FuncReadOutputs)
	if err != nil {
		return nil, err
	}
	req := frames[0]

	b := &RelayBank{module: module, session: s}
	b.dec = newDecoder(s, true, defaultOptions(opts), func(x Exchanger) (byte, error) {
		_, d2, err := exchangeData(x, req)
		return d2, err
	})
	return b, nil
}

// Module returns the module address.
func (b *RelayBank) Module() int {
	return b.module
}

// Status returns the output bitmask, bit n-1 for relay n.
func (b *RelayBank) Status() (byte, error) {
	return b.dec.status()
}

// SetRelay switches relay num (1-based) without touching the others.
func (b *RelayBank) SetRelay(num int, on bool) error {
	data, err := relayWriteData(num, on)
	if err != nil {
		return err
	}
	req, err := domino.WriteRequest(b.module, 0, int(data))
	if err != nil {
		return err
	}

	defer b.dec.cache.Invalidate()
	return withSession(b.session, func() error {
		_, err := b.session.Exchange(req)
		return err
	})
}

// Light is one relay of a shared bank.
type Light struct {
	bank *RelayBank
	num  int
	bit  byte
}

// NewLight binds relay num (1-based) of bank.
func NewLight(bank *RelayBank, num int) (*Light, error) {
	bit, err := relayBit(num)
	if err != nil {
		return nil, err
	}
	return &Light{bank: bank, num: num, bit: bit}, nil
}

// Module returns the bank's module address.
func (l *Light) Module() int {
	return l.bank.module
}

// Num returns the relay number within the bank.
func (l *Light) Num() int {
	return l.num
}

// Status reports whether the light is on.
func (l *Light) Status() (bool, error) {
	mask, err := l.bank.Status()
	if err != nil {
		return false, err
	}
	return mask&l.bit != 0, nil
}

// SetLevel turns the light off for 0 and on for any other value.
func (l *Light) SetLevel(pct int) error {
	return l.bank.SetRelay(l.num, pct != 0)
}

// DirectLight is a relay read and written straight on its module with no
// shared bank and no cache.
type DirectLight struct {
	module  int
	num     int
	bit     byte
	session *domino.Session
	dec     decoder[bool]
}

// NewDirectLight creates an uncached light for relay num of module.
func NewDirectLight(s *domino.Session, module, num int) (*DirectLight, error) {
	bit, err := relayBit(num)
	if err != nil {
		return nil, err
	}
	frames, err := statusRequests(module, 1, domino.FuncReadOutputs)
	if err != nil {
		return nil, err
	}
	req := frames[0]

	l := &DirectLight{module: module, num: num, bit: bit, session: s}
	l.dec = newDecoder(s, false, defaultOptions(nil), func(x Exchanger) (bool, error) {
		_, d2, err := exchangeData(x, req)
		return d2&bit != 0, err
	})
	return l, nil
}

// Module returns the module address.
func (l *DirectLight) Module() int {
	return l.module
}

// Num returns the relay number.
func (l *DirectLight) Num() int {
	return l.num
}

// Status reports whether the light is on.
func (l *DirectLight) Status() (bool, error) {
	return l.dec.status()
}

// SetLevel turns the light off for 0 and on for any other value.
func (l *DirectLight) SetLevel(pct int) error {
	data, err := relayWriteData(l.num, pct != 0)
	if err != nil {
		return err
	}
	req, err := domino.WriteRequest(l.module, 0, int(data))
	if err != nil {
		return err
	}
	return withSession(l.session, func() error {
		_, err := l.session.Exchange(req)
		return err
	})
}
