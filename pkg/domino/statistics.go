// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package domino

import (
	"fmt"
	"sync"
	"time"
)

// Statistics tracks exchange outcomes and rates. It is safe for concurrent
// use; Observe can be registered directly as a session observer.
type Statistics struct {
	mu sync.Mutex

	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalExchanges uint64
	Succeeded      uint64
	NoData         uint64
	Timeouts       uint64
	Malformed      uint64
	IOErrors       uint64

	// Latency of successful exchanges
	TotalLatency time.Duration
	MaxLatency   time.Duration

	// Rates (calculated)
	ExchangeRate float64 // exchanges/sec
	ErrorRate    float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Observe updates statistics from one exchange
func (s *Statistics) Observe(e Exchange) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.TotalExchanges++
	s.LastUpdateTime = e.Time.Add(e.Duration)

	switch e.Result() {
	case ResultOK, ResultNoData:
		s.Succeeded++
		s.TotalLatency += e.Duration
		if e.Duration > s.MaxLatency {
			s.MaxLatency = e.Duration
		}
		if e.Result() == ResultNoData {
			s.NoData++
		}
	case ResultTimeout:
		s.Timeouts++
	case ResultMalformed:
		s.Malformed++
	default:
		s.IOErrors++
	}
}

// Snapshot returns a copy of the counters with rates calculated
func (s *Statistics) Snapshot() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calculateRates()
	return Statistics{
		StartTime:      s.StartTime,
		LastUpdateTime: s.LastUpdateTime,
		TotalExchanges: s.TotalExchanges,
		Succeeded:      s.Succeeded,
		NoData:         s.NoData,
		Timeouts:       s.Timeouts,
		Malformed:      s.Malformed,
		IOErrors:       s.IOErrors,
		TotalLatency:   s.TotalLatency,
		MaxLatency:     s.MaxLatency,
		ExchangeRate:   s.ExchangeRate,
		ErrorRate:      s.ErrorRate,
	}
}

// Errors returns the number of failed exchanges
func (s *Statistics) Errors() uint64 {
	return s.Timeouts + s.Malformed + s.IOErrors
}

// AverageLatency returns the mean duration of successful exchanges
func (s *Statistics) AverageLatency() time.Duration {
	if s.Succeeded == 0 {
		return 0
	}
	return s.TotalLatency / time.Duration(s.Succeeded)
}

func (s *Statistics) calculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.ExchangeRate = float64(s.TotalExchanges) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	snap := s.Snapshot()

	var okPercent, noDataPercent, timeoutPercent, malformedPercent, ioPercent float64
	if snap.TotalExchanges > 0 {
		total := float64(snap.TotalExchanges)
		okPercent = float64(snap.Succeeded) * 100.0 / total
		noDataPercent = float64(snap.NoData) * 100.0 / total
		timeoutPercent = float64(snap.Timeouts) * 100.0 / total
		malformedPercent = float64(snap.Malformed) * 100.0 / total
		ioPercent = float64(snap.IOErrors) * 100.0 / total
	}

	elapsed := time.Since(snap.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Exchanges:       %8d\n", snap.TotalExchanges)
	result += fmt.Sprintf("Succeeded:       %8d (%.1f%%)\n", snap.Succeeded, okPercent)
	if snap.NoData > 0 {
		result += fmt.Sprintf("  No Data:          %5d (%.1f%%)\n", snap.NoData, noDataPercent)
	}
	if snap.Timeouts > 0 {
		result += fmt.Sprintf("Timeouts:        %8d (%.1f%%)\n", snap.Timeouts, timeoutPercent)
	}
	if snap.Malformed > 0 {
		result += fmt.Sprintf("Malformed:       %8d (%.1f%%)\n", snap.Malformed, malformedPercent)
	}
	if snap.IOErrors > 0 {
		result += fmt.Sprintf("I/O Errors:      %8d (%.1f%%)\n", snap.IOErrors, ioPercent)
	}
	result += fmt.Sprintf("Avg Latency:     %8s\n", snap.AverageLatency().Round(time.Millisecond))
	result += fmt.Sprintf("Max Latency:     %8s\n", snap.MaxLatency.Round(time.Millisecond))
	result += fmt.Sprintf("Exchange Rate:   %8.1f xchg/sec\n", snap.ExchangeRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", snap.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.StartTime = now
	s.LastUpdateTime = now
	s.TotalExchanges = 0
	s.Succeeded = 0
	s.NoData = 0
	s.Timeouts = 0
	s.Malformed = 0
	s.IOErrors = 0
	s.TotalLatency = 0
	s.MaxLatency = 0
	s.ExchangeRate = 0
	s.ErrorRate = 0
}
