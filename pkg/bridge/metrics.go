// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors

package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dominohub/dominobus/pkg/domino"
)

const metricsNamespace = "domino"

// Metrics exposes bus and bridge counters in Prometheus format.
type Metrics struct {
	registry *prometheus.Registry

	exchanges        *prometheus.CounterVec
	exchangeDuration *prometheus.HistogramVec
	polls            *prometheus.CounterVec
	pollFailures     *prometheus.CounterVec
	pollDuration     prometheus.Histogram
	available        *prometheus.GaugeVec
}

// NewMetrics creates the collectors on a private registry, together with
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "exchanges_total",
			Help:      "Bus exchanges by function and result.",
		}, []string{"function", "result"}),
		exchangeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "exchange_duration_seconds",
			Help:      "Time from request write to complete response.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"function"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "entity_polls_total",
			Help:      "Entity updates attempted.",
		}, []string{"entity"}),
		pollFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "entity_poll_failures_total",
			Help:      "Entity updates that failed.",
		}, []string{"entity"}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "entity_poll_duration_seconds",
			Help:      "Time spent updating one entity.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		available: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "entity_available",
			Help:      "1 when the last update of the entity succeeded.",
		}, []string{"entity"}),
	}

	m.registry.MustRegister(
		m.exchanges,
		m.exchangeDuration,
		m.polls,
		m.pollFailures,
		m.pollDuration,
		m.available,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe records one exchange. Register it as a session observer.
func (m *Metrics) Observe(e domino.Exchange) {
	function := domino.FormatFunction(e.Request.Function())
	m.exchanges.WithLabelValues(function, e.Result()).Inc()
	m.exchangeDuration.WithLabelValues(function).Observe(e.Duration.Seconds())
}

// WatchSession exports the session's reference count.
func (m *Metrics) WatchSession(s *domino.Session) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "session_refs",
		Help:      "Current session reference count; the port is open while positive.",
	}, func() float64 {
		return float64(s.Refs())
	}))
}

// ObservePoll records one entity update.
func (m *Metrics) ObservePoll(entity string, d time.Duration, err error) {
	m.polls.WithLabelValues(entity).Inc()
	m.pollDuration.Observe(d.Seconds())
	var rangeErr *RangeError
	if err != nil && !errors.As(err, &rangeErr) {
		m.pollFailures.WithLabelValues(entity).Inc()
	}
}

// SetAvailable records the availability of an entity.
func (m *Metrics) SetAvailable(entity string, available bool) {
	v := 0.0
	if available {
		v = 1
	}
	m.available.WithLabelValues(entity).Set(v)
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
