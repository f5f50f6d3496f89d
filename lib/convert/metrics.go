// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package convert

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Conversion status label values.
const (
	statusOK              = "ok"
	statusCached          = "cached"
	statusValidationError = "validation_error"
	statusConversionError = "conversion_error"
	statusError           = "error"
)

// Metrics holds the converter's Prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	conversions  *prometheus.CounterVec
	attempts     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	triangles    prometheus.Histogram
	cacheLookups *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on registerer.
// Registering twice on one registry panics, as with promauto.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		conversions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadconv_conversions_total",
				Help: "Conversions by output format and final status",
			},
			[]string{"format", "status"},
		),
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadconv_triangulation_attempts_total",
				Help: "Tessellation attempts by outcome (accepted or exploded)",
			},
			[]string{"outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cadconv_conversion_duration_seconds",
				Help:    "Wall time of conversions, including cache hits",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"format"},
		),
		triangles: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cadconv_output_triangles",
				Help:    "Triangle count of accepted tessellations",
				Buckets: prometheus.ExponentialBuckets(1000, 10, 5),
			},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cadconv_cache_lookups_total",
				Help: "Result cache lookups by result (hit, miss, error)",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) recordConversion(format, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.conversions.WithLabelValues(format, status).Inc()
	m.duration.WithLabelValues(format).Observe(duration.Seconds())
}

func (m *Metrics) recordAttempt(exploded bool) {
	if m == nil {
		return
	}
	outcome := "accepted"
	if exploded {
		outcome = "exploded"
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) recordTriangles(triangles int) {
	if m == nil {
		return
	}
	m.triangles.Observe(float64(triangles))
}

func (m *Metrics) recordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
