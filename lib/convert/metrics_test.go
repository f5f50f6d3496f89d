// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package convert

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bureau-foundation/cadconv/lib/glb/glbtest"
	"github.com/bureau-foundation/cadconv/lib/kernel/kerneltest"
)

func TestMetricsRecordConversions(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	fake := &kerneltest.Fake{Outputs: [][]byte{glbtest.Dense(t, 5_000_001, 1), glbtest.Dense(t, 10, 1)}}
	converter, err := New(Config{Kernel: fake, Metrics: metrics})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	request := Request{Input: []byte("ISO-10303-21;"), Filename: "part.stp", Options: DefaultOptions()}
	if _, err := converter.Convert(context.Background(), request); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	request.Input = nil
	if _, err := converter.Convert(context.Background(), request); err == nil {
		t.Fatal("Convert accepted empty input")
	}

	checks := []struct {
		name      string
		collector prometheus.Collector
		want      float64
	}{
		{"ok", metrics.conversions.WithLabelValues("glb", statusOK), 1},
		{"validation", metrics.conversions.WithLabelValues("glb", statusValidationError), 1},
		{"exploded attempts", metrics.attempts.WithLabelValues("exploded"), 1},
		{"accepted attempts", metrics.attempts.WithLabelValues("accepted"), 1},
	}
	for _, check := range checks {
		if got := testutil.ToFloat64(check.collector); got != check.want {
			t.Errorf("%s = %v, want %v", check.name, got, check.want)
		}
	}
	if count := testutil.CollectAndCount(metrics.triangles); count != 1 {
		t.Errorf("triangle histogram series = %d, want 1", count)
	}
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var metrics *Metrics
	metrics.recordConversion("glb", statusOK, 0)
	metrics.recordAttempt(true)
	metrics.recordTriangles(10)
	metrics.recordCacheLookup("miss")
}
