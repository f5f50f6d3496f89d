// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mesh

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/bureau-foundation/cadconv/lib/glb"
	"github.com/bureau-foundation/cadconv/lib/glb/glbtest"
	"github.com/bureau-foundation/cadconv/lib/warning"
)

func TestScheduleForAttempt(t *testing.T) {
	base := Params{LinearDeflection: 1, AngularDeflection: 0.5, Relative: true}
	tests := []struct {
		attempt         int
		linear, angular float64
	}{
		{0, 1, 0.5},
		{1, 2, 0.7},
		{2, 4, 0.9},
		{5, 4, 0.9},
	}
	for _, test := range tests {
		params := ScheduleForAttempt(base, test.attempt)
		if params.LinearDeflection != test.linear || params.AngularDeflection != test.angular {
			t.Errorf("attempt %d: deflections = {%v, %v}, want {%v, %v}",
				test.attempt, params.LinearDeflection, params.AngularDeflection, test.linear, test.angular)
		}
		if params.Relative {
			t.Errorf("attempt %d: relative is true", test.attempt)
		}
	}
}

func TestScheduleForAttemptCapsAngular(t *testing.T) {
	base := Params{LinearDeflection: 0.1, AngularDeflection: 0.9}
	if got := ScheduleForAttempt(base, 1).AngularDeflection; got != 1.0 {
		t.Errorf("attempt 1 angular = %v, want cap 1.0", got)
	}
	if got := ScheduleForAttempt(base, 2).AngularDeflection; got != 1.2 {
		t.Errorf("attempt 2 angular = %v, want cap 1.2", got)
	}
}

func TestScheduleForAttemptCopiesParallel(t *testing.T) {
	parallel := true
	params := ScheduleForAttempt(Params{LinearDeflection: 1, AngularDeflection: 0.5, Parallel: &parallel}, 1)
	if params.Parallel == nil || !*params.Parallel {
		t.Fatalf("parallel = %v, want true", params.Parallel)
	}
	parallel = false
	if !*params.Parallel {
		t.Error("schedule shares the caller's parallel flag")
	}
	if ScheduleForAttempt(Params{}, 0).Parallel != nil {
		t.Error("absent parallel flag became set")
	}
}

func TestIsExploded(t *testing.T) {
	tests := []struct {
		name       string
		stats      glb.GeometryStats
		thresholds Thresholds
		want       bool
	}{
		{"within defaults", glb.GeometryStats{Triangles: 5_000_000, PrimitiveCount: 50_000}, Thresholds{}, false},
		{"triangles over", glb.GeometryStats{Triangles: 5_000_001}, Thresholds{}, true},
		{"primitives over", glb.GeometryStats{PrimitiveCount: 50_001}, Thresholds{}, true},
		{"custom triangles", glb.GeometryStats{Triangles: 11}, Thresholds{MaxTriangles: 10}, true},
		{"custom keeps default primitives", glb.GeometryStats{PrimitiveCount: 50_000}, Thresholds{MaxTriangles: 10}, false},
	}
	for _, test := range tests {
		if got := IsExploded(test.stats, test.thresholds); got != test.want {
			t.Errorf("%s: IsExploded = %v, want %v", test.name, got, test.want)
		}
	}
}

// scripted returns the outputs in order and records the parameters of
// every call.
type scripted struct {
	outputs [][]byte
	calls   []Params
}

func (s *scripted) Mesh(_ context.Context, params Params) ([]byte, error) {
	s.calls = append(s.calls, params)
	output := s.outputs[min(len(s.calls), len(s.outputs))-1]
	return output, nil
}

func TestRetryStopsAtFirstAcceptableResult(t *testing.T) {
	dense := glbtest.Dense(t, 5_000_001, 1)
	coarse := glbtest.Dense(t, 10, 1)
	mesher := &scripted{outputs: [][]byte{dense, coarse}}

	outcome, err := Retry(context.Background(), mesher, RetryOptions{
		Base: Params{LinearDeflection: 1, AngularDeflection: 0.5, Relative: true},
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if !bytes.Equal(outcome.GLB, coarse) {
		t.Error("outcome GLB is not the 10-triangle result")
	}
	if outcome.Stats.Triangles != 10 || outcome.Exploded {
		t.Errorf("outcome stats = %+v exploded = %v", outcome.Stats, outcome.Exploded)
	}
	if len(mesher.calls) != 2 {
		t.Fatalf("mesher called %d times, want 2", len(mesher.calls))
	}
	if mesher.calls[1].LinearDeflection != 2 || mesher.calls[1].Relative {
		t.Errorf("second attempt params = %+v", mesher.calls[1])
	}
	if len(outcome.Warnings) != 1 || outcome.Warnings[0].Code != warning.TriangleExplosionRetry {
		t.Fatalf("warnings = %+v, want one %s", outcome.Warnings, warning.TriangleExplosionRetry)
	}
	if got := outcome.Warnings[0].Detail["triangles"]; got != 5_000_001 {
		t.Errorf("retry warning triangles = %v", got)
	}
	if outcome.Params != mesher.calls[1] {
		t.Errorf("outcome params = %+v, want %+v", outcome.Params, mesher.calls[1])
	}
}

func TestRetryReturnsLastResultWhenUnresolved(t *testing.T) {
	first := glbtest.Dense(t, 20, 1)
	second := glbtest.Dense(t, 15, 1)
	third := glbtest.Dense(t, 12, 1)
	mesher := &scripted{outputs: [][]byte{first, second, third}}

	var observed []Attempt
	outcome, err := Retry(context.Background(), mesher, RetryOptions{
		Base:       Params{LinearDeflection: 0.1, AngularDeflection: 0.2},
		Thresholds: Thresholds{MaxTriangles: 10},
		OnAttempt:  func(attempt Attempt) { observed = append(observed, attempt) },
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if !outcome.Exploded || !bytes.Equal(outcome.GLB, third) {
		t.Errorf("outcome exploded = %v, want the exploded third result", outcome.Exploded)
	}
	var codes []string
	for _, w := range outcome.Warnings {
		codes = append(codes, w.Code)
	}
	want := []string{warning.TriangleExplosionRetry, warning.TriangleExplosionRetry, warning.TriangleExplosionUnresolved}
	if !slices.Equal(codes, want) {
		t.Errorf("warning codes = %v, want %v", codes, want)
	}
	if len(observed) != 3 || len(outcome.Attempts) != 3 {
		t.Errorf("observed %d attempts, outcome lists %d, want 3", len(observed), len(outcome.Attempts))
	}
	for i, attempt := range observed {
		if attempt.Index != i || !attempt.Exploded {
			t.Errorf("attempt %d = %+v", i, attempt)
		}
	}
}

func TestRetryAttemptCount(t *testing.T) {
	dense := glbtest.Dense(t, 3, 1)
	tests := []struct {
		attempts int
		want     int
	}{
		{0, DefaultAttempts},
		{-4, 1},
		{1, 1},
		{5, 5},
	}
	for _, test := range tests {
		mesher := &scripted{outputs: [][]byte{dense}}
		outcome, err := Retry(context.Background(), mesher, RetryOptions{
			Attempts:   test.attempts,
			Thresholds: Thresholds{MaxTriangles: 1},
		})
		if err != nil {
			t.Fatalf("attempts %d: Retry: %v", test.attempts, err)
		}
		if len(mesher.calls) != test.want {
			t.Errorf("attempts %d: mesher called %d times, want %d", test.attempts, len(mesher.calls), test.want)
		}
		if got := len(outcome.Warnings); got != test.want {
			t.Errorf("attempts %d: %d warnings, want %d", test.attempts, got, test.want)
		}
	}
}

func TestRetryPrimitiveExplosion(t *testing.T) {
	mesher := &scripted{outputs: [][]byte{glbtest.Dense(t, 1, 4), glbtest.Dense(t, 1, 2)}}
	outcome, err := Retry(context.Background(), mesher, RetryOptions{Thresholds: Thresholds{MaxPrimitives: 3}})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if outcome.Stats.PrimitiveCount != 2 || len(outcome.Warnings) != 1 {
		t.Errorf("outcome = %+v", outcome)
	}
}

func TestRetryMesherError(t *testing.T) {
	failure := errors.New("kernel write failed")
	mesher := MesherFunc(func(context.Context, Params) ([]byte, error) { return nil, failure })
	if _, err := Retry(context.Background(), mesher, RetryOptions{}); !errors.Is(err, failure) {
		t.Errorf("Retry error = %v, want the mesher's failure", err)
	}
}

func TestRetryCancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := 0
	dense := glbtest.Dense(t, 3, 1)
	mesher := MesherFunc(func(ctx context.Context, params Params) ([]byte, error) {
		calls++
		cancel()
		return dense, nil
	})

	_, err := Retry(ctx, mesher, RetryOptions{Thresholds: Thresholds{MaxTriangles: 1}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Retry error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("mesher called %d times after cancellation, want 1", calls)
	}
}
