// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mesh

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/cadconv/lib/glb"
	"github.com/bureau-foundation/cadconv/lib/warning"
)

// DefaultAttempts is the schedule length when RetryOptions.Attempts is
// zero.
const DefaultAttempts = 3

// Mesher tessellates a document with the given parameters and returns
// the resulting GLB. Implementations call the kernel's triangulate and
// write operations.
type Mesher interface {
	Mesh(ctx context.Context, params Params) ([]byte, error)
}

// MesherFunc adapts a function to the Mesher interface.
type MesherFunc func(ctx context.Context, params Params) ([]byte, error)

// Mesh calls f.
func (f MesherFunc) Mesh(ctx context.Context, params Params) ([]byte, error) {
	return f(ctx, params)
}

// RetryOptions configures Retry.
type RetryOptions struct {
	// Base holds the requested tessellation parameters.
	Base Params

	// Attempts is the maximum number of tessellations. Zero means
	// DefaultAttempts; negative values are treated as 1.
	Attempts int

	Thresholds Thresholds

	// OnAttempt, when set, is called after each measured attempt.
	OnAttempt func(Attempt)

	// Logger receives one record per attempt. Nil discards.
	Logger *slog.Logger
}

// Attempt describes one measured tessellation.
type Attempt struct {
	Index    int               `json:"index"`
	Params   Params            `json:"params"`
	Stats    glb.GeometryStats `json:"stats"`
	Exploded bool              `json:"exploded"`
}

// Outcome is the result Retry settled on.
type Outcome struct {
	// GLB is the output of the accepted attempt, or of the last
	// attempt when every attempt exploded.
	GLB []byte

	Stats  glb.GeometryStats
	Params Params

	// Exploded is true when the schedule was exhausted without an
	// acceptable result.
	Exploded bool

	// Attempts lists every measured attempt in order.
	Attempts []Attempt

	// Warnings holds one TriangleExplosionRetry per discarded attempt
	// and, when Exploded, a final TriangleExplosionUnresolved.
	Warnings []warning.Warning
}

// Retry tessellates with ScheduleForAttempt(options.Base, i) for
// successive attempts until the output is within options.Thresholds or
// the schedule is exhausted. Only mesher failures and cancellation are
// errors; ctx is checked before each attempt after the first.
func Retry(ctx context.Context, mesher Mesher, options RetryOptions) (*Outcome, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	attempts := options.Attempts
	switch {
	case attempts == 0:
		attempts = DefaultAttempts
	case attempts < 0:
		attempts = 1
	}
	thresholds := options.Thresholds.resolved()

	outcome := &Outcome{}
	for index := range attempts {
		if index > 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("mesh: cancelled before attempt %d: %w", index, err)
			}
		}

		params := ScheduleForAttempt(options.Base, index)
		output, err := mesher.Mesh(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("mesh: attempt %d: %w", index, err)
		}
		stats := glb.Summarize(output)
		exploded := IsExploded(stats, thresholds)

		attempt := Attempt{Index: index, Params: params, Stats: stats, Exploded: exploded}
		outcome.Attempts = append(outcome.Attempts, attempt)
		outcome.GLB = output
		outcome.Stats = stats
		outcome.Params = params
		outcome.Exploded = exploded
		if options.OnAttempt != nil {
			options.OnAttempt(attempt)
		}

		logger.Info("tessellation attempt measured",
			"attempt", index,
			"linear_deflection", params.LinearDeflection,
			"angular_deflection", params.AngularDeflection,
			"triangles", stats.Triangles,
			"primitives", stats.PrimitiveCount,
			"exploded", exploded,
		)

		if !exploded {
			return outcome, nil
		}
		if index < attempts-1 {
			outcome.Warnings = append(outcome.Warnings, warning.New(warning.TriangleExplosionRetry,
				attemptDetail(attempt, thresholds),
				"attempt %d produced %d triangles in %d primitives; retrying with coarser tessellation",
				index, stats.Triangles, stats.PrimitiveCount))
		}
	}

	last := outcome.Attempts[len(outcome.Attempts)-1]
	logger.Warn("tessellation still exceeds limits after final attempt",
		"attempts", attempts,
		"triangles", last.Stats.Triangles,
		"primitives", last.Stats.PrimitiveCount,
	)
	outcome.Warnings = append(outcome.Warnings, warning.New(warning.TriangleExplosionUnresolved,
		attemptDetail(last, thresholds),
		"output still has %d triangles in %d primitives after %d attempts",
		last.Stats.Triangles, last.Stats.PrimitiveCount, attempts))
	return outcome, nil
}

func attemptDetail(attempt Attempt, thresholds Thresholds) map[string]any {
	return map[string]any{
		"attempt":           attempt.Index,
		"triangles":         attempt.Stats.Triangles,
		"primitives":        attempt.Stats.PrimitiveCount,
		"maxTriangles":      thresholds.MaxTriangles,
		"maxPrimitives":     thresholds.MaxPrimitives,
		"linearDeflection":  attempt.Params.LinearDeflection,
		"angularDeflection": attempt.Params.AngularDeflection,
	}
}
