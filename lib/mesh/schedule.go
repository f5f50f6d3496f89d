// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mesh

import (
	"math"

	"github.com/bureau-foundation/cadconv/lib/glb"
)

// Params are the tessellation tolerances passed to the kernel.
type Params struct {
	// LinearDeflection is the maximum distance between the mesh and
	// the exact surface, in document units (or a fraction of each
	// edge length when Relative is set).
	LinearDeflection float64 `json:"linearDeflection"`

	// AngularDeflection is the maximum angle in radians between
	// adjacent facet normals along a curved surface.
	AngularDeflection float64 `json:"angularDeflection"`

	Relative bool `json:"relative"`

	// Parallel is passed through to the kernel unchanged. Nil leaves
	// the kernel's default.
	Parallel *bool `json:"parallel,omitempty"`
}

// Schedule multipliers and caps.
const (
	secondLinearFactor  = 2.0
	secondAngularFactor = 1.4
	secondAngularCap    = 1.0

	laterLinearFactor  = 4.0
	laterAngularFactor = 1.8
	laterAngularCap    = 1.2
)

// ScheduleForAttempt returns the tessellation parameters for the given
// zero-based attempt. Relative is always false.
func ScheduleForAttempt(base Params, attempt int) Params {
	params := Params{
		LinearDeflection:  base.LinearDeflection,
		AngularDeflection: base.AngularDeflection,
	}
	if base.Parallel != nil {
		parallel := *base.Parallel
		params.Parallel = &parallel
	}

	switch {
	case attempt <= 0:
	case attempt == 1:
		params.LinearDeflection = base.LinearDeflection * secondLinearFactor
		params.AngularDeflection = math.Min(base.AngularDeflection*secondAngularFactor, secondAngularCap)
	default:
		params.LinearDeflection = base.LinearDeflection * laterLinearFactor
		params.AngularDeflection = math.Min(base.AngularDeflection*laterAngularFactor, laterAngularCap)
	}
	return params
}

// Default explosion limits.
const (
	DefaultMaxTriangles  = 5_000_000
	DefaultMaxPrimitives = 50_000
)

// Thresholds bound an acceptable tessellation. A zero field uses the
// corresponding default.
type Thresholds struct {
	MaxTriangles  int `json:"maxTriangles,omitempty"`
	MaxPrimitives int `json:"maxPrimitives,omitempty"`
}

// DefaultThresholds returns the default limits.
func DefaultThresholds() Thresholds {
	return Thresholds{MaxTriangles: DefaultMaxTriangles, MaxPrimitives: DefaultMaxPrimitives}
}

func (t Thresholds) resolved() Thresholds {
	if t.MaxTriangles <= 0 {
		t.MaxTriangles = DefaultMaxTriangles
	}
	if t.MaxPrimitives <= 0 {
		t.MaxPrimitives = DefaultMaxPrimitives
	}
	return t
}

// IsExploded reports whether stats exceed either limit. Reaching a
// limit exactly is not an explosion.
func IsExploded(stats glb.GeometryStats, thresholds Thresholds) bool {
	limits := thresholds.resolved()
	return stats.Triangles > limits.MaxTriangles || stats.PrimitiveCount > limits.MaxPrimitives
}
