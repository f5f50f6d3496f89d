// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package mesh decides how finely the CAD kernel tessellates a
// document, and backs off when the result is too dense.
//
// Some CAD models tessellate pathologically at the requested tolerance:
// a small fillet or a spline face can produce millions of triangles or
// tens of thousands of primitives. Such output is technically valid but
// useless in a browser. The package therefore runs tessellation as a
// short schedule of attempts:
//
//   - attempt 0 uses the requested deflections unchanged
//   - attempt 1 doubles the linear deflection and scales the angular
//     deflection by 1.4, capped at 1.0 radian
//   - every later attempt uses four times the linear deflection and
//     1.8 times the angular deflection, capped at 1.2 radians
//
// Coarsening is always computed from the requested values, never
// compounded across attempts. Relative deflection is disabled on every
// attempt, because a tolerance proportional to each face's size is what
// produces the explosion in the first place. The caller records a
// warning when it overrides a relative request.
//
// [Retry] runs the schedule against a [Mesher], measures each GLB with
// [glb.Summarize], and stops at the first result within [Thresholds].
// Exhausting the schedule is not an error: the last result is returned
// with a [warning.TriangleExplosionUnresolved] warning, and every
// discarded attempt leaves a [warning.TriangleExplosionRetry] warning.
//
// [ScheduleForAttempt] and [IsExploded] are pure. Retry logs each
// attempt through the configured slog.Logger.
package mesh
