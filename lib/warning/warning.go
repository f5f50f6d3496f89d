// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package warning records non-fatal conditions of a single conversion
// attempt. Warnings are values: once added to a [Log] they are never
// modified, and the log only grows.
package warning

import (
	"fmt"
	"maps"
)

// Stable warning codes. Consumers branch on these; the message text is
// for humans and may change.
const (
	// TriangleExplosionRetry: a triangulation attempt exceeded the
	// triangle or primitive limits and a coarser attempt follows.
	TriangleExplosionRetry = "mesh/triangle-explosion-retry"

	// TriangleExplosionUnresolved: the final attempt still exceeded
	// the limits; its output was kept.
	TriangleExplosionUnresolved = "mesh/triangle-explosion-unresolved"

	// RelativeDeflectionIgnored: the request asked for relative
	// deflection, which the retry schedule always disables.
	RelativeDeflectionIgnored = "mesh/relative-deflection-ignored"

	// BoundsUnavailable: no bounding box could be derived from the
	// output and the caller allowed conversion to continue.
	BoundsUnavailable = "glb/bounds-unavailable"

	// NonconformingContainer: the kernel's GLB violates the chunk
	// layout (JSON first, BIN second).
	NonconformingContainer = "glb/nonconforming-container"

	// DanglingChild: the kernel's node map references a child id that
	// is not in the map; the reference was dropped.
	DanglingChild = "assembly/dangling-child"

	// BomUnavailable: the kernel could not export a bill of materials.
	BomUnavailable = "assembly/bom-unavailable"

	// CacheFailure: the result cache could not be read or written; the
	// conversion proceeded without it.
	CacheFailure = "cache/failure"
)

// Warning is one non-fatal condition.
type Warning struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// New returns a Warning with a formatted message.
func New(code string, detail map[string]any, format string, args ...any) Warning {
	return Warning{Code: code, Message: fmt.Sprintf(format, args...), Detail: detail}
}

// Log is an append-only list of warnings. The zero value is ready to
// use. A Log is not safe for concurrent use.
type Log struct {
	entries []Warning
}

// Add appends a warning. The detail map is copied so later changes by
// the caller do not reach the log.
func (l *Log) Add(w Warning) {
	if w.Detail != nil {
		w.Detail = maps.Clone(w.Detail)
	}
	l.entries = append(l.entries, w)
}

// Addf appends a warning built from its parts.
func (l *Log) Addf(code string, detail map[string]any, format string, args ...any) {
	l.Add(New(code, detail, format, args...))
}

// Len returns the number of warnings recorded.
func (l *Log) Len() int {
	return len(l.entries)
}

// List returns a copy of the recorded warnings in insertion order. An
// empty log returns an empty, non-nil slice so it encodes as [].
func (l *Log) List() []Warning {
	list := make([]Warning, len(l.entries))
	copy(list, l.entries)
	return list
}
