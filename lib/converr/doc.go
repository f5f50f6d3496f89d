// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package converr defines the two failure classes every cadconv
// package reports through.
//
//   - [ConversionError]: a conversion step (read, triangulate, write,
//     bounds, mapping, GLB decoding) could not produce usable output.
//     Generally fatal to the current attempt.
//   - [ValidationError]: caller-supplied input violates a precondition
//     (a non-object extras payload, an empty input buffer, an unknown
//     format name).
//
// Both carry a stable Code string for programmatic branching and wrap
// a package-level sentinel, so callers branch on cause with
// [errors.Is] and on class with [errors.As]:
//
//	if errors.Is(err, glb.ErrTruncatedChunk) { ... }
//	var validation *converr.ValidationError
//	if errors.As(err, &validation) { ... }
//
// This package depends on no other cadconv packages.
package converr
