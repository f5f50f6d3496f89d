// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package glb implements the binary glTF (GLB) container: a byte-exact
// codec, an asset.extras metadata patcher, and geometry statistics
// derived directly from GLB bytes.
//
// The package is organized in layers:
//
//   - Codec: [Parse] splits a GLB buffer into a [Container] (version
//     plus ordered chunk list); [Build] reassembles one. The total
//     length in the header is always recomputed on write and must
//     match the buffer exactly on read. build(parse(x)) == x for any
//     well-formed x. Chunk payloads are not re-padded by the codec;
//     callers pad with [PadChunk] (0x20 for JSON, 0x00 for BIN).
//
//   - Document: the JSON chunk decoded as a [Document] with numbers
//     kept as [encoding/json.Number], so re-serialization never
//     perturbs numeric literals that the patcher does not touch.
//
//   - Patcher: [InjectExtras] shallow-merges a JSON object into
//     asset.extras and rebuilds the GLB with every other chunk passed
//     through byte-for-byte.
//
//   - Statistics: [Summarize] counts triangles, primitives, meshes,
//     and nodes and never fails; [ComputeBounds] derives the
//     axis-aligned bounding box from accessor min/max, falling back to
//     scanning float32 POSITION data in the BIN chunk.
//
// Every transforming operation returns a new buffer. Chunk payloads
// returned by [Parse] alias the input buffer and must be treated as
// read-only.
//
// Malformed input is reported as a [converr.ConversionError] wrapping
// one of the package sentinels (ErrInvalidMagic, ErrTruncatedChunk,
// ...); caller-supplied extras that are not a JSON object are a
// [converr.ValidationError].
package glb
