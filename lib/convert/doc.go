// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package convert turns a STEP or IGES document into GLB, glTF, or OBJ
// output plus a [ConversionMetadata] describing the result.
//
// A [Converter] drives an injected [kernel.Kernel] through one
// conversion:
//
//  1. validate the request (non-empty input, known formats, positive
//     deflections)
//  2. look the request up in the result cache, when one is configured
//  3. read the document
//  4. tessellate with the mesh retry schedule, measuring each GLB
//  5. compute geometry stats and bounds from the accepted GLB
//  6. index glTF node names, resolve the kernel's node map against
//     them, and build the assembly tree and BOM summary
//  7. assemble the metadata and, when requested, embed it in
//     asset.extras.cadconv
//  8. write the requested format (GLB output needs no extra write)
//  9. store the result in the cache
//
// Failures of a conversion step are *converr.ConversionError values;
// malformed requests are *converr.ValidationError values. Conditions
// that degrade the output without failing it (a relative deflection
// request that was overridden, an unresolved triangle explosion, a
// dangling assembly reference) are recorded as warnings in the result
// and in the metadata.
//
// The only cancellation point is between tessellation attempts. Kernel
// calls receive the context but are not expected to return early.
//
// A Converter may be shared between goroutines only if its kernel and
// cache are safe for concurrent use.
package convert
