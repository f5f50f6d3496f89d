// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package kernel defines the contract between the converter and the
// CAD kernel that parses STEP/IGES documents, tessellates their
// shapes, and serializes the result.
//
// The kernel is an opaque collaborator. Its implementations (a WASM
// module driven through a runtime, or a native binding) live outside
// this module and adapt their own calling conventions at that
// boundary; nothing here inspects kernel-internal state. A [Kernel]
// handle is passed explicitly to every operation that needs one, so
// the process never holds an implicit shared instance.
//
// Lifecycle of one conversion:
//
//	document, err := k.ReadDocument(ctx, input, kernel.FormatSTEP, kernel.ReadOptions{ReadNames: true})
//	defer document.Close()
//	err = k.Triangulate(ctx, document, params)
//	written, err := k.WriteBuffer(ctx, document, kernel.OutputGLB, kernel.WriteOptions{})
//	nodes, err := k.BuildRawNodeMap(ctx, document, overrides)
//
// [NewMesher] binds a document to the triangulate-then-write-GLB
// sequence that the mesh retry loop repeats.
package kernel
