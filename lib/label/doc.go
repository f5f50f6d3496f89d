// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package label reconciles CAD assembly identities with glTF nodes.
//
// CAD exporters embed the OCAF label entry of each occurrence (a
// colon-delimited integer path such as "0:1:1:3") in the glTF node
// name, typically inside a bracketed suffix: "Bolt M6 [0:1:1:3]
// [NAUO12]". [Extract] recovers the entry, [CleanName] strips the
// bracketed noise for display, and [BuildIndex] maps each entry to the
// glTF node (and mesh) that carries it.
//
// When two glTF nodes carry the same entry, the first node in array
// order wins and later ones are ignored. This matches how the kernel
// has always been consumed, but it depends on the writer's node order
// rather than on anything in the CAD document, so treat it as a
// compatibility behavior rather than a guarantee.
//
// Nothing in this package fails: absence of a match is reported with a
// false ok value or an empty index.
package label
