// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package assembly builds the assembly graph and bill of materials for
// a converted CAD document.
//
// The kernel describes the assembly as a flat [NodeMap]: an arena of
// [Node] values keyed by id, with children referenced by id rather than
// by pointer. A node is one occurrence, not one product; every
// occurrence of the same product shares a ProductID. From the node map
// this package derives:
//
//   - [BuildTree]: the ordered forest of {id, name, children} records
//     consumers render as an outline. Dangling child ids are dropped.
//   - [BuildMappedNodeMap]: the node map with each occurrence resolved
//     to its glTF node (and mesh) through the label index. Every node
//     must resolve, and no two nodes may resolve to the same glTF node.
//   - [BuildBomSummary]: display lines for the bill of materials,
//     named from the mapped node map.
//
// All results are built once and never modified afterward.
package assembly
