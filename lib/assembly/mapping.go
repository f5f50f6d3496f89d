// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assembly

import (
	"errors"

	"github.com/bureau-foundation/cadconv/lib/converr"
	"github.com/bureau-foundation/cadconv/lib/label"
)

// Errors returned by BuildMappedNodeMap.
var (
	ErrMissingGltfMapping   = errors.New("assembly: node has no glTF node")
	ErrDuplicateGltfMapping = errors.New("assembly: two nodes resolve to the same glTF node")
)

// MappedNode is a Node resolved against the produced GLB.
type MappedNode struct {
	Node

	// GltfNodeIndex is the node's position in the glTF nodes array.
	GltfNodeIndex int `json:"gltfNodeIndex"`

	// GltfMeshIndex is the glTF node's mesh, nil when it has none.
	GltfMeshIndex *int `json:"gltfMeshIndex,omitempty"`
}

// MappedNodeMap is a NodeMap whose nodes carry glTF indices. The
// mapping from node to glTF node index is injective.
type MappedNodeMap struct {
	Roots []string              `json:"roots"`
	Nodes map[string]MappedNode `json:"nodes"`
}

// BuildMappedNodeMap resolves every node of raw against the label
// index of glb. See BuildMappedNodeMapFromIndex.
func BuildMappedNodeMap(raw NodeMap, glb []byte) (MappedNodeMap, error) {
	return BuildMappedNodeMapFromIndex(raw, label.BuildIndex(glb))
}

// BuildMappedNodeMapFromIndex resolves every node of raw through index.
// A node whose label entry is not in the index fails with
// ErrMissingGltfMapping; two nodes resolving to one glTF node fail with
// ErrDuplicateGltfMapping. Nodes are checked in NodeMap.OrderedIDs order,
// so the reported node is deterministic.
//
// Each mapped node's Name is the cleaned glTF node name when that is
// non-empty, and the raw node's Name otherwise.
func BuildMappedNodeMapFromIndex(raw NodeMap, index label.Index) (MappedNodeMap, error) {
	mapped := MappedNodeMap{
		Roots: append([]string(nil), raw.Roots...),
		Nodes: make(map[string]MappedNode, len(raw.Nodes)),
	}
	claimed := make(map[int]string, len(raw.Nodes))

	for _, id := range raw.OrderedIDs() {
		node := raw.Nodes[id]
		if node.ID == "" {
			node.ID = id
		}
		entry, ok := index.Lookup(node.LabelEntry)
		if !ok {
			return MappedNodeMap{}, converr.Conversion("assembly/missing-gltf-mapping", ErrMissingGltfMapping,
				"node %q (label %q) has no glTF node", node.ID, node.LabelEntry)
		}
		if previous, taken := claimed[entry.NodeIndex]; taken {
			return MappedNodeMap{}, converr.Conversion("assembly/duplicate-gltf-mapping", ErrDuplicateGltfMapping,
				"glTF node %d claimed by both %q and %q", entry.NodeIndex, previous, node.ID)
		}
		claimed[entry.NodeIndex] = node.ID

		if pretty := entry.PrettyName(); pretty != "" {
			node.Name = pretty
		}
		result := MappedNode{Node: node, GltfNodeIndex: entry.NodeIndex}
		if entry.MeshIndex != nil {
			mesh := *entry.MeshIndex
			result.GltfMeshIndex = &mesh
		}
		mapped.Nodes[id] = result
	}
	return mapped, nil
}

// Ordered returns the mapped nodes in depth-first order from the
// roots, then unreachable nodes in id order.
func (m MappedNodeMap) Ordered() []MappedNode {
	plain := NodeMap{Roots: m.Roots, Nodes: make(map[string]Node, len(m.Nodes))}
	for id, node := range m.Nodes {
		plain.Nodes[id] = node.Node
	}
	ids := plain.OrderedIDs()
	ordered := make([]MappedNode, len(ids))
	for i, id := range ids {
		ordered[i] = m.Nodes[id]
	}
	return ordered
}
