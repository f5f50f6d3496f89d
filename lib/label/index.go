// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package label

import (
	"github.com/bureau-foundation/cadconv/lib/glb"
)

// Entry locates the glTF node that carries a label entry.
type Entry struct {
	// NodeIndex is the position in the glTF nodes array.
	NodeIndex int

	// MeshIndex is the node's mesh, nil when the node has none.
	MeshIndex *int

	// Name is the node's raw glTF name.
	Name string
}

// PrettyName returns the cleaned display form of the node name.
func (e Entry) PrettyName() string {
	return CleanName(e.Name)
}

// Index maps label entries to glTF nodes.
type Index map[string]Entry

// BuildIndex scans a GLB's nodes. An unparseable buffer yields an
// empty index.
func BuildIndex(data []byte) Index {
	document, _, err := glb.ParseDocument(data)
	if err != nil {
		return Index{}
	}
	return BuildIndexFromDocument(document)
}

// BuildIndexFromDocument scans nodes in array order, recording each
// named node whose label entry has not been seen yet.
func BuildIndexFromDocument(document glb.Document) Index {
	index := Index{}
	nodes, _ := document.Array("nodes")
	for nodeIndex, value := range nodes {
		node, ok := value.(map[string]any)
		if !ok {
			continue
		}
		name, ok := node["name"].(string)
		if !ok {
			continue
		}
		entry, ok := Extract(name)
		if !ok {
			continue
		}
		if _, seen := index[entry]; seen {
			continue
		}
		located := Entry{NodeIndex: nodeIndex, Name: name}
		if mesh, ok := glb.Index(node["mesh"]); ok {
			located.MeshIndex = &mesh
		}
		index[entry] = located
	}
	return index
}

// Lookup returns the entry for a label.
func (x Index) Lookup(labelEntry string) (Entry, bool) {
	entry, ok := x[labelEntry]
	return entry, ok
}

// PrettyNames maps each label entry to the cleaned node name, skipping
// names that clean to "".
func (x Index) PrettyNames() map[string]string {
	names := make(map[string]string, len(x))
	for labelEntry, entry := range x {
		if pretty := entry.PrettyName(); pretty != "" {
			names[labelEntry] = pretty
		}
	}
	return names
}
