// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assembly

import (
	"slices"
)

// Kind distinguishes assemblies (nodes with component children) from
// parts (leaf shapes).
type Kind string

const (
	KindAssembly Kind = "assembly"
	KindPart     Kind = "part"
)

// Node is one occurrence in a CAD assembly tree.
type Node struct {
	// ID is unique per occurrence: the slash-joined path of per-level
	// identifiers from the root.
	ID string `json:"id"`

	// LabelEntry is the raw CAD label entry ("0:1:1:3"). The glTF
	// writer embeds it in the node name.
	LabelEntry string `json:"labelEntry"`

	// Name is the display name after overrides.
	Name string `json:"name"`

	Kind Kind `json:"kind"`

	// ProductID is shared by all occurrences of the same product.
	ProductID string `json:"productId"`

	// ParentID is empty for roots.
	ParentID string `json:"parentId,omitempty"`

	// Children lists child ids in document order.
	Children []string `json:"children,omitempty"`

	// LegacyChildren is the older spelling of Children still emitted
	// by some kernel builds. Read through ChildIDs.
	LegacyChildren []string `json:"childrenIds,omitempty"`

	// Path lists ancestor identifiers from the root.
	Path []string `json:"path,omitempty"`
}

// ChildIDs returns Children, or LegacyChildren when Children is absent.
func (n Node) ChildIDs() []string {
	if n.Children != nil {
		return n.Children
	}
	return n.LegacyChildren
}

// NodeMap is the kernel's flat description of an assembly.
type NodeMap struct {
	Roots []string        `json:"roots"`
	Nodes map[string]Node `json:"nodes"`
}

// DanglingRef is a child reference to an id missing from the map.
type DanglingRef struct {
	ParentID string `json:"parentId"`
	ChildID  string `json:"childId"`
}

// DanglingRefs lists child and root references to ids that are not in
// the map, in traversal order. Roots are reported with an empty
// ParentID.
func (m NodeMap) DanglingRefs() []DanglingRef {
	var dangling []DanglingRef
	for _, root := range m.Roots {
		if _, ok := m.Nodes[root]; !ok {
			dangling = append(dangling, DanglingRef{ChildID: root})
		}
	}
	for _, id := range m.sortedIDs() {
		for _, child := range m.Nodes[id].ChildIDs() {
			if _, ok := m.Nodes[child]; !ok {
				dangling = append(dangling, DanglingRef{ParentID: id, ChildID: child})
			}
		}
	}
	return dangling
}

// Ordered returns the nodes in OrderedIDs order.
func (m NodeMap) Ordered() []Node {
	ids := m.OrderedIDs()
	ordered := make([]Node, len(ids))
	for i, id := range ids {
		ordered[i] = m.Nodes[id]
	}
	return ordered
}

// OrderedIDs returns the map keys in depth-first order from the roots,
// followed by any keys unreachable from the roots in sorted order.
// Each key appears once.
func (m NodeMap) OrderedIDs() []string {
	ordered := make([]string, 0, len(m.Nodes))
	visited := make(map[string]bool, len(m.Nodes))
	var visit func(id string)
	visit = func(id string) {
		node, ok := m.Nodes[id]
		if !ok || visited[id] {
			return
		}
		visited[id] = true
		ordered = append(ordered, id)
		for _, child := range node.ChildIDs() {
			visit(child)
		}
	}
	for _, root := range m.Roots {
		visit(root)
	}
	for _, id := range m.sortedIDs() {
		visit(id)
	}
	return ordered
}

func (m NodeMap) sortedIDs() []string {
	ids := make([]string, 0, len(m.Nodes))
	for id := range m.Nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
