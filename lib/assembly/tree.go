// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assembly

// TreeNode is one record of the assembly outline.
type TreeNode struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Children []TreeNode `json:"children"`
}

// BuildTree resolves the roots and, recursively, each node's children
// into an ordered forest. Ids missing from the map are dropped. An id
// that already appears on the path from its root is also dropped, so a
// malformed map cannot recurse without bound.
func BuildTree(nodeMap NodeMap) []TreeNode {
	onPath := make(map[string]bool)
	var build func(id string) (TreeNode, bool)
	build = func(id string) (TreeNode, bool) {
		node, ok := nodeMap.Nodes[id]
		if !ok || onPath[id] {
			return TreeNode{}, false
		}
		onPath[id] = true
		defer delete(onPath, id)

		tree := TreeNode{ID: node.ID, Name: node.Name, Children: []TreeNode{}}
		if tree.ID == "" {
			tree.ID = id
		}
		for _, child := range node.ChildIDs() {
			if subtree, ok := build(child); ok {
				tree.Children = append(tree.Children, subtree)
			}
		}
		return tree, true
	}

	forest := []TreeNode{}
	for _, root := range nodeMap.Roots {
		if tree, ok := build(root); ok {
			forest = append(forest, tree)
		}
	}
	return forest
}
