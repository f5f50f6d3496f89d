// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glb

// modeTriangles is the glTF primitive mode for triangle lists, and the
// default when a primitive has no mode.
const modeTriangles = 4

// GeometryStats are counts derived from a GLB's JSON chunk. They are
// never stored independently of the buffer they describe.
type GeometryStats struct {
	Triangles                   int `json:"triangles"`
	MeshCount                   int `json:"meshCount"`
	NodeCount                   int `json:"nodeCount"`
	PrimitiveCount              int `json:"primitiveCount"`
	NodesWithMeshCount          int `json:"nodesWithMeshCount"`
	PrimitivesWithPositionCount int `json:"primitivesWithPositionCount"`
}

// Summarize computes GeometryStats for a GLB buffer. It never fails:
// an unparseable buffer, a missing JSON chunk, or malformed arrays all
// contribute zero.
func Summarize(glb []byte) GeometryStats {
	document, _, err := ParseDocument(glb)
	if err != nil {
		return GeometryStats{}
	}
	return SummarizeDocument(document)
}

// SummarizeDocument computes GeometryStats for an already-decoded
// document.
//
// Only TRIANGLES primitives (mode absent or 4) contribute triangles:
// indices.count/3 when indexed, otherwise POSITION.count/3.
func SummarizeDocument(document Document) GeometryStats {
	var stats GeometryStats

	nodes, _ := document.Array("nodes")
	stats.NodeCount = len(nodes)
	for _, entry := range nodes {
		node, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if _, ok := Number(node["mesh"]); ok {
			stats.NodesWithMeshCount++
		}
	}

	meshes, _ := document.Array("meshes")
	stats.MeshCount = len(meshes)
	for _, entry := range meshes {
		mesh, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		primitives, _ := mesh["primitives"].([]any)
		for _, primitiveEntry := range primitives {
			primitive, ok := primitiveEntry.(map[string]any)
			if !ok {
				continue
			}
			stats.PrimitiveCount++

			position, hasPosition := positionAccessor(primitive)
			if hasPosition {
				stats.PrimitivesWithPositionCount++
			}

			if mode, ok := primitive["mode"]; ok {
				if value, isNumber := Number(mode); !isNumber || value != modeTriangles {
					continue
				}
			}
			if indices, ok := Index(primitive["indices"]); ok {
				stats.Triangles += accessorCount(document, indices) / 3
			} else if hasPosition {
				stats.Triangles += accessorCount(document, position) / 3
			}
		}
	}

	return stats
}

// positionAccessor returns the POSITION attribute's accessor index.
func positionAccessor(primitive map[string]any) (int, bool) {
	attributes, ok := primitive["attributes"].(map[string]any)
	if !ok {
		return 0, false
	}
	return Index(attributes["POSITION"])
}

// accessorCount returns accessors[index].count, or 0.
func accessorCount(document Document, index int) int {
	accessor, ok := document.Object("accessors", index)
	if !ok {
		return 0
	}
	return field(accessor, "count", 0)
}
