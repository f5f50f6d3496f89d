// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glb

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/bureau-foundation/cadconv/lib/converr"
)

// Errors returned by ComputeBounds.
var (
	ErrMissingMeshesOrAccessors = errors.New("glb: document has no meshes or accessors array")
	ErrMissingBinForBounds      = errors.New("glb: no accessor min/max and no BIN chunk or bufferViews to scan")
	ErrBoundsComputationFailed  = errors.New("glb: no finite POSITION values")
)

const (
	// componentTypeFloat is GL_FLOAT.
	componentTypeFloat = 5126

	// vec3Float32Size is the tightly packed stride of a float32 VEC3.
	vec3Float32Size = 12
)

// Bounds is an axis-aligned bounding box in glTF scene units.
type Bounds struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

// boundsAccumulator folds points and boxes into a running min/max.
type boundsAccumulator struct {
	bounds Bounds
	folded bool
}

func (a *boundsAccumulator) extend(minimum, maximum [3]float64) {
	if !a.folded {
		a.bounds = Bounds{Min: minimum, Max: maximum}
		a.folded = true
		return
	}
	for axis := range 3 {
		a.bounds.Min[axis] = math.Min(a.bounds.Min[axis], minimum[axis])
		a.bounds.Max[axis] = math.Max(a.bounds.Max[axis], maximum[axis])
	}
}

// ComputeBounds derives the bounding box of every POSITION accessor
// referenced by a mesh primitive.
//
// Accessor min/max arrays are preferred: when any POSITION accessor
// supplies them, only those accessors contribute. Otherwise the
// float32 VEC3 vertex data is scanned from the BIN chunk; a read that
// would run past the chunk ends that accessor's scan without error.
func ComputeBounds(glb []byte) (Bounds, error) {
	document, bin, err := ParseDocument(glb)
	if err != nil {
		return Bounds{}, err
	}
	return ComputeDocumentBounds(document, bin)
}

// ComputeDocumentBounds is ComputeBounds over an already-decoded
// document. bin is the BIN chunk payload, nil when absent.
func ComputeDocumentBounds(document Document, bin []byte) (Bounds, error) {
	meshes, meshesOK := document.Array("meshes")
	accessors, accessorsOK := document.Array("accessors")
	if !meshesOK || !accessorsOK {
		return Bounds{}, converr.Conversion("glb/missing-meshes-or-accessors", ErrMissingMeshesOrAccessors, "")
	}

	positions := positionAccessors(meshes)

	var accumulator boundsAccumulator
	for _, index := range positions {
		if index >= len(accessors) {
			continue
		}
		accessor, ok := accessors[index].(map[string]any)
		if !ok {
			continue
		}
		minimum, minOK := vec3(accessor["min"])
		maximum, maxOK := vec3(accessor["max"])
		if minOK && maxOK {
			accumulator.extend(minimum, maximum)
		}
	}
	if accumulator.folded {
		return accumulator.bounds, nil
	}

	bufferViews, viewsOK := document.Array("bufferViews")
	if bin == nil || !viewsOK {
		return Bounds{}, converr.Conversion("glb/missing-bin-for-bounds", ErrMissingBinForBounds, "")
	}
	for _, index := range positions {
		if index >= len(accessors) {
			continue
		}
		accessor, ok := accessors[index].(map[string]any)
		if !ok {
			continue
		}
		scanPositions(&accumulator, accessor, bufferViews, bin)
	}
	if !accumulator.folded {
		return Bounds{}, converr.Conversion("glb/bounds-computation-failed", ErrBoundsComputationFailed,
			"%d POSITION accessors", len(positions))
	}
	return accumulator.bounds, nil
}

// positionAccessors returns the distinct POSITION accessor indices in
// first-reference order.
func positionAccessors(meshes []any) []int {
	seen := make(map[int]bool)
	var indices []int
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
			index, ok := positionAccessor(primitive)
			if !ok || seen[index] {
				continue
			}
			seen[index] = true
			indices = append(indices, index)
		}
	}
	return indices
}

// vec3 reads the first three components of a min/max array. All three
// must be finite numbers.
func vec3(value any) ([3]float64, bool) {
	array, ok := value.([]any)
	if !ok || len(array) < 3 {
		return [3]float64{}, false
	}
	var result [3]float64
	for axis := range 3 {
		component, ok := Number(array[axis])
		if !ok || math.IsNaN(component) || math.IsInf(component, 0) {
			return [3]float64{}, false
		}
		result[axis] = component
	}
	return result, true
}

// scanPositions folds the float32 VEC3 vertices of one accessor.
// Accessors of any other type or component type are skipped.
func scanPositions(accumulator *boundsAccumulator, accessor map[string]any, bufferViews []any, bin []byte) {
	if kind, _ := accessor["type"].(string); kind != "VEC3" {
		return
	}
	if componentType, ok := Number(accessor["componentType"]); !ok || componentType != componentTypeFloat {
		return
	}
	viewIndex, ok := Index(accessor["bufferView"])
	if !ok || viewIndex >= len(bufferViews) {
		return
	}
	view, ok := bufferViews[viewIndex].(map[string]any)
	if !ok {
		return
	}

	start := field(view, "byteOffset", 0) + field(accessor, "byteOffset", 0)
	stride := field(view, "byteStride", 0)
	if stride <= 0 {
		stride = vec3Float32Size
	}
	count := field(accessor, "count", 0)

	for vertex := range count {
		offset := start + vertex*stride
		if offset+vec3Float32Size > len(bin) {
			return
		}
		var point [3]float64
		finite := true
		for axis := range 3 {
			bits := binary.LittleEndian.Uint32(bin[offset+axis*4:])
			point[axis] = float64(math.Float32frombits(bits))
			if math.IsNaN(point[axis]) || math.IsInf(point[axis], 0) {
				finite = false
			}
		}
		if finite {
			accumulator.extend(point, point)
		}
	}
}
