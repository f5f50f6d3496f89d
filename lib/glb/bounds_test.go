// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glb_test

import (
	"errors"
	"testing"

	"github.com/bureau-foundation/cadconv/lib/glb"
	"github.com/bureau-foundation/cadconv/lib/glb/glbtest"
)

func TestComputeBoundsFromAccessorMinMax(t *testing.T) {
	builder := glbtest.New()
	first := builder.AddPositions([][3]float32{{-1, 0, 2}, {3, 4, 5}}, true)
	second := builder.AddPositions([][3]float32{{0, -7, 1}, {1, 1, 9}}, true)
	builder.AddMesh("a", glbtest.Primitive{Position: first, Indices: -1, Mode: -1})
	builder.AddMesh("b",
		glbtest.Primitive{Position: second, Indices: -1, Mode: -1},
		glbtest.Primitive{Position: first, Indices: -1, Mode: -1},
	)

	bounds, err := glb.ComputeBounds(builder.GLB(t))
	if err != nil {
		t.Fatalf("ComputeBounds: %v", err)
	}
	want := glb.Bounds{Min: [3]float64{-1, -7, 1}, Max: [3]float64{3, 4, 9}}
	if bounds != want {
		t.Errorf("ComputeBounds = %+v, want %+v", bounds, want)
	}
}

func TestComputeBoundsPrefersMinMaxOverScan(t *testing.T) {
	builder := glbtest.New()
	// Accessor min/max claims a box smaller than the actual data; the
	// fast path wins whenever any accessor provides min/max.
	withMinMax := builder.AddPositions([][3]float32{{0, 0, 0}, {1, 1, 1}}, true)
	withoutMinMax := builder.AddPositions([][3]float32{{100, 100, 100}}, false)
	builder.AddMesh("m",
		glbtest.Primitive{Position: withMinMax, Indices: -1, Mode: -1},
		glbtest.Primitive{Position: withoutMinMax, Indices: -1, Mode: -1},
	)

	bounds, err := glb.ComputeBounds(builder.GLB(t))
	if err != nil {
		t.Fatalf("ComputeBounds: %v", err)
	}
	if bounds.Max != [3]float64{1, 1, 1} {
		t.Errorf("Max = %v, want accessor max only", bounds.Max)
	}
}

func TestComputeBoundsScansBIN(t *testing.T) {
	builder := glbtest.New()
	positions := builder.AddPositions([][3]float32{{2, -3, 0.5}, {-4, 8, 1}, {0, 0, -2}}, false)
	builder.AddMesh("m", glbtest.Primitive{Position: positions, Indices: -1, Mode: -1})

	bounds, err := glb.ComputeBounds(builder.GLB(t))
	if err != nil {
		t.Fatalf("ComputeBounds: %v", err)
	}
	want := glb.Bounds{Min: [3]float64{-4, -3, -2}, Max: [3]float64{2, 8, 1}}
	if bounds != want {
		t.Errorf("ComputeBounds = %+v, want %+v", bounds, want)
	}
}

func TestComputeBoundsScanHonorsStrideAndOffsets(t *testing.T) {
	builder := glbtest.New()
	// Interleaved layout: position (12 bytes) + 4 bytes of other data,
	// stride 16, with the view starting 4 bytes into the buffer and the
	// accessor at offset 0 within it.
	interleaved := make([]byte, 0, 4+16*2)
	interleaved = append(interleaved, 0xff, 0xff, 0xff, 0xff)
	interleaved = append(interleaved, glbtest.Float32Bytes([][3]float32{{5, 6, 7}})...)
	interleaved = append(interleaved, 0, 0, 0x80, 0x7f) // +Inf, ignored as padding data
	interleaved = append(interleaved, glbtest.Float32Bytes([][3]float32{{-5, 1, 2}})...)
	interleaved = append(interleaved, 0, 0, 0, 0)
	offset := builder.AppendBIN(interleaved)
	view := builder.AddBufferView(map[string]any{"buffer": 0, "byteOffset": offset + 4, "byteLength": 32, "byteStride": 16})
	accessor := builder.AddAccessor(map[string]any{"bufferView": view, "componentType": 5126, "count": 2, "type": "VEC3"})
	builder.AddMesh("m", glbtest.Primitive{Position: accessor, Indices: -1, Mode: -1})

	bounds, err := glb.ComputeBounds(builder.GLB(t))
	if err != nil {
		t.Fatalf("ComputeBounds: %v", err)
	}
	want := glb.Bounds{Min: [3]float64{-5, 1, 2}, Max: [3]float64{5, 6, 7}}
	if bounds != want {
		t.Errorf("ComputeBounds = %+v, want %+v", bounds, want)
	}
}

func TestComputeBoundsScanStopsAtEndOfBIN(t *testing.T) {
	builder := glbtest.New()
	positions := builder.AddPositions([][3]float32{{1, 2, 3}, {-1, -2, -3}}, false)
	// Claim far more vertices than the buffer holds.
	builder.Document()["accessors"].([]any)[positions].(map[string]any)["count"] = 1000
	builder.AddMesh("m", glbtest.Primitive{Position: positions, Indices: -1, Mode: -1})

	bounds, err := glb.ComputeBounds(builder.GLB(t))
	if err != nil {
		t.Fatalf("ComputeBounds: %v", err)
	}
	want := glb.Bounds{Min: [3]float64{-1, -2, -3}, Max: [3]float64{1, 2, 3}}
	if bounds != want {
		t.Errorf("ComputeBounds = %+v, want %+v", bounds, want)
	}
}

func TestComputeBoundsSkipsNonFloatAccessors(t *testing.T) {
	builder := glbtest.New()
	offset := builder.AppendBIN(make([]byte, 12))
	view := builder.AddBufferView(map[string]any{"buffer": 0, "byteOffset": offset, "byteLength": 12})
	quantized := builder.AddAccessor(map[string]any{"bufferView": view, "componentType": 5123, "count": 1, "type": "VEC3"})
	builder.AddMesh("m", glbtest.Primitive{Position: quantized, Indices: -1, Mode: -1})

	_, err := glb.ComputeBounds(builder.GLB(t))
	if !errors.Is(err, glb.ErrBoundsComputationFailed) {
		t.Fatalf("ComputeBounds error = %v, want ErrBoundsComputationFailed", err)
	}
}

func TestComputeBoundsErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"no meshes", glbtest.FromJSON(t, `{"accessors":[]}`, nil), glb.ErrMissingMeshesOrAccessors},
		{"no accessors", glbtest.FromJSON(t, `{"meshes":[]}`, nil), glb.ErrMissingMeshesOrAccessors},
		{"no bin", glbtest.FromJSON(t, `{"meshes":[{"primitives":[{"attributes":{"POSITION":0}}]}],"accessors":[{"count":3}],"bufferViews":[{}]}`, nil),
			glb.ErrMissingBinForBounds},
		{"no buffer views", glbtest.FromJSON(t, `{"meshes":[{"primitives":[{"attributes":{"POSITION":0}}]}],"accessors":[{"count":3}]}`, make([]byte, 36)),
			glb.ErrMissingBinForBounds},
		{"no positions", glbtest.FromJSON(t, `{"meshes":[],"accessors":[],"bufferViews":[]}`, make([]byte, 4)),
			glb.ErrBoundsComputationFailed},
		{"short min array", glbtest.FromJSON(t, `{"meshes":[{"primitives":[{"attributes":{"POSITION":0}}]}],"accessors":[{"min":[0,0],"max":[1,1]}]}`, nil),
			glb.ErrMissingBinForBounds},
		{"invalid glb", []byte("xyz"), glb.ErrInvalidMagic},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := glb.ComputeBounds(test.data)
			if !errors.Is(err, test.want) {
				t.Fatalf("ComputeBounds error = %v, want %v", err, test.want)
			}
		})
	}
}
