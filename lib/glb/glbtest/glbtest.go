// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package glbtest builds GLB fixtures for tests. A [Builder]
// accumulates a glTF document and a BIN buffer; [Builder.GLB] pads
// both and assembles a well-formed container through the glb codec.
//
//	builder := glbtest.New()
//	positions := builder.AddPositions([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, true)
//	mesh := builder.AddMesh("plate", glbtest.Primitive{Position: positions, Indices: -1, Mode: -1})
//	builder.AddNode("Plate [0:1:1:1]", mesh)
//	data := builder.GLB(t)
package glbtest

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"

	"github.com/bureau-foundation/cadconv/lib/glb"
)

// Builder accumulates a glTF document and BIN buffer.
type Builder struct {
	document map[string]any
	bin      []byte
}

// New returns a Builder with a minimal asset header.
func New() *Builder {
	return &Builder{
		document: map[string]any{
			"asset": map[string]any{"version": "2.0", "generator": "glbtest"},
		},
	}
}

// Primitive describes a mesh primitive. Negative values mean the field
// is absent.
type Primitive struct {
	Position int
	Indices  int
	Mode     int
}

// Set assigns an arbitrary top-level document field, replacing any
// value the builder produced.
func (b *Builder) Set(key string, value any) *Builder {
	b.document[key] = value
	return b
}

// Document returns the document under construction.
func (b *Builder) Document() map[string]any {
	return b.document
}

// AddAccessor appends a raw accessor object and returns its index.
func (b *Builder) AddAccessor(accessor map[string]any) int {
	return b.appendTo("accessors", accessor)
}

// AddBufferView appends a raw bufferView object and returns its index.
func (b *Builder) AddBufferView(view map[string]any) int {
	return b.appendTo("bufferViews", view)
}

// AppendBIN appends raw bytes to the BIN buffer and returns their
// offset. The buffer is kept 4-byte aligned.
func (b *Builder) AppendBIN(data []byte) int {
	for len(b.bin)%4 != 0 {
		b.bin = append(b.bin, 0)
	}
	offset := len(b.bin)
	b.bin = append(b.bin, data...)
	return offset
}

// AddPositions writes float32 VEC3 vertex data into the BIN buffer,
// adds a bufferView and accessor for it, and returns the accessor
// index. withMinMax controls whether the accessor carries min/max.
func (b *Builder) AddPositions(points [][3]float32, withMinMax bool) int {
	offset := b.AppendBIN(Float32Bytes(points))
	view := b.AddBufferView(map[string]any{
		"buffer":     0,
		"byteOffset": offset,
		"byteLength": len(points) * 12,
	})
	accessor := map[string]any{
		"bufferView":    view,
		"componentType": 5126,
		"count":         len(points),
		"type":          "VEC3",
	}
	if withMinMax && len(points) > 0 {
		minimum := []float64{math.Inf(1), math.Inf(1), math.Inf(1)}
		maximum := []float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
		for _, point := range points {
			for axis := range 3 {
				minimum[axis] = math.Min(minimum[axis], float64(point[axis]))
				maximum[axis] = math.Max(maximum[axis], float64(point[axis]))
			}
		}
		accessor["min"] = minimum
		accessor["max"] = maximum
	}
	return b.AddAccessor(accessor)
}

// AddIndices adds an unsigned-int SCALAR accessor with the given count
// and no backing data, and returns its index.
func (b *Builder) AddIndices(count int) int {
	return b.AddAccessor(map[string]any{
		"componentType": 5125,
		"count":         count,
		"type":          "SCALAR",
	})
}

// AddMesh appends a mesh and returns its index.
func (b *Builder) AddMesh(name string, primitives ...Primitive) int {
	encoded := make([]any, 0, len(primitives))
	for _, primitive := range primitives {
		object := map[string]any{"attributes": map[string]any{}}
		if primitive.Position >= 0 {
			object["attributes"].(map[string]any)["POSITION"] = primitive.Position
		}
		if primitive.Indices >= 0 {
			object["indices"] = primitive.Indices
		}
		if primitive.Mode >= 0 {
			object["mode"] = primitive.Mode
		}
		encoded = append(encoded, object)
	}
	mesh := map[string]any{"primitives": encoded}
	if name != "" {
		mesh["name"] = name
	}
	return b.appendTo("meshes", mesh)
}

// AddNode appends a node and returns its index. mesh < 0 means no mesh.
func (b *Builder) AddNode(name string, mesh int, children ...int) int {
	node := map[string]any{}
	if name != "" {
		node["name"] = name
	}
	if mesh >= 0 {
		node["mesh"] = mesh
	}
	if len(children) > 0 {
		node["children"] = children
	}
	return b.appendTo("nodes", node)
}

// GLB assembles the container. A BIN chunk is emitted only when data
// was appended.
func (b *Builder) GLB(t testing.TB) []byte {
	t.Helper()
	document := b.document
	if len(b.bin) > 0 {
		document["buffers"] = []any{map[string]any{"byteLength": len(b.bin)}}
	}
	encoded, err := json.Marshal(document)
	if err != nil {
		t.Fatalf("glbtest: encoding document: %v", err)
	}
	chunks := []glb.Chunk{{Type: glb.ChunkTypeJSON, Data: glb.PadChunk(encoded, glb.ChunkTypeJSON)}}
	if len(b.bin) > 0 {
		chunks = append(chunks, glb.Chunk{Type: glb.ChunkTypeBIN, Data: glb.PadChunk(b.bin, glb.ChunkTypeBIN)})
	}
	return Assemble(t, chunks...)
}

// Assemble builds a GLB from raw chunks, failing the test on error.
func Assemble(t testing.TB, chunks ...glb.Chunk) []byte {
	t.Helper()
	data, err := glb.Build(glb.Version2, chunks)
	if err != nil {
		t.Fatalf("glbtest: building container: %v", err)
	}
	return data
}

// FromJSON builds a GLB whose JSON chunk is the given text and whose
// BIN chunk is bin (omitted when nil).
func FromJSON(t testing.TB, text string, bin []byte) []byte {
	t.Helper()
	chunks := []glb.Chunk{{Type: glb.ChunkTypeJSON, Data: glb.PadChunk([]byte(text), glb.ChunkTypeJSON)}}
	if bin != nil {
		chunks = append(chunks, glb.Chunk{Type: glb.ChunkTypeBIN, Data: glb.PadChunk(bin, glb.ChunkTypeBIN)})
	}
	return Assemble(t, chunks...)
}

// Float32Bytes encodes points as little-endian float32 triples.
func Float32Bytes(points [][3]float32) []byte {
	output := make([]byte, 0, len(points)*12)
	for _, point := range points {
		for _, component := range point {
			output = binary.LittleEndian.AppendUint32(output, math.Float32bits(component))
		}
	}
	return output
}

func (b *Builder) appendTo(key string, value map[string]any) int {
	array, _ := b.document[key].([]any)
	b.document[key] = append(array, value)
	return len(array)
}

// Dense returns a GLB whose single mesh has the given number of
// primitives and, in total, the given number of indexed triangles. The
// first primitive carries every triangle. Index accessors have no
// backing data; positions span the unit cube and carry min/max, so
// the fixture also has bounds.
func Dense(t testing.TB, triangles, primitives int) []byte {
	t.Helper()
	builder := New()
	positions := builder.AddPositions([][3]float32{{0, 0, 0}, {1, 1, 1}, {1, 0, 0}}, true)
	list := make([]Primitive, 0, max(primitives, 1))
	for i := range max(primitives, 1) {
		count := 0
		if i == 0 {
			count = 3 * triangles
		}
		list = append(list, Primitive{Position: positions, Indices: builder.AddIndices(count), Mode: -1})
	}
	builder.AddNode("dense", builder.AddMesh("dense", list...))
	return builder.GLB(t)
}
