// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glb_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/bureau-foundation/cadconv/lib/converr"
	"github.com/bureau-foundation/cadconv/lib/glb"
	"github.com/bureau-foundation/cadconv/lib/glb/glbtest"
)

func sampleGLB(t *testing.T) []byte {
	t.Helper()
	builder := glbtest.New()
	positions := builder.AddPositions([][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, true)
	mesh := builder.AddMesh("triangle", glbtest.Primitive{Position: positions, Indices: -1, Mode: -1})
	builder.AddNode("Triangle [0:1:1:1]", mesh)
	return builder.GLB(t)
}

func TestParseBuildRoundtrip(t *testing.T) {
	original := sampleGLB(t)

	container, err := glb.Parse(original)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if container.Version != glb.Version2 {
		t.Errorf("Version = %d, want 2", container.Version)
	}
	if len(container.Chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(container.Chunks))
	}
	if container.Chunks[0].Type != glb.ChunkTypeJSON || container.Chunks[1].Type != glb.ChunkTypeBIN {
		t.Errorf("chunk types = 0x%08x, 0x%08x", container.Chunks[0].Type, container.Chunks[1].Type)
	}
	if err := container.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	rebuilt, err := glb.Build(container.Version, container.Chunks)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !bytes.Equal(rebuilt, original) {
		t.Fatal("build(parse(x)) != x")
	}
	if container.Size() != len(original) {
		t.Errorf("Size = %d, want %d", container.Size(), len(original))
	}
}

func TestParseRoundtripPreservesUnknownChunks(t *testing.T) {
	extension := glb.Chunk{Type: 0x54584554, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}}
	original := glbtest.Assemble(t,
		glb.Chunk{Type: glb.ChunkTypeJSON, Data: glb.PadChunk([]byte(`{"asset":{"version":"2.0"}}`), glb.ChunkTypeJSON)},
		extension,
	)

	container, err := glb.Parse(original)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	rebuilt, err := container.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(rebuilt, original) {
		t.Fatal("roundtrip altered container with unknown chunk type")
	}
	if _, ok := container.BIN(); ok {
		t.Error("BIN() reported a chunk that does not exist")
	}
}

func TestBuildRecomputesLength(t *testing.T) {
	data, err := glb.Build(glb.Version2, []glb.Chunk{
		{Type: glb.ChunkTypeJSON, Data: []byte("{}  ")},
		{Type: glb.ChunkTypeBIN, Data: make([]byte, 8)},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := 12 + (8 + 4) + (8 + 8)
	if len(data) != want {
		t.Fatalf("len = %d, want %d", len(data), want)
	}
	if declared := binary.LittleEndian.Uint32(data[8:12]); int(declared) != want {
		t.Errorf("declared length = %d, want %d", declared, want)
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != glb.Magic {
		t.Errorf("magic = 0x%08x", magic)
	}
	if string(data[0:4]) != "glTF" {
		t.Errorf("magic bytes = %q, want glTF", data[0:4])
	}
}

func TestParseErrors(t *testing.T) {
	valid := sampleGLB(t)

	withLength := func(length uint32) []byte {
		data := bytes.Clone(valid)
		binary.LittleEndian.PutUint32(data[8:12], length)
		return data
	}

	badChunk := bytes.Clone(valid)
	// Inflate the first chunk's length past the end of the buffer.
	binary.LittleEndian.PutUint32(badChunk[12:16], uint32(len(valid)))

	shortTrailer := append(bytes.Clone(valid), 0, 0, 0, 0)
	binary.LittleEndian.PutUint32(shortTrailer[8:12], uint32(len(shortTrailer)))

	tests := []struct {
		name string
		data []byte
		want error
		code string
	}{
		{"empty", nil, glb.ErrInvalidMagic, "glb/invalid-magic"},
		{"three bytes", []byte("glT"), glb.ErrInvalidMagic, "glb/invalid-magic"},
		{"wrong magic", append([]byte("GLTF"), valid[4:]...), glb.ErrInvalidMagic, "glb/invalid-magic"},
		{"header only", valid[:12], glb.ErrTruncatedHeader, "glb/truncated-header"},
		{"nineteen bytes", valid[:19], glb.ErrTruncatedHeader, "glb/truncated-header"},
		{"declared longer", withLength(uint32(len(valid) + 4)), glb.ErrTruncatedFile, "glb/truncated-file"},
		{"declared shorter", withLength(uint32(len(valid) - 4)), glb.ErrLengthMismatch, "glb/length-mismatch"},
		{"chunk past end", badChunk, glb.ErrTruncatedChunk, "glb/truncated-chunk"},
		{"partial chunk header", shortTrailer, glb.ErrTruncatedChunk, "glb/truncated-chunk"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := glb.Parse(test.data)
			if !errors.Is(err, test.want) {
				t.Fatalf("Parse error = %v, want %v", err, test.want)
			}
			if !converr.IsConversion(err) {
				t.Errorf("error %v is not a ConversionError", err)
			}
			if code := converr.CodeOf(err); code != test.code {
				t.Errorf("code = %q, want %q", code, test.code)
			}
		})
	}
}

func TestParseDoesNotCopyOrMutate(t *testing.T) {
	original := sampleGLB(t)
	snapshot := bytes.Clone(original)

	container, err := glb.Parse(original)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// Appending to a chunk must not write into the source buffer.
	_ = append(container.Chunks[0].Data, 'x')
	if !bytes.Equal(original, snapshot) {
		t.Fatal("appending to a parsed chunk modified the input buffer")
	}
}

func TestValidateChunkOrder(t *testing.T) {
	tests := []struct {
		name   string
		chunks []glb.Chunk
		want   error
	}{
		{"empty", nil, glb.ErrMissingChunks},
		{"bin first", []glb.Chunk{{Type: glb.ChunkTypeBIN}, {Type: glb.ChunkTypeJSON}}, glb.ErrChunkOrder},
		{"bin third", []glb.Chunk{{Type: glb.ChunkTypeJSON}, {Type: 7}, {Type: glb.ChunkTypeBIN}}, glb.ErrChunkOrder},
		{"two bins", []glb.Chunk{{Type: glb.ChunkTypeJSON}, {Type: glb.ChunkTypeBIN}, {Type: glb.ChunkTypeBIN}}, glb.ErrChunkOrder},
		{"json only", []glb.Chunk{{Type: glb.ChunkTypeJSON}}, nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			container := &glb.Container{Version: glb.Version2, Chunks: test.chunks}
			err := container.Validate()
			if test.want == nil {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, test.want) {
				t.Fatalf("Validate = %v, want %v", err, test.want)
			}
		})
	}
}

func TestPadChunk(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		chunkType uint32
		want      string
	}{
		{"json aligned", "{}{}", glb.ChunkTypeJSON, "{}{}"},
		{"json pads with spaces", "{}", glb.ChunkTypeJSON, "{}  "},
		{"bin pads with zeros", "abcde", glb.ChunkTypeBIN, "abcde\x00\x00\x00"},
		{"empty", "", glb.ChunkTypeBIN, ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			input := []byte(test.data)
			got := glb.PadChunk(input, test.chunkType)
			if string(got) != test.want {
				t.Errorf("PadChunk = %q, want %q", got, test.want)
			}
			if string(input) != test.data {
				t.Error("PadChunk modified its input")
			}
		})
	}
}
