// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glb

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/bureau-foundation/cadconv/lib/converr"
)

// GLB format constants (Khronos glTF 2.0, binary container).
const (
	// Magic is ASCII "glTF" read as a little-endian uint32.
	Magic uint32 = 0x46546C67

	// Version2 is the only container version glTF 2.0 defines.
	Version2 uint32 = 2

	// ChunkTypeJSON is ASCII "JSON" read as a little-endian uint32.
	ChunkTypeJSON uint32 = 0x4E4F534A

	// ChunkTypeBIN is ASCII "BIN\x00" read as a little-endian uint32.
	ChunkTypeBIN uint32 = 0x004E4942

	// headerSize is magic + version + total length.
	headerSize = 12

	// chunkHeaderSize is chunk length + chunk type.
	chunkHeaderSize = 8
)

// Errors returned by Parse and Build. Parse wraps them in a
// converr.ConversionError carrying the offending values.
var (
	ErrInvalidMagic    = errors.New("glb: invalid magic")
	ErrTruncatedHeader = errors.New("glb: truncated header")
	ErrTruncatedFile   = errors.New("glb: declared length exceeds buffer")
	ErrLengthMismatch  = errors.New("glb: declared length shorter than buffer")
	ErrTruncatedChunk  = errors.New("glb: chunk extends past end of buffer")
	ErrMissingChunks   = errors.New("glb: no chunks")
	ErrTooLarge        = errors.New("glb: container exceeds 4 GiB")
	ErrChunkOrder      = errors.New("glb: chunk order violates container layout")
)

// Chunk is one typed payload of a GLB container. Data excludes the
// 8-byte chunk header and includes any padding.
type Chunk struct {
	Type uint32
	Data []byte
}

// Container is a parsed GLB: the header version and the ordered chunk
// list. The header's total length is not stored; it is a function of
// the chunks.
type Container struct {
	Version uint32
	Chunks  []Chunk
}

// Parse validates and splits a GLB buffer. Checks run in a fixed
// order: magic, header size, declared total length, then each chunk
// header in sequence from offset 12.
//
// The returned chunk payloads are sub-slices of data.
func Parse(data []byte) (*Container, error) {
	if len(data) < 4 {
		return nil, converr.Conversion("glb/invalid-magic", ErrInvalidMagic,
			"buffer is %d bytes, too short for magic", len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != Magic {
		return nil, converr.Conversion("glb/invalid-magic", ErrInvalidMagic,
			"got 0x%08x, want 0x%08x", magic, Magic)
	}
	if len(data) < headerSize+chunkHeaderSize {
		return nil, converr.Conversion("glb/truncated-header", ErrTruncatedHeader,
			"buffer is %d bytes, need at least %d for header and first chunk header",
			len(data), headerSize+chunkHeaderSize)
	}

	version := binary.LittleEndian.Uint32(data[4:8])
	declared := uint64(binary.LittleEndian.Uint32(data[8:12]))
	actual := uint64(len(data))
	switch {
	case declared > actual:
		return nil, converr.Conversion("glb/truncated-file", ErrTruncatedFile,
			"header declares %d bytes, buffer has %d", declared, actual)
	case declared < actual:
		return nil, converr.Conversion("glb/length-mismatch", ErrLengthMismatch,
			"header declares %d bytes, buffer has %d", declared, actual)
	}

	var chunks []Chunk
	offset := uint64(headerSize)
	for offset < actual {
		if offset+chunkHeaderSize > actual {
			return nil, converr.Conversion("glb/truncated-chunk", ErrTruncatedChunk,
				"chunk %d header at offset %d needs %d bytes, %d remain",
				len(chunks), offset, chunkHeaderSize, actual-offset)
		}
		length := uint64(binary.LittleEndian.Uint32(data[offset : offset+4]))
		chunkType := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		start := offset + chunkHeaderSize
		end := start + length
		if end > actual {
			return nil, converr.Conversion("glb/truncated-chunk", ErrTruncatedChunk,
				"chunk %d (type 0x%08x) at offset %d declares %d bytes, ends at %d past buffer length %d",
				len(chunks), chunkType, offset, length, end, actual)
		}
		chunks = append(chunks, Chunk{Type: chunkType, Data: data[start:end:end]})
		offset = end
	}

	if len(chunks) == 0 {
		return nil, converr.Conversion("glb/missing-chunks", ErrMissingChunks, "")
	}

	return &Container{Version: version, Chunks: chunks}, nil
}

// Build serializes a GLB from a version and chunk list. The header's
// total length is computed as 12 + sum(8 + len(chunk.Data)); nothing
// precomputed is trusted. Payloads are written as given: callers must
// pad them to 4-byte boundaries first (see PadChunk).
func Build(version uint32, chunks []Chunk) ([]byte, error) {
	total := uint64(headerSize)
	for _, chunk := range chunks {
		total += chunkHeaderSize + uint64(len(chunk.Data))
	}
	if total > math.MaxUint32 {
		return nil, converr.Conversion("glb/too-large", ErrTooLarge, "total length %d", total)
	}

	output := make([]byte, 0, total)
	output = binary.LittleEndian.AppendUint32(output, Magic)
	output = binary.LittleEndian.AppendUint32(output, version)
	output = binary.LittleEndian.AppendUint32(output, uint32(total))
	for _, chunk := range chunks {
		output = binary.LittleEndian.AppendUint32(output, uint32(len(chunk.Data)))
		output = binary.LittleEndian.AppendUint32(output, chunk.Type)
		output = append(output, chunk.Data...)
	}
	return output, nil
}

// Bytes serializes the container. Equivalent to Build(c.Version, c.Chunks).
func (c *Container) Bytes() ([]byte, error) {
	return Build(c.Version, c.Chunks)
}

// Size returns the serialized length in bytes.
func (c *Container) Size() int {
	total := headerSize
	for _, chunk := range c.Chunks {
		total += chunkHeaderSize + len(chunk.Data)
	}
	return total
}

// JSONChunkIndex returns the position of the first JSON chunk, or -1.
func (c *Container) JSONChunkIndex() int {
	return c.chunkIndex(ChunkTypeJSON)
}

// BIN returns the payload of the first BIN chunk and whether one
// exists.
func (c *Container) BIN() ([]byte, bool) {
	index := c.chunkIndex(ChunkTypeBIN)
	if index < 0 {
		return nil, false
	}
	return c.Chunks[index].Data, true
}

func (c *Container) chunkIndex(chunkType uint32) int {
	for i, chunk := range c.Chunks {
		if chunk.Type == chunkType {
			return i
		}
	}
	return -1
}

// Validate checks the glTF container layout: the first chunk is JSON,
// and at most one BIN chunk exists, in second position. Parse does not
// enforce this so that tolerant readers (the patcher, statistics) can
// still operate on nonconforming output.
func (c *Container) Validate() error {
	if len(c.Chunks) == 0 {
		return converr.Conversion("glb/missing-chunks", ErrMissingChunks, "")
	}
	if c.Chunks[0].Type != ChunkTypeJSON {
		return converr.Conversion("glb/chunk-order", ErrChunkOrder,
			"first chunk has type 0x%08x, want JSON", c.Chunks[0].Type)
	}
	for i, chunk := range c.Chunks {
		if chunk.Type == ChunkTypeBIN && i != 1 {
			return converr.Conversion("glb/chunk-order", ErrChunkOrder,
				"BIN chunk at position %d, only position 1 is allowed", i)
		}
	}
	return nil
}

// PadChunk returns data padded to a 4-byte boundary with the pad byte
// glTF mandates for chunkType: 0x20 for JSON, 0x00 otherwise. The
// input slice is never modified.
func PadChunk(data []byte, chunkType uint32) []byte {
	padding := (4 - len(data)%4) % 4
	output := make([]byte, len(data), len(data)+padding)
	copy(output, data)
	pad := byte(0x00)
	if chunkType == ChunkTypeJSON {
		pad = 0x20
	}
	for range padding {
		output = append(output, pad)
	}
	return output
}
