// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glb

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"unicode/utf8"

	"github.com/bureau-foundation/cadconv/lib/converr"
)

// Errors returned while decoding or encoding the JSON chunk.
var (
	ErrMissingJSONChunk = errors.New("glb: no JSON chunk")
	ErrInvalidJSON      = errors.New("glb: JSON chunk is not valid JSON")
	ErrInvalidJSONRoot  = errors.New("glb: JSON chunk root is not an object")
	ErrNotSerializable  = errors.New("glb: value cannot be serialized as JSON")
)

// Document is a decoded glTF JSON chunk. Numbers are held as
// json.Number.
type Document map[string]any

// chunkPadding is trimmed from the end of a JSON chunk before
// decoding. Spaces are the mandated pad; NUL bytes are tolerated
// because some writers pad JSON chunks like BIN chunks.
const chunkPadding = " \t\r\n\x00"

// DecodeDocument parses a JSON chunk payload.
func DecodeDocument(data []byte) (Document, error) {
	trimmed := bytes.TrimRight(data, chunkPadding)
	if !utf8.Valid(trimmed) {
		return nil, converr.Conversion("glb/invalid-json", ErrInvalidJSON, "payload is not valid UTF-8")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	var root any
	if err := decoder.Decode(&root); err != nil {
		return nil, converr.Conversion("glb/invalid-json", ErrInvalidJSON, "%v", err)
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, converr.Conversion("glb/invalid-json", ErrInvalidJSON, "trailing data after JSON value")
	}

	object, ok := root.(map[string]any)
	if !ok {
		return nil, converr.Conversion("glb/invalid-json-root", ErrInvalidJSONRoot,
			"root is %s", jsonKind(root))
	}
	return Document(object), nil
}

// Document decodes the first JSON chunk and returns it with the
// chunk's position in c.Chunks.
func (c *Container) Document() (Document, int, error) {
	index := c.JSONChunkIndex()
	if index < 0 {
		return nil, -1, converr.Conversion("glb/missing-json-chunk", ErrMissingJSONChunk,
			"%d chunks, none of type JSON", len(c.Chunks))
	}
	document, err := DecodeDocument(c.Chunks[index].Data)
	if err != nil {
		return nil, -1, err
	}
	return document, index, nil
}

// EncodeDocument serializes a value as a padded JSON chunk payload.
// HTML characters are not escaped; glTF names routinely contain "<",
// ">" and "&".
func EncodeDocument(value any) ([]byte, error) {
	encoded, err := marshalJSON(value)
	if err != nil {
		return nil, converr.Conversion("glb/not-serializable", ErrNotSerializable, "%v", err)
	}
	return PadChunk(encoded, ChunkTypeJSON), nil
}

func marshalJSON(value any) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buffer.Bytes(), []byte("\n")), nil
}

// ParseDocument parses a GLB and decodes its JSON chunk. The BIN
// payload is returned when present.
func ParseDocument(data []byte) (Document, []byte, error) {
	container, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}
	document, _, err := container.Document()
	if err != nil {
		return nil, nil, err
	}
	bin, _ := container.BIN()
	return document, bin, nil
}

// Array returns the named top-level field as a JSON array.
func (d Document) Array(key string) ([]any, bool) {
	array, ok := d[key].([]any)
	return array, ok
}

// Object returns element i of the named top-level array as a JSON
// object.
func (d Document) Object(key string, i int) (map[string]any, bool) {
	array, ok := d.Array(key)
	if !ok || i < 0 || i >= len(array) {
		return nil, false
	}
	object, ok := array[i].(map[string]any)
	return object, ok
}

// Number reports v as a float64 when it is a JSON number (or a Go
// numeric type, for documents built in memory).
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// Index reports v as a non-negative integer index.
func Index(v any) (int, bool) {
	f, ok := Number(v)
	if !ok || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// field returns object[key] as an index, or fallback when absent or
// not an integer.
func field(object map[string]any, key string, fallback int) int {
	if value, ok := Index(object[key]); ok {
		return value
	}
	return fallback
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return "unknown"
}
