// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package glb

import (
	"bytes"
	"encoding/json"
	"errors"
	"maps"
	"reflect"

	"github.com/bureau-foundation/cadconv/lib/converr"
)

// ErrExtrasNotObject is wrapped in a converr.ValidationError when the
// extras payload handed to InjectExtras is not a JSON object.
var ErrExtrasNotObject = errors.New("glb: extras must be a JSON object")

// InjectExtras returns a copy of glb whose asset.extras is the shallow
// merge of the existing extras and the given object (keys in extras
// win). An existing extras value that is not an object is replaced.
// All chunks other than the JSON chunk are passed through unchanged,
// and the input buffer is not modified.
//
// extras may be a map[string]any, a json.RawMessage or []byte holding
// a JSON object, or any value that marshals to a JSON object (a
// struct or a string-keyed map).
func InjectExtras(glb []byte, extras any) ([]byte, error) {
	patch, err := normalizeExtras(extras)
	if err != nil {
		return nil, err
	}

	container, err := Parse(glb)
	if err != nil {
		return nil, err
	}
	document, jsonIndex, err := container.Document()
	if err != nil {
		return nil, err
	}

	asset, ok := document["asset"].(map[string]any)
	if !ok {
		asset = map[string]any{}
	}
	existing, ok := asset["extras"].(map[string]any)
	if !ok {
		existing = map[string]any{}
	}
	merged := make(map[string]any, len(existing)+len(patch))
	maps.Copy(merged, existing)
	maps.Copy(merged, patch)
	asset["extras"] = merged
	document["asset"] = asset

	encoded, err := marshalJSON(document)
	if err != nil {
		return nil, converr.Validation("glb/not-serializable", ErrNotSerializable,
			"extras cannot be serialized: %v", err)
	}
	payload := PadChunk(encoded, ChunkTypeJSON)

	chunks := make([]Chunk, len(container.Chunks))
	copy(chunks, container.Chunks)
	chunks[jsonIndex] = Chunk{Type: ChunkTypeJSON, Data: payload}
	return Build(container.Version, chunks)
}

// ReadExtras returns asset.extras from a GLB, or an empty map when the
// asset has no extras object.
func ReadExtras(glb []byte) (map[string]any, error) {
	document, _, err := ParseDocument(glb)
	if err != nil {
		return nil, err
	}
	asset, _ := document["asset"].(map[string]any)
	extras, ok := asset["extras"].(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	return extras, nil
}

// normalizeExtras converts the accepted extras shapes into a JSON
// object map.
func normalizeExtras(extras any) (map[string]any, error) {
	switch value := extras.(type) {
	case nil:
		return nil, converr.Validation("glb/extras-not-object", ErrExtrasNotObject, "extras is null")
	case map[string]any:
		return value, nil
	case json.RawMessage:
		return decodeExtras(value)
	case []byte:
		return decodeExtras(value)
	}

	switch reflect.TypeOf(extras).Kind() {
	case reflect.Map, reflect.Struct, reflect.Pointer:
	default:
		return nil, converr.Validation("glb/extras-not-object", ErrExtrasNotObject,
			"extras has Go type %T", extras)
	}
	encoded, err := json.Marshal(extras)
	if err != nil {
		return nil, converr.Validation("glb/not-serializable", ErrNotSerializable,
			"extras cannot be serialized: %v", err)
	}
	return decodeExtras(encoded)
}

func decodeExtras(data []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var root any
	if err := decoder.Decode(&root); err != nil {
		return nil, converr.Validation("glb/extras-not-object", ErrExtrasNotObject,
			"extras is not valid JSON: %v", err)
	}
	object, ok := root.(map[string]any)
	if !ok {
		return nil, converr.Validation("glb/extras-not-object", ErrExtrasNotObject,
			"extras is a JSON %s", jsonKind(root))
	}
	return object, nil
}
