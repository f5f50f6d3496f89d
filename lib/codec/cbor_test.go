// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

type record struct {
	Key         string `cbor:"key"`
	Compression string `cbor:"compression,omitempty"`
	Size        int64  `cbor:"size"`
}

type dualRecord struct {
	Triangles int    `json:"triangles"`
	Name      string `json:"name"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := record{Key: "9f2c", Compression: "zstd", Size: 4096}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded record
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalMapKeyOrderIsDeterministic(t *testing.T) {
	// Go randomizes map iteration; the encoding must not depend on it.
	options := map[string]any{
		"linearDeflection":  0.1,
		"angularDeflection": 0.5,
		"format":            "step",
		"attempts":          3,
	}
	first, err := Marshal(options)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 20 {
		again, err := Marshal(options)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding changed between calls: %x != %x", first, again)
		}
	}
}

func TestJSONTagFallback(t *testing.T) {
	data, err := Marshal(dualRecord{Triangles: 12, Name: "bracket"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	diagnostic, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(diagnostic, `"triangles"`) {
		t.Errorf("diagnostic %s does not use the json field name", diagnostic)
	}
}

func TestUnmarshalAnyUsesStringKeyedMaps(t *testing.T) {
	data, err := Marshal(map[string]any{"detail": map[string]any{"attempt": 1}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded %T, want map[string]any", decoded)
	}
	if _, ok := outer["detail"].(map[string]any); !ok {
		t.Errorf("nested value %T, want map[string]any", outer["detail"])
	}
}
