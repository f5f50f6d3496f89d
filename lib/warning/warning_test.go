// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package warning

import (
	"encoding/json"
	"testing"
)

func TestLogAppendOnly(t *testing.T) {
	var log Log
	detail := map[string]any{"attempt": 0}
	log.Addf(TriangleExplosionRetry, detail, "attempt %d exploded", 0)
	log.Add(New(TriangleExplosionUnresolved, nil, "still exploded"))

	// Mutating the caller's detail map must not reach the log.
	detail["attempt"] = 99

	list := log.List()
	if len(list) != 2 || log.Len() != 2 {
		t.Fatalf("List has %d entries, Len = %d, want 2", len(list), log.Len())
	}
	if list[0].Code != TriangleExplosionRetry || list[0].Message != "attempt 0 exploded" {
		t.Errorf("first warning = %+v", list[0])
	}
	if list[0].Detail["attempt"] != 0 {
		t.Errorf("detail changed after Add: %v", list[0].Detail)
	}

	// Mutating the returned list must not reach the log.
	list[1].Code = "tampered"
	if again := log.List(); again[1].Code != TriangleExplosionUnresolved {
		t.Error("List returned the log's backing array")
	}
}

func TestEmptyLog(t *testing.T) {
	var log Log
	list := log.List()
	if list == nil || len(list) != 0 || log.Len() != 0 {
		t.Errorf("empty log List() = %#v, Len = %d", list, log.Len())
	}
	encoded, err := json.Marshal(list)
	if err != nil || string(encoded) != "[]" {
		t.Errorf("empty list encodes as %s, %v; want []", encoded, err)
	}
}
