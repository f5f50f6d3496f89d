// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package convert

import (
	"bytes"
	"math"
	"testing"

	"github.com/bureau-foundation/cadconv/lib/warning"
)

func TestValueForCacheReportsEncodeFailure(t *testing.T) {
	result := &Result{
		GLB: []byte("glTF"),
		Metadata: ConversionMetadata{
			Warnings: []warning.Warning{warning.New(warning.BoundsUnavailable,
				map[string]any{"extent": math.NaN()}, "bounds unavailable")},
		},
	}
	if _, err := valueForCache(result, DefaultOptions()); err == nil {
		t.Fatal("valueForCache encoded a NaN detail")
	}

	result.Metadata.Warnings = nil
	value, err := valueForCache(result, DefaultOptions())
	if err != nil {
		t.Fatalf("valueForCache: %v", err)
	}
	if !bytes.Equal(value.Outputs[cachedGLB], result.GLB) || len(value.Metadata) == 0 {
		t.Errorf("value = %+v", value)
	}
}
