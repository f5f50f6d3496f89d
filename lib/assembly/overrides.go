// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assembly

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"
)

// NameOverrides maps label entries to display names. The kernel applies
// them when building the raw node map and BOM, so they take precedence
// over names stored in the CAD document.
type NameOverrides map[string]string

// LoadNameOverrides parses a JSON object of label entry to name.
// Comments and trailing commas (JSONC) are accepted, since override
// files are usually maintained by hand.
func LoadNameOverrides(data []byte) (NameOverrides, error) {
	var raw map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return nil, fmt.Errorf("parsing name overrides: %w", err)
	}
	overrides := make(NameOverrides, len(raw))
	for key, value := range raw {
		name, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("name override for %q is %T, want string", key, value)
		}
		overrides[key] = name
	}
	return overrides, nil
}
