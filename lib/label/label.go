// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package label

import (
	"regexp"
	"strings"
)

var (
	// entryPattern matches a label entry anywhere in a string.
	entryPattern = regexp.MustCompile(`\d+(?::\d+)+`)

	// entryOnlyPattern matches a string that is exactly a label entry.
	entryOnlyPattern = regexp.MustCompile(`^\d+(?::\d+)+$`)

	// instanceTagPattern matches the kernel's per-instance tags
	// (next assembly usage occurrence), which carry no display value.
	instanceTagPattern = regexp.MustCompile(`(?i)^NAUO\d+$`)
)

// segmentSeparator opens a bracketed suffix. A bracket glued to the
// preceding text is part of that text.
const segmentSeparator = " ["

// Extract returns the last label entry embedded in name.
//
//	Extract("Gear Box [0:1]")        // "0:1", true
//	Extract("Shaft 0:1:2 [0:1:2:7]") // "0:1:2:7", true
//	Extract("No entry")              // "", false
func Extract(name string) (string, bool) {
	matches := entryPattern.FindAllString(name, -1)
	if len(matches) == 0 {
		return "", false
	}
	return matches[len(matches)-1], true
}

// IsEntry reports whether s is exactly a label entry.
func IsEntry(s string) bool {
	return entryOnlyPattern.MatchString(s)
}

// CleanName returns the display form of a glTF node name. The text
// before the first " [" is kept; each bracketed segment after it is
// kept only when its content is non-empty, is not a label entry, and is
// not an instance tag. When nothing survives, the trimmed original is
// returned, so only an empty or blank name cleans to "".
//
//	CleanName("Bolt [0:1:2] [NAUO123]")  // "Bolt"
//	CleanName("Part [0:1:3] [Custom]")   // "Part [Custom]"
//	CleanName("M8[DIN 933] [0:1]")       // "M8[DIN 933]"
func CleanName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}

	segments := strings.Split(trimmed, segmentSeparator)
	var kept []string
	if prefix := strings.TrimSpace(segments[0]); prefix != "" {
		kept = append(kept, prefix)
	}
	for _, segment := range segments[1:] {
		inner, rest, _ := strings.Cut(segment, "]")
		inner = strings.TrimSpace(inner)
		if inner != "" && !IsEntry(inner) && !instanceTagPattern.MatchString(inner) {
			kept = append(kept, "["+inner+"]")
		}
		// Text between a closing bracket and the next opening one.
		if rest = strings.TrimSpace(rest); rest != "" {
			kept = append(kept, rest)
		}
	}

	if len(kept) == 0 {
		return trimmed
	}
	return strings.Join(kept, " ")
}
