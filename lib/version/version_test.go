// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	saved := [3]string{Version, GitCommit, GitDirty}
	t.Cleanup(func() { Version, GitCommit, GitDirty = saved[0], saved[1], saved[2] })

	Version, GitCommit, GitDirty = "1.2.0", "abc1234", "false"
	if got := Info(); got != "1.2.0 (abc1234)" {
		t.Errorf("Info() = %q", got)
	}
	GitDirty = "true"
	if got := Info(); got != "1.2.0 (abc1234-dirty)" {
		t.Errorf("Info() dirty = %q", got)
	}
	if got := Short(); got != "1.2.0" {
		t.Errorf("Short() = %q", got)
	}
	if full := Full(); !strings.HasPrefix(full, "1.2.0 (abc1234-dirty)\n  Go: ") {
		t.Errorf("Full() = %q", full)
	}
}
