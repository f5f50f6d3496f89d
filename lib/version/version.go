// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
)

// These variables are set via -ldflags at build time:
//
//	go build -ldflags "-X github.com/bureau-foundation/cadconv/lib/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	GitDirty  = "false"
)

// Info returns "0.1.0-dev (abc1234)", with "-dirty" appended to the
// commit for builds with uncommitted changes.
func Info() string {
	dirty := ""
	if GitDirty == "true" {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s)", Version, GitCommit, dirty)
}

// Full returns Info plus the Go version and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version number.
func Short() string {
	return Version
}
