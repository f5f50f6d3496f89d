// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build version information.
//
// Three package-level variables are injected at build time via
// -ldflags -X:
//
//   - [Version] -- semantic version string (set manually for releases)
//   - [GitCommit] -- short git SHA of the build
//   - [GitDirty] -- "true" if there were uncommitted changes
//
// They default to "0.1.0-dev" / "unknown" in development builds and
// test runs.
//
// The converter records [Short] in conversion metadata and in result
// cache keys, so a new release never serves results produced by an
// older one.
package version
