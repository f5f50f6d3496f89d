// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Components that stamp or measure time (conversion durations, cache
// access times) hold a Clock instead of calling time.Now directly.
// Production code uses Real(); tests use Fake() and move time with
// Advance or Set:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	cache, err := convcache.Open(convcache.Config{Root: dir, Clock: c})
//	// ...
//	c.Advance(time.Hour)
package clock
