// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package convcache stores conversion results by content address, so
// converting the same CAD input with the same options twice costs one
// kernel run.
//
// # Keys
//
// A [Key] is a BLAKE3 keyed hash (domain "cadconv.cache.key") over the
// input length, the input bytes, and the deterministic CBOR encoding of
// the conversion options. Any change to either produces a new key;
// nothing is ever invalidated in place.
//
// # Layout
//
// Under the cache root, each entry is a CBOR record plus one blob per
// output, sharded by the first two bytes of the key:
//
//	<root>/<hex[:2]>/<hex[2:4]>/<hex>.cbor
//	<root>/<hex[:2]>/<hex[2:4]>/<hex>.<output>.blob
//	<root>/index.db
//
// Files are written to a temporary name and renamed into place, so a
// reader never sees a partial file. Blobs are compressed with a codec
// chosen per blob: zstd for JSON-heavy GLBs and text outputs, LZ4 when
// zstd's probe ratio is modest, none when the data does not compress.
// Each record carries the BLAKE3 digest of every uncompressed blob.
//
// # Index
//
// A SQLite database (WAL mode) tracks sizes, hit counts, and last
// access times so [Cache.Prune] can evict least-recently-used entries
// without walking the tree. The files are the source of truth: an
// entry whose files are missing, undecodable, or fail their digest is
// removed and reported as a miss.
//
// A Cache is safe for concurrent use.
package convcache
