// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the module's CBOR encoding configuration.
//
// The converter uses two serialization formats with a clear boundary:
//
//   - JSON for external interfaces: the glTF JSON chunk, the
//     ConversionMetadata embedded in asset.extras, name override
//     files.
//   - CBOR for internal state: conversion cache records and the
//     option encoding hashed into cache keys.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. The
// same logical value always produces identical bytes, which is what
// makes the encoding usable as hash input.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// # Struct Tag Rules
//
// A `cbor` tag marks a type that is only ever CBOR (cache records). A
// `json` tag marks a type that may be serialized as both: fxamacker/cbor
// reads `json` tags when `cbor` tags are absent, so geometry stats and
// warnings embedded in cache records keep their JSON field names. Never
// put both tags on one field.
package codec
