// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads converter configuration.
//
// Configuration is loaded from a single file named by either the
// CADCONV_CONFIG environment variable (via [Load]) or an explicit path
// (via [LoadFile]). There is no discovery and no fallback file. The
// decoder is chosen by extension: .yaml and .yml are YAML, .toml is
// TOML.
//
// The file may contain environment-specific sections (development,
// staging, production) that override base values when
// [Config].Environment matches. Production without a section of its
// own is strict: missing bounds fail a conversion.
//
// After loading, ${HOME}, ${CADCONV_CACHE}, and ${VAR:-default}
// patterns are expanded in path fields. A relative name-override file
// is resolved against the configuration file's directory.
//
// [Config.ConverterOptions] projects the configuration into
// convert.Options, reading the JSONC name-override file when one is
// configured; [Config.CacheConfig] does the same for convcache.Config.
package config
