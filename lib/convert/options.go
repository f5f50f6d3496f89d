// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package convert

import (
	"errors"
	"math"
	"path/filepath"

	"github.com/bureau-foundation/cadconv/lib/assembly"
	"github.com/bureau-foundation/cadconv/lib/converr"
	"github.com/bureau-foundation/cadconv/lib/kernel"
	"github.com/bureau-foundation/cadconv/lib/mesh"
	"github.com/bureau-foundation/cadconv/lib/version"
)

// Errors returned for malformed requests, wrapped in ValidationErrors.
var (
	ErrEmptyInput        = errors.New("convert: input is empty")
	ErrInvalidDeflection = errors.New("convert: deflection must be positive and finite")
)

// Default tessellation tolerances.
const (
	DefaultLinearDeflection  = 0.1
	DefaultAngularDeflection = 0.5
)

// Options control one conversion.
type Options struct {
	// Format is the input format. Empty infers it from the request's
	// file name extension.
	Format kernel.Format `json:"format,omitempty"`

	// OutputFormat defaults to GLB.
	OutputFormat kernel.OutputFormat `json:"outputFormat,omitempty"`

	Mesh mesh.Params `json:"mesh"`

	// Attempts bounds the tessellation schedule. Zero means
	// mesh.DefaultAttempts; values below one are treated as one.
	Attempts int `json:"attempts,omitempty"`

	Thresholds mesh.Thresholds `json:"thresholds"`

	Read kernel.ReadOptions `json:"read"`

	// LinearUnit is the unit of the written coordinates. Empty keeps
	// the document's unit.
	LinearUnit string `json:"linearUnit,omitempty"`

	NameOverrides assembly.NameOverrides `json:"nameOverrides,omitempty"`

	// EmbedMetadata writes the ConversionMetadata into the GLB's
	// asset.extras.cadconv.
	EmbedMetadata bool `json:"embedMetadata"`

	// AllowMissingBounds downgrades a bounds failure to a warning.
	AllowMissingBounds bool `json:"allowMissingBounds"`
}

// DefaultOptions returns the options used when a caller has no
// preference.
func DefaultOptions() Options {
	return Options{
		OutputFormat: kernel.OutputGLB,
		Mesh: mesh.Params{
			LinearDeflection:  DefaultLinearDeflection,
			AngularDeflection: DefaultAngularDeflection,
		},
		Attempts:      mesh.DefaultAttempts,
		Thresholds:    mesh.DefaultThresholds(),
		Read:          kernel.ReadOptions{ReadNames: true, ReadColors: true},
		EmbedMetadata: true,
	}
}

// Request is one conversion.
type Request struct {
	Input []byte

	// Filename is reported in the metadata and used to infer the
	// input format.
	Filename string

	Options Options
}

// normalize validates the request and resolves defaulted formats.
func (r Request) normalize() (Options, error) {
	options := r.Options
	if len(r.Input) == 0 {
		return options, converr.Validation("convert/empty-input", ErrEmptyInput, "")
	}

	formatName := string(options.Format)
	if formatName == "" {
		formatName = filepath.Ext(r.Filename)
	}
	format, err := kernel.ParseFormat(formatName)
	if err != nil {
		return options, err
	}
	options.Format = format

	if options.OutputFormat == "" {
		options.OutputFormat = kernel.OutputGLB
	} else {
		output, err := kernel.ParseOutputFormat(string(options.OutputFormat))
		if err != nil {
			return options, err
		}
		options.OutputFormat = output
	}

	if !positive(options.Mesh.LinearDeflection) || !positive(options.Mesh.AngularDeflection) {
		return options, converr.Validation("convert/invalid-deflection", ErrInvalidDeflection,
			"linear %g, angular %g", options.Mesh.LinearDeflection, options.Mesh.AngularDeflection)
	}
	return options, nil
}

func positive(value float64) bool {
	return value > 0 && !math.IsInf(value, 0)
}

// cacheKeyVersion changes whenever the cached representation of a
// result changes.
const cacheKeyVersion = 1

// cacheKey lists everything that determines a conversion's output
// besides the input bytes.
type cacheKey struct {
	Version            int                 `cbor:"version"`
	Generator          string              `cbor:"generator"`
	Filename           string              `cbor:"filename"`
	Format             kernel.Format       `cbor:"format"`
	OutputFormat       kernel.OutputFormat `cbor:"output_format"`
	Mesh               mesh.Params         `cbor:"mesh"`
	Attempts           int                 `cbor:"attempts"`
	Thresholds         mesh.Thresholds     `cbor:"thresholds"`
	Read               kernel.ReadOptions  `cbor:"read"`
	LinearUnit         string              `cbor:"linear_unit"`
	NameOverrides      map[string]string   `cbor:"name_overrides"`
	EmbedMetadata      bool                `cbor:"embed_metadata"`
	AllowMissingBounds bool                `cbor:"allow_missing_bounds"`
}

func newCacheKey(filename string, options Options) cacheKey {
	attempts := options.Attempts
	switch {
	case attempts == 0:
		attempts = mesh.DefaultAttempts
	case attempts < 0:
		attempts = 1
	}
	thresholds := options.Thresholds
	if thresholds.MaxTriangles <= 0 {
		thresholds.MaxTriangles = mesh.DefaultMaxTriangles
	}
	if thresholds.MaxPrimitives <= 0 {
		thresholds.MaxPrimitives = mesh.DefaultMaxPrimitives
	}
	return cacheKey{
		Version:            cacheKeyVersion,
		Generator:          version.Short(),
		Filename:           filename,
		Format:             options.Format,
		OutputFormat:       options.OutputFormat,
		Mesh:               options.Mesh,
		Attempts:           attempts,
		Thresholds:         thresholds,
		Read:               options.Read,
		LinearUnit:         options.LinearUnit,
		NameOverrides:      options.NameOverrides,
		EmbedMetadata:      options.EmbedMetadata,
		AllowMissingBounds: options.AllowMissingBounds,
	}
}
