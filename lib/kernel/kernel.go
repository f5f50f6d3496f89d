// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package kernel

import (
	"context"
	"errors"
	"strings"

	"github.com/bureau-foundation/cadconv/lib/assembly"
	"github.com/bureau-foundation/cadconv/lib/converr"
	"github.com/bureau-foundation/cadconv/lib/mesh"
)

// Format is a CAD input format.
type Format string

const (
	FormatSTEP Format = "step"
	FormatIGES Format = "iges"
)

// OutputFormat is a serialization the kernel can write.
type OutputFormat string

const (
	// OutputGLB is a single binary glTF container.
	OutputGLB OutputFormat = "glb"

	// OutputGLTF is a JSON glTF document plus an external BIN buffer.
	OutputGLTF OutputFormat = "gltf"

	OutputOBJ OutputFormat = "obj"
)

// Errors returned by the format parsers.
var (
	ErrUnknownFormat       = errors.New("kernel: unknown input format")
	ErrUnknownOutputFormat = errors.New("kernel: unknown output format")
)

// ParseFormat accepts a format name or a file extension, with or
// without a leading dot, in any case.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "step", "stp", "p21":
		return FormatSTEP, nil
	case "iges", "igs":
		return FormatIGES, nil
	}
	return "", converr.Validation("kernel/unknown-format", ErrUnknownFormat, "%q", name)
}

// ParseOutputFormat accepts an output format name or extension.
func ParseOutputFormat(name string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "glb":
		return OutputGLB, nil
	case "gltf":
		return OutputGLTF, nil
	case "obj":
		return OutputOBJ, nil
	}
	return "", converr.Validation("kernel/unknown-output-format", ErrUnknownOutputFormat, "%q", name)
}

// ReadOptions control what the kernel extracts while reading.
type ReadOptions struct {
	ReadNames  bool `json:"readNames"`
	ReadColors bool `json:"readColors"`
	ReadLayers bool `json:"readLayers"`
}

// WriteOptions control serialization.
type WriteOptions struct {
	// LinearUnit is the unit of the written coordinates ("mm", "m",
	// ...). Empty keeps the document's unit.
	LinearUnit string `json:"linearUnit,omitempty"`
}

// WriteResult holds the buffers of one write. Exactly the fields of the
// requested format are set: GLB, GLTF and BIN, or OBJ.
type WriteResult struct {
	GLB  []byte
	GLTF []byte
	BIN  []byte
	OBJ  []byte
}

// Document is a CAD document loaded into the kernel.
type Document interface {
	// LengthUnit returns the document's declared length unit, or ""
	// when it declares none.
	LengthUnit() string

	// Close releases the kernel-side document.
	Close() error
}

// Kernel is the CAD kernel contract. Implementations need not be safe
// for concurrent use; the converter drives one document at a time.
type Kernel interface {
	ReadDocument(ctx context.Context, data []byte, format Format, options ReadOptions) (Document, error)

	// Triangulate replaces the document's tessellation.
	Triangulate(ctx context.Context, document Document, params mesh.Params) error

	WriteBuffer(ctx context.Context, document Document, format OutputFormat, options WriteOptions) (WriteResult, error)

	// BuildRawNodeMap returns the document's assembly graph, applying
	// name overrides keyed by label entry.
	BuildRawNodeMap(ctx context.Context, document Document, overrides assembly.NameOverrides) (assembly.NodeMap, error)

	BuildRawBom(ctx context.Context, document Document, overrides assembly.NameOverrides) (assembly.BomExport, error)
}

// NewMesher returns a mesh.Mesher that triangulates document and writes
// it as GLB. Kernel failures become ConversionErrors coded
// kernel/triangulate-failed and kernel/write-failed; a write that
// returns no GLB is kernel/missing-output.
func NewMesher(k Kernel, document Document, options WriteOptions) mesh.Mesher {
	return mesh.MesherFunc(func(ctx context.Context, params mesh.Params) ([]byte, error) {
		if err := k.Triangulate(ctx, document, params); err != nil {
			return nil, converr.Conversion("kernel/triangulate-failed", err,
				"linear deflection %g, angular deflection %g", params.LinearDeflection, params.AngularDeflection)
		}
		written, err := k.WriteBuffer(ctx, document, OutputGLB, options)
		if err != nil {
			return nil, converr.Conversion("kernel/write-failed", err, "writing %s", OutputGLB)
		}
		if len(written.GLB) == 0 {
			return nil, converr.Conversion("kernel/missing-output", nil, "kernel returned no GLB buffer")
		}
		return written.GLB, nil
	})
}
