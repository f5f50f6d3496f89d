// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package convert

import (
	"time"

	"github.com/bureau-foundation/cadconv/lib/assembly"
	"github.com/bureau-foundation/cadconv/lib/glb"
	"github.com/bureau-foundation/cadconv/lib/kernel"
	"github.com/bureau-foundation/cadconv/lib/mesh"
	"github.com/bureau-foundation/cadconv/lib/warning"
)

// Generator identifies this module in metadata.
const Generator = "cadconv"

// ExtrasKey is the asset.extras key holding embedded metadata.
const ExtrasKey = "cadconv"

// ConversionMetadata describes a conversion for web consumers. It is
// JSON-serialized into asset.extras.cadconv and returned in Result.
type ConversionMetadata struct {
	ConversionID     string    `json:"conversionId"`
	Generator        string    `json:"generator"`
	GeneratorVersion string    `json:"generatorVersion"`
	CreatedAt        time.Time `json:"createdAt"`

	Source SourceInfo `json:"source"`
	Output OutputInfo `json:"output"`
	Units  UnitInfo   `json:"units"`

	MeshStats    glb.GeometryStats `json:"meshStats"`
	Tessellation TessellationInfo  `json:"tessellation"`

	// Bounds is nil when bounds were unavailable and allowed to be.
	Bounds *glb.Bounds `json:"bounds,omitempty"`

	Warnings     []warning.Warning      `json:"warnings"`
	AssemblyTree []assembly.TreeNode    `json:"assemblyTree"`
	NodeMap      assembly.MappedNodeMap `json:"nodeMap"`
	BomSummary   []assembly.BomLine     `json:"bomSummary"`
}

// SourceInfo describes the input document.
type SourceInfo struct {
	Filename string        `json:"filename,omitempty"`
	Format   kernel.Format `json:"format"`
	Size     int           `json:"size"`
}

// OutputInfo describes the produced geometry.
type OutputInfo struct {
	Format kernel.OutputFormat `json:"format"`

	// Digest is the hex BLAKE3 hash of the measured GLB, before
	// metadata embedding.
	Digest string `json:"digest"`
}

// UnitInfo reports length units. Empty means undeclared.
type UnitInfo struct {
	Input  string `json:"input,omitempty"`
	Output string `json:"output,omitempty"`
}

// TessellationInfo records how the accepted mesh was produced.
type TessellationInfo struct {
	Requested mesh.Params `json:"requested"`
	Applied   mesh.Params `json:"applied"`
	Attempts  int         `json:"attempts"`
	Exploded  bool        `json:"exploded"`
}

// Result is the outcome of a conversion.
type Result struct {
	// Output holds the buffers of the requested format. For GLB it is
	// PatchedGLB when metadata was embedded, GLB otherwise.
	Output kernel.WriteResult

	// GLB is the accepted tessellation as written by the kernel.
	GLB []byte

	// PatchedGLB is GLB with Metadata embedded, or nil.
	PatchedGLB []byte

	Stats    glb.GeometryStats
	Warnings []warning.Warning
	Metadata ConversionMetadata

	// Cached is true when the result came from the cache.
	Cached bool
}
