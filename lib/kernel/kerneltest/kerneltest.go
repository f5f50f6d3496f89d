// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package kerneltest provides a scripted [kernel.Kernel] for tests.
//
// A [Fake] returns canned results and records every call:
//
//	fake := &kerneltest.Fake{
//		Unit:    "mm",
//		Outputs: [][]byte{explodedGLB, coarseGLB},
//		NodeMap: nodeMap,
//	}
//	converter, err := convert.New(convert.Config{Kernel: fake})
//
// Each Triangulate call advances to the next entry of Outputs; GLB
// writes return the current entry, and the last entry repeats once the
// script runs out.
package kerneltest

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/bureau-foundation/cadconv/lib/assembly"
	"github.com/bureau-foundation/cadconv/lib/kernel"
	"github.com/bureau-foundation/cadconv/lib/mesh"
)

// ErrNoOutputs is returned by GLB writes when Outputs is empty.
var ErrNoOutputs = errors.New("kerneltest: no scripted outputs")

// ReadCall records one ReadDocument call.
type ReadCall struct {
	Data    []byte
	Format  kernel.Format
	Options kernel.ReadOptions
}

// WriteCall records one WriteBuffer call.
type WriteCall struct {
	Format  kernel.OutputFormat
	Options kernel.WriteOptions
}

// Fake is a scripted kernel. Configure the exported fields before use;
// the recorded calls are read through the accessor methods.
type Fake struct {
	// Unit is returned by Document.LengthUnit.
	Unit string

	// Outputs are the GLB buffers written after successive
	// triangulations.
	Outputs [][]byte

	// GLTF, BIN and OBJ are returned for the non-GLB formats.
	GLTF []byte
	BIN  []byte
	OBJ  []byte

	NodeMap assembly.NodeMap
	Bom     assembly.BomExport

	ReadErr        error
	TriangulateErr error
	WriteErr       error
	NodeMapErr     error
	BomErr         error

	mu             sync.Mutex
	reads          []ReadCall
	triangulations []mesh.Params
	writes         []WriteCall
	overrides      []assembly.NameOverrides
	closed         int
}

var _ kernel.Kernel = (*Fake)(nil)

type document struct {
	fake *Fake
}

func (d *document) LengthUnit() string { return d.fake.Unit }

func (d *document) Close() error {
	d.fake.mu.Lock()
	defer d.fake.mu.Unlock()
	d.fake.closed++
	return nil
}

// ReadDocument records the call and returns a document, or ReadErr.
func (f *Fake) ReadDocument(_ context.Context, data []byte, format kernel.Format, options kernel.ReadOptions) (kernel.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, ReadCall{Data: data, Format: format, Options: options})
	if f.ReadErr != nil {
		return nil, f.ReadErr
	}
	return &document{fake: f}, nil
}

// Triangulate records the parameters and advances the output script.
func (f *Fake) Triangulate(_ context.Context, _ kernel.Document, params mesh.Params) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TriangulateErr != nil {
		return f.TriangulateErr
	}
	f.triangulations = append(f.triangulations, params)
	return nil
}

// WriteBuffer returns the scripted buffer for format.
func (f *Fake) WriteBuffer(_ context.Context, _ kernel.Document, format kernel.OutputFormat, options kernel.WriteOptions) (kernel.WriteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, WriteCall{Format: format, Options: options})
	if f.WriteErr != nil {
		return kernel.WriteResult{}, f.WriteErr
	}
	switch format {
	case kernel.OutputGLTF:
		return kernel.WriteResult{GLTF: f.GLTF, BIN: f.BIN}, nil
	case kernel.OutputOBJ:
		return kernel.WriteResult{OBJ: f.OBJ}, nil
	}
	if len(f.Outputs) == 0 {
		return kernel.WriteResult{}, ErrNoOutputs
	}
	index := min(max(len(f.triangulations), 1), len(f.Outputs)) - 1
	return kernel.WriteResult{GLB: f.Outputs[index]}, nil
}

// BuildRawNodeMap returns NodeMap with overrides applied to node names.
func (f *Fake) BuildRawNodeMap(_ context.Context, _ kernel.Document, overrides assembly.NameOverrides) (assembly.NodeMap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides = append(f.overrides, maps.Clone(overrides))
	if f.NodeMapErr != nil {
		return assembly.NodeMap{}, f.NodeMapErr
	}
	result := assembly.NodeMap{Roots: f.NodeMap.Roots, Nodes: make(map[string]assembly.Node, len(f.NodeMap.Nodes))}
	for id, node := range f.NodeMap.Nodes {
		if name, ok := overrides[node.LabelEntry]; ok {
			node.Name = name
		}
		result.Nodes[id] = node
	}
	return result, nil
}

// BuildRawBom returns Bom with overrides applied to product names.
func (f *Fake) BuildRawBom(_ context.Context, _ kernel.Document, overrides assembly.NameOverrides) (assembly.BomExport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BomErr != nil {
		return assembly.BomExport{}, f.BomErr
	}
	items := make([]assembly.BomItem, len(f.Bom.Items))
	for i, item := range f.Bom.Items {
		if name, ok := overrides[item.ProductID]; ok {
			item.ProductName = name
		}
		items[i] = item
	}
	return assembly.BomExport{Items: items}, nil
}

// Reads returns the recorded ReadDocument calls.
func (f *Fake) Reads() []ReadCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ReadCall(nil), f.reads...)
}

// Triangulations returns the parameters of every Triangulate call.
func (f *Fake) Triangulations() []mesh.Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mesh.Params(nil), f.triangulations...)
}

// Writes returns the recorded WriteBuffer calls.
func (f *Fake) Writes() []WriteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]WriteCall(nil), f.writes...)
}

// Overrides returns the name overrides passed to each BuildRawNodeMap
// call.
func (f *Fake) Overrides() []assembly.NameOverrides {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]assembly.NameOverrides(nil), f.overrides...)
}

// Closed returns how many documents were closed.
func (f *Fake) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
