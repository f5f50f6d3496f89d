// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package convert

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/cadconv/lib/assembly"
	"github.com/bureau-foundation/cadconv/lib/clock"
	"github.com/bureau-foundation/cadconv/lib/convcache"
	"github.com/bureau-foundation/cadconv/lib/converr"
	"github.com/bureau-foundation/cadconv/lib/glb"
	"github.com/bureau-foundation/cadconv/lib/kernel"
	"github.com/bureau-foundation/cadconv/lib/label"
	"github.com/bureau-foundation/cadconv/lib/mesh"
	"github.com/bureau-foundation/cadconv/lib/version"
	"github.com/bureau-foundation/cadconv/lib/warning"
)

// ResultCache stores conversion results. *convcache.Cache implements
// it.
type ResultCache interface {
	Get(ctx context.Context, key convcache.Key) (*convcache.Value, bool, error)
	Put(ctx context.Context, key convcache.Key, value convcache.Value) error
}

var _ ResultCache = (*convcache.Cache)(nil)

// Config configures a Converter.
type Config struct {
	// Kernel is required.
	Kernel kernel.Kernel

	// Cache is optional.
	Cache ResultCache

	// Metrics is optional.
	Metrics *Metrics

	// Clock times conversions and stamps metadata. Nil means
	// clock.Real().
	Clock clock.Clock

	// Logger receives one record per conversion step of interest.
	// Nil discards.
	Logger *slog.Logger

	// NewID generates conversion ids. Nil means uuid.NewString.
	NewID func() string
}

// ErrNoKernel is returned by New when Config.Kernel is nil.
var ErrNoKernel = errors.New("convert: Kernel is required")

// Converter runs conversions against one kernel.
type Converter struct {
	kernel  kernel.Kernel
	cache   ResultCache
	metrics *Metrics
	clock   clock.Clock
	logger  *slog.Logger
	newID   func() string
}

// New returns a Converter. It fails only when config.Kernel is nil.
func New(config Config) (*Converter, error) {
	if config.Kernel == nil {
		return nil, ErrNoKernel
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	newID := config.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Converter{
		kernel:  config.Kernel,
		cache:   config.Cache,
		metrics: config.Metrics,
		clock:   clk,
		logger:  logger,
		newID:   newID,
	}, nil
}

// Convert runs one conversion. See the package documentation for the
// steps.
func (c *Converter) Convert(ctx context.Context, request Request) (result *Result, err error) {
	start := c.clock.Now()
	formatLabel := string(kernel.OutputGLB)
	if request.Options.OutputFormat != "" {
		formatLabel = "unknown"
		if parsed, parseErr := kernel.ParseOutputFormat(string(request.Options.OutputFormat)); parseErr == nil {
			formatLabel = string(parsed)
		}
	}
	defer func() {
		status := statusOK
		switch {
		case err != nil && converr.IsValidation(err):
			status = statusValidationError
		case err != nil && converr.IsConversion(err):
			status = statusConversionError
		case err != nil:
			status = statusError
		case result.Cached:
			status = statusCached
		}
		c.metrics.recordConversion(formatLabel, status, clock.Since(c.clock, start))
	}()

	options, err := request.normalize()
	if err != nil {
		return nil, err
	}
	logger := c.logger.With(
		"filename", request.Filename,
		"format", string(options.Format),
		"output_format", formatLabel,
	)

	var warnings warning.Log
	var key convcache.Key
	useCache := c.cache != nil
	if useCache {
		key, err = convcache.KeyFor(request.Input, newCacheKey(request.Filename, options))
		if err != nil {
			return nil, fmt.Errorf("convert: %w", err)
		}
		cached, hit, lookupErr := c.cache.Get(ctx, key)
		switch {
		case lookupErr != nil:
			c.metrics.recordCacheLookup("error")
			logger.Warn("cache lookup failed", "error", lookupErr)
			warnings.Addf(warning.CacheFailure, map[string]any{"operation": "get"},
				"result cache lookup failed: %v", lookupErr)
		case hit:
			c.metrics.recordCacheLookup("hit")
			restored, restoreErr := resultFromCache(cached, options)
			if restoreErr == nil {
				logger.Info("conversion served from cache", "key", key.String())
				return restored, nil
			}
			logger.Warn("cached result unusable", "key", key.String(), "error", restoreErr)
			warnings.Addf(warning.CacheFailure, map[string]any{"operation": "decode"},
				"cached result unusable: %v", restoreErr)
		default:
			c.metrics.recordCacheLookup("miss")
		}
	}

	result, err = c.convert(ctx, request, options, &warnings, logger)
	if err != nil {
		logger.Warn("conversion failed", "error", err, "code", converr.CodeOf(err))
		return nil, err
	}

	if useCache {
		value, putErr := valueForCache(result, options)
		if putErr == nil {
			putErr = c.cache.Put(ctx, key, value)
		}
		if putErr != nil {
			logger.Warn("cache store failed", "error", putErr)
			result.Warnings = append(result.Warnings, warning.New(warning.CacheFailure,
				map[string]any{"operation": "put"}, "result cache store failed: %v", putErr))
		}
	}

	logger.Info("conversion complete",
		"conversion_id", result.Metadata.ConversionID,
		"triangles", result.Stats.Triangles,
		"primitives", result.Stats.PrimitiveCount,
		"warnings", len(result.Warnings),
	)
	return result, nil
}

// convert runs the uncached pipeline.
func (c *Converter) convert(ctx context.Context, request Request, options Options, warnings *warning.Log, logger *slog.Logger) (*Result, error) {
	document, err := c.kernel.ReadDocument(ctx, request.Input, options.Format, options.Read)
	if err != nil {
		return nil, converr.Conversion("convert/read-failed", err, "reading %s document", options.Format)
	}
	defer func() {
		if closeErr := document.Close(); closeErr != nil {
			logger.Warn("closing kernel document", "error", closeErr)
		}
	}()

	if options.Mesh.Relative {
		warnings.Addf(warning.RelativeDeflectionIgnored, nil,
			"relative deflection is not supported; using absolute linear deflection %g", options.Mesh.LinearDeflection)
	}

	writeOptions := kernel.WriteOptions{LinearUnit: options.LinearUnit}
	outcome, err := mesh.Retry(ctx, kernel.NewMesher(c.kernel, document, writeOptions), mesh.RetryOptions{
		Base:       options.Mesh,
		Attempts:   options.Attempts,
		Thresholds: options.Thresholds,
		OnAttempt:  func(attempt mesh.Attempt) { c.metrics.recordAttempt(attempt.Exploded) },
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	for _, w := range outcome.Warnings {
		warnings.Add(w)
	}
	c.metrics.recordTriangles(outcome.Stats.Triangles)

	container, err := glb.Parse(outcome.GLB)
	if err != nil {
		return nil, converr.Conversion("convert/invalid-glb", err, "kernel GLB output")
	}
	if err := container.Validate(); err != nil {
		warnings.Addf(warning.NonconformingContainer, map[string]any{"code": converr.CodeOf(err)},
			"kernel GLB output has a nonconforming chunk layout: %v", err)
	}
	gltf, _, err := container.Document()
	if err != nil {
		return nil, converr.Conversion("convert/invalid-glb", err, "kernel GLB JSON chunk")
	}
	bin, _ := container.BIN()

	var bounds *glb.Bounds
	computed, err := glb.ComputeDocumentBounds(gltf, bin)
	switch {
	case err == nil:
		bounds = &computed
	case options.AllowMissingBounds:
		warnings.Addf(warning.BoundsUnavailable, map[string]any{"code": converr.CodeOf(err)},
			"bounds unavailable: %v", err)
	default:
		return nil, converr.Conversion("convert/bounds-failed", err, "")
	}

	rawNodes, err := c.kernel.BuildRawNodeMap(ctx, document, options.NameOverrides)
	if err != nil {
		return nil, converr.Conversion("convert/node-map-failed", err, "")
	}
	for _, dangling := range rawNodes.DanglingRefs() {
		warnings.Addf(warning.DanglingChild,
			map[string]any{"parentId": dangling.ParentID, "childId": dangling.ChildID},
			"node map references missing node %q", dangling.ChildID)
	}
	mapped, err := assembly.BuildMappedNodeMapFromIndex(rawNodes, label.BuildIndexFromDocument(gltf))
	if err != nil {
		return nil, err
	}

	bom, err := c.kernel.BuildRawBom(ctx, document, options.NameOverrides)
	if err != nil {
		warnings.Addf(warning.BomUnavailable, nil,
			"kernel BOM export failed, aggregating the node map instead: %v", err)
		bom = assembly.BuildBom(rawNodes)
	}

	digest := blake3.Sum256(outcome.GLB)
	metadata := ConversionMetadata{
		ConversionID:     c.newID(),
		Generator:        Generator,
		GeneratorVersion: version.Short(),
		CreatedAt:        c.clock.Now().UTC(),
		Source: SourceInfo{
			Filename: request.Filename,
			Format:   options.Format,
			Size:     len(request.Input),
		},
		Output: OutputInfo{Format: options.OutputFormat, Digest: hex.EncodeToString(digest[:])},
		Units:  UnitInfo{Input: document.LengthUnit(), Output: options.LinearUnit},
		MeshStats: outcome.Stats,
		Tessellation: TessellationInfo{
			Requested: options.Mesh,
			Applied:   outcome.Params,
			Attempts:  len(outcome.Attempts),
			Exploded:  outcome.Exploded,
		},
		Bounds:       bounds,
		AssemblyTree: assembly.BuildTree(rawNodes),
		NodeMap:      mapped,
		BomSummary:   assembly.BuildBomSummary(bom, mapped),
	}
	if metadata.Units.Output == "" {
		metadata.Units.Output = metadata.Units.Input
	}
	metadata.Warnings = warnings.List()

	result := &Result{
		GLB:      outcome.GLB,
		Stats:    outcome.Stats,
		Warnings: metadata.Warnings,
		Metadata: metadata,
	}
	if options.EmbedMetadata {
		patched, err := glb.InjectExtras(outcome.GLB, map[string]any{ExtrasKey: metadata})
		if err != nil {
			return nil, converr.Conversion("convert/embed-failed", err, "")
		}
		result.PatchedGLB = patched
	}

	switch options.OutputFormat {
	case kernel.OutputGLB:
		result.Output = kernel.WriteResult{GLB: result.GLB}
		if result.PatchedGLB != nil {
			result.Output.GLB = result.PatchedGLB
		}
	default:
		// The document still holds the accepted tessellation: it was
		// the last one triangulated.
		written, err := c.kernel.WriteBuffer(ctx, document, options.OutputFormat, writeOptions)
		if err != nil {
			return nil, converr.Conversion("convert/write-failed", err, "writing %s", options.OutputFormat)
		}
		if !hasOutput(written, options.OutputFormat) {
			return nil, converr.Conversion("convert/write-failed", nil, "kernel returned no %s output", options.OutputFormat)
		}
		result.Output = written
	}
	return result, nil
}

func hasOutput(written kernel.WriteResult, format kernel.OutputFormat) bool {
	switch format {
	case kernel.OutputGLTF:
		return len(written.GLTF) > 0
	case kernel.OutputOBJ:
		return len(written.OBJ) > 0
	default:
		return len(written.GLB) > 0
	}
}

// Cache output names.
const (
	cachedGLB     = "glb"
	cachedPatched = "patched"
	cachedGLTF    = "gltf"
	cachedBIN     = "bin"
	cachedOBJ     = "obj"
)

func valueForCache(result *Result, options Options) (convcache.Value, error) {
	outputs := map[string][]byte{cachedGLB: result.GLB}
	if result.PatchedGLB != nil {
		outputs[cachedPatched] = result.PatchedGLB
	}
	switch options.OutputFormat {
	case kernel.OutputGLTF:
		outputs[cachedGLTF] = result.Output.GLTF
		if len(result.Output.BIN) > 0 {
			outputs[cachedBIN] = result.Output.BIN
		}
	case kernel.OutputOBJ:
		outputs[cachedOBJ] = result.Output.OBJ
	}
	encoded, err := json.Marshal(result.Metadata)
	if err != nil {
		return convcache.Value{}, fmt.Errorf("convert: encoding metadata for cache: %w", err)
	}
	return convcache.Value{Outputs: outputs, Metadata: encoded, Triangles: result.Stats.Triangles}, nil
}

var errIncompleteCacheEntry = errors.New("convert: cached entry lacks outputs")

func resultFromCache(value *convcache.Value, options Options) (*Result, error) {
	var metadata ConversionMetadata
	if err := json.Unmarshal(value.Metadata, &metadata); err != nil {
		return nil, fmt.Errorf("convert: decoding cached metadata: %w", err)
	}
	result := &Result{
		GLB:        value.Outputs[cachedGLB],
		PatchedGLB: value.Outputs[cachedPatched],
		Stats:      metadata.MeshStats,
		Warnings:   metadata.Warnings,
		Metadata:   metadata,
		Cached:     true,
	}
	if len(result.GLB) == 0 || (options.EmbedMetadata && len(result.PatchedGLB) == 0) {
		return nil, errIncompleteCacheEntry
	}
	switch options.OutputFormat {
	case kernel.OutputGLTF:
		result.Output = kernel.WriteResult{GLTF: value.Outputs[cachedGLTF], BIN: value.Outputs[cachedBIN]}
	case kernel.OutputOBJ:
		result.Output = kernel.WriteResult{OBJ: value.Outputs[cachedOBJ]}
	default:
		result.Output = kernel.WriteResult{GLB: result.GLB}
		if result.PatchedGLB != nil {
			result.Output.GLB = result.PatchedGLB
		}
	}
	if !hasOutput(result.Output, options.OutputFormat) {
		return nil, errIncompleteCacheEntry
	}
	return result, nil
}
