// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package convcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/bureau-foundation/cadconv/lib/clock"
	"github.com/bureau-foundation/cadconv/lib/codec"
)

// indexFile is the SQLite database name under the cache root.
const indexFile = "index.db"

// ErrInvalidOutputName is returned by Put for an output name that
// cannot be embedded in a file name.
var ErrInvalidOutputName = errors.New("convcache: invalid output name")

// Config configures Open.
type Config struct {
	// Root is the cache directory. It is created if missing.
	Root string

	// Compression is "auto" (the default), "none", "lz4", or "zstd".
	Compression string

	// PoolSize is the number of index connections. Zero means 4.
	PoolSize int

	// MaxBytes bounds the stored size. Put evicts least-recently-used
	// entries once the total exceeds it. Zero means unbounded.
	MaxBytes int64

	// Clock stamps store and access times. Nil means clock.Real().
	Clock clock.Clock

	// Logger receives evictions and corrupt-entry reports. Nil
	// discards.
	Logger *slog.Logger
}

// Value is the content of one entry.
type Value struct {
	// Outputs are named buffers ("glb", "gltf", "bin", "obj", ...).
	Outputs map[string][]byte

	// Metadata is stored inline in the record, uncompressed.
	Metadata []byte

	Triangles int
}

// Stats summarizes the index.
type Stats struct {
	Entries        int64 `json:"entries"`
	Size           int64 `json:"size"`
	CompressedSize int64 `json:"compressedSize"`
	Hits           int64 `json:"hits"`
}

// PruneResult reports what Prune evicted.
type PruneResult struct {
	Removed int   `json:"removed"`
	Freed   int64 `json:"freed"`
}

// Cache is an on-disk conversion result cache.
type Cache struct {
	root        string
	compression string
	maxBytes    int64
	clock       clock.Clock
	logger      *slog.Logger
	index       *index
}

// Open opens or creates the cache at config.Root. The caller must call
// Close.
func Open(config Config) (*Cache, error) {
	if config.Root == "" {
		return nil, fmt.Errorf("convcache: Root is required")
	}
	if config.Compression != "" && config.Compression != CompressionAuto {
		if _, err := ParseCompression(config.Compression); err != nil {
			return nil, fmt.Errorf("convcache: %w", err)
		}
	}
	if config.MaxBytes < 0 {
		return nil, fmt.Errorf("convcache: MaxBytes must not be negative, got %d", config.MaxBytes)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	if err := os.MkdirAll(config.Root, 0o755); err != nil {
		return nil, fmt.Errorf("convcache: creating %s: %w", config.Root, err)
	}
	idx, err := openIndex(filepath.Join(config.Root, indexFile), config.PoolSize, logger)
	if err != nil {
		return nil, err
	}
	return &Cache{
		root:        config.Root,
		compression: config.Compression,
		maxBytes:    config.MaxBytes,
		clock:       clk,
		logger:      logger,
		index:       idx,
	}, nil
}

// Close closes the index. Blocks until in-flight operations return
// their connections.
func (c *Cache) Close() error {
	return c.index.close()
}

// Put stores value under key, replacing any existing entry. With a
// MaxBytes budget, Put then prunes down to it. The new entry is the most
// recently used, so it is evicted only when it alone exceeds the budget.
func (c *Cache) Put(ctx context.Context, key Key, value Value) error {
	names := slices.Sorted(maps.Keys(value.Outputs))
	for _, name := range names {
		if !validOutputName(name) {
			return fmt.Errorf("%w: %q", ErrInvalidOutputName, name)
		}
	}

	now := c.clock.Now().UnixNano()
	entry := record{Key: key, Metadata: value.Metadata, Triangles: value.Triangles, StoredAt: now}
	row := indexRow{Key: key.String(), Compression: CompressionNone.String(), Triangles: int64(value.Triangles),
		StoredAt: now, LastAccess: now}
	var largest int64 = -1

	for _, name := range names {
		data := value.Outputs[name]
		compressed, used, err := compressBlob(data, c.compression)
		if err != nil {
			return fmt.Errorf("convcache: compressing %s: %w", name, err)
		}
		if err := writeFileAtomic(c.root, blobPath(c.root, key, name), compressed); err != nil {
			return fmt.Errorf("convcache: storing %s: %w", name, err)
		}
		entry.Blobs = append(entry.Blobs, blobRecord{
			Name:           name,
			Compression:    used,
			Size:           int64(len(data)),
			CompressedSize: int64(len(compressed)),
			Digest:         digestBlob(data),
		})
		row.Size += int64(len(data))
		row.CompressedSize += int64(len(compressed))
		if int64(len(data)) > largest {
			largest = int64(len(data))
			row.Compression = used.String()
		}
	}

	encoded, err := codec.Marshal(entry)
	if err != nil {
		return fmt.Errorf("convcache: encoding record: %w", err)
	}
	row.CompressedSize += int64(len(encoded))
	if err := writeFileAtomic(c.root, recordPath(c.root, key), encoded); err != nil {
		return fmt.Errorf("convcache: storing record: %w", err)
	}
	if err := c.index.upsert(ctx, row); err != nil {
		return fmt.Errorf("convcache: indexing %s: %w", key, err)
	}
	if c.maxBytes > 0 {
		if _, err := c.Prune(ctx, c.maxBytes); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the entry stored under key. A missing entry is a miss.
// So is a corrupt one, which is removed. The error is non-nil only
// when the index itself fails.
func (c *Cache) Get(ctx context.Context, key Key) (*Value, bool, error) {
	data, err := os.ReadFile(recordPath(c.root, key))
	if errors.Is(err, os.ErrNotExist) {
		if err := c.index.remove(ctx, key.String()); err != nil {
			return nil, false, fmt.Errorf("convcache: %w", err)
		}
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("convcache: reading record %s: %w", key, err)
	}

	value, err := c.load(key, data)
	if err != nil {
		c.logger.Warn("removing corrupt cache entry",
			"key", key.String(),
			"error", err,
		)
		if err := c.remove(ctx, key); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	if err := c.index.touch(ctx, key.String(), c.clock.Now().UnixNano()); err != nil {
		return nil, false, fmt.Errorf("convcache: %w", err)
	}
	return value, true, nil
}

// load decodes a record and reads and verifies its blobs.
func (c *Cache) load(key Key, data []byte) (*Value, error) {
	var entry record
	if err := codec.Unmarshal(data, &entry); err != nil {
		if diagnostic, diagErr := codec.Diagnose(data); diagErr == nil && len(diagnostic) <= 256 {
			return nil, fmt.Errorf("decoding record %s: %w", diagnostic, err)
		}
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	if entry.Key != key {
		return nil, fmt.Errorf("record is for key %s", entry.Key)
	}

	value := &Value{
		Outputs:   make(map[string][]byte, len(entry.Blobs)),
		Metadata:  entry.Metadata,
		Triangles: entry.Triangles,
	}
	for _, blob := range entry.Blobs {
		if !validOutputName(blob.Name) {
			return nil, fmt.Errorf("record names invalid output %q", blob.Name)
		}
		compressed, err := os.ReadFile(blobPath(c.root, key, blob.Name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", blob.Name, err)
		}
		if int64(len(compressed)) != blob.CompressedSize {
			return nil, fmt.Errorf("%s is %d bytes, record says %d", blob.Name, len(compressed), blob.CompressedSize)
		}
		output, err := decompress(compressed, blob.Compression, int(blob.Size))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", blob.Name, err)
		}
		if digestBlob(output) != blob.Digest {
			return nil, fmt.Errorf("%s: digest mismatch", blob.Name)
		}
		value.Outputs[blob.Name] = output
	}
	return value, nil
}

// Delete removes the entry stored under key, if any.
func (c *Cache) Delete(ctx context.Context, key Key) error {
	return c.remove(ctx, key)
}

func (c *Cache) remove(ctx context.Context, key Key) error {
	if err := removeEntryFiles(c.root, key); err != nil {
		return fmt.Errorf("convcache: %w", err)
	}
	if err := c.index.remove(ctx, key.String()); err != nil {
		return fmt.Errorf("convcache: %w", err)
	}
	return nil
}

// Prune evicts least-recently-used entries until the stored size is at
// most maxBytes. Sizes are the on-disk sizes of blobs plus records.
func (c *Cache) Prune(ctx context.Context, maxBytes int64) (PruneResult, error) {
	rows, err := c.index.leastRecentlyUsed(ctx)
	if err != nil {
		return PruneResult{}, fmt.Errorf("convcache: listing entries: %w", err)
	}
	var total int64
	for _, row := range rows {
		total += row.CompressedSize
	}

	var result PruneResult
	for _, row := range rows {
		if total <= maxBytes {
			break
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		key, err := ParseKey(row.Key)
		if err != nil {
			return result, fmt.Errorf("convcache: index row: %w", err)
		}
		if err := c.remove(ctx, key); err != nil {
			return result, err
		}
		total -= row.CompressedSize
		result.Removed++
		result.Freed += row.CompressedSize
		c.logger.Info("evicted cache entry",
			"key", row.Key,
			"compressed_size", row.CompressedSize,
			"hits", row.Hits,
		)
	}
	return result, nil
}

// Stats reports index totals.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	stats, err := c.index.stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("convcache: %w", err)
	}
	return stats, nil
}
