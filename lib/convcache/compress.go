// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package convcache

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/bureau-foundation/cadconv/lib/glb"
)

// Compression identifies the codec of a stored blob. The values are
// persisted in cache records.
type Compression uint8

const (
	CompressionNone Compression = 0

	// CompressionLZ4 is LZ4 block compression: fast, modest ratio.
	// Chosen for vertex-heavy binary data.
	CompressionLZ4 Compression = 1

	// CompressionZstd is zstd at the default level. Chosen for JSON
	// and text outputs.
	CompressionZstd Compression = 2
)

// CompressionAuto is the configuration value that selects a codec per
// blob. It is never stored.
const CompressionAuto = "auto"

// String returns the configuration name of c.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a codec name. "auto" is not a codec; callers
// handle it before parsing.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

// errIncompressible is returned when compressed output would not be
// smaller than the input. The caller stores the blob uncompressed.
var errIncompressible = errors.New("data is incompressible")

// zstdEncoder and zstdDecoder are shared; both are safe for concurrent
// use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("convcache: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("convcache: zstd decoder initialization failed: " + err.Error())
	}
}

func compress(data []byte, codec Compression) ([]byte, error) {
	switch codec {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		destination := make([]byte, lz4.CompressBlockBound(len(data)))
		written, err := lz4.CompressBlock(data, destination, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		// CompressBlock reports 0 for incompressible input.
		if written == 0 || written >= len(data) {
			return nil, errIncompressible
		}
		return destination[:written], nil
	case CompressionZstd:
		compressed := zstdEncoder.EncodeAll(data, nil)
		if len(compressed) >= len(data) {
			return nil, errIncompressible
		}
		return compressed, nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", codec)
	}
}

// decompress reverses compress. The result must be exactly size bytes.
func decompress(compressed []byte, codec Compression, size int) ([]byte, error) {
	switch codec {
	case CompressionNone:
		if len(compressed) != size {
			return nil, fmt.Errorf("uncompressed blob is %d bytes, want %d", len(compressed), size)
		}
		return compressed, nil
	case CompressionLZ4:
		destination := make([]byte, size)
		read, err := lz4.UncompressBlock(compressed, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != size {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, want %d", read, size)
		}
		return destination, nil
	case CompressionZstd:
		result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(result) != size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, want %d", len(result), size)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", codec)
	}
}

// selectCompression picks a codec for data. A GLB whose JSON chunk is
// at least half the container goes straight to zstd; other data is
// probed with zstd: a ratio of 1.5 or better selects zstd, 1.1 or
// better LZ4, anything less none.
func selectCompression(data []byte) Compression {
	if len(data) == 0 {
		return CompressionNone
	}
	if container, err := glb.Parse(data); err == nil {
		if index := container.JSONChunkIndex(); index >= 0 && 2*len(container.Chunks[index].Data) >= len(data) {
			return CompressionZstd
		}
	}

	compressed := zstdEncoder.EncodeAll(data, nil)
	ratio := float64(len(data)) / float64(len(compressed))
	switch {
	case ratio >= 1.5:
		return CompressionZstd
	case ratio >= 1.1:
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// compressBlob compresses data with the configured codec, or the
// selected one when configured is CompressionAuto. Incompressible data
// falls back to CompressionNone.
func compressBlob(data []byte, configured string) ([]byte, Compression, error) {
	var codec Compression
	if configured == "" || configured == CompressionAuto {
		codec = selectCompression(data)
	} else {
		parsed, err := ParseCompression(configured)
		if err != nil {
			return nil, 0, err
		}
		codec = parsed
	}

	compressed, err := compress(data, codec)
	if errors.Is(err, errIncompressible) {
		return data, CompressionNone, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return compressed, codec, nil
}
