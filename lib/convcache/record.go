// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package convcache

import (
	"fmt"
	"os"
	"path/filepath"
)

// blobRecord describes one stored output.
type blobRecord struct {
	Name           string      `cbor:"name"`
	Compression    Compression `cbor:"compression"`
	Size           int64       `cbor:"size"`
	CompressedSize int64       `cbor:"compressed_size"`
	Digest         Digest      `cbor:"digest"`
}

// record is the CBOR file describing an entry.
type record struct {
	Key       Key          `cbor:"key"`
	Blobs     []blobRecord `cbor:"blobs"`
	Metadata  []byte       `cbor:"metadata,omitempty"`
	Triangles int          `cbor:"triangles"`

	// StoredAt is Unix nanoseconds.
	StoredAt int64 `cbor:"stored_at"`
}

// validOutputName reports whether name can be embedded in a blob file
// name: lowercase ASCII letters, digits, '-' and '_'.
func validOutputName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// shardDir returns <root>/<hex[:2]>/<hex[2:4]>.
func shardDir(root string, key Key) string {
	hex := key.String()
	return filepath.Join(root, hex[:2], hex[2:4])
}

func recordPath(root string, key Key) string {
	return filepath.Join(shardDir(root, key), key.String()+".cbor")
}

func blobPath(root string, key Key, name string) string {
	return filepath.Join(shardDir(root, key), key.String()+"."+name+".blob")
}

// writeFileAtomic writes data to a temporary file under root and
// renames it to path, creating path's directory.
func writeFileAtomic(root, path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating shard directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(root, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming to %s: %w", path, err)
	}

	success = true
	return nil
}

// removeEntryFiles deletes the record and every blob of key. Missing
// files are not an error.
func removeEntryFiles(root string, key Key) error {
	matches, err := filepath.Glob(filepath.Join(shardDir(root, key), key.String()+".*"))
	if err != nil {
		return err
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}
	return nil
}
