// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package convcache

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/cadconv/lib/codec"
)

// Key addresses one cache entry. It is a 32-byte BLAKE3 digest.
type Key [32]byte

// Digest is a BLAKE3 digest of an uncompressed blob.
type Digest [32]byte

type domainKey [32]byte

// Domain separation keys: the ASCII domain name, zero-padded to 32
// bytes. Changing one invalidates every hash in that domain.
var (
	keyDomainKey = domainKey{
		'c', 'a', 'd', 'c', 'o', 'n', 'v', '.', 'c', 'a', 'c', 'h', 'e', '.', 'k', 'e',
		'y', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	blobDomainKey = domainKey{
		'c', 'a', 'd', 'c', 'o', 'n', 'v', '.', 'c', 'a', 'c', 'h', 'e', '.', 'b', 'l',
		'o', 'b', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// KeyFor derives the cache key of converting input with options.
// options must encode deterministically: structs and string-keyed
// maps of plain values do.
func KeyFor(input []byte, options any) (Key, error) {
	encoded, err := codec.Marshal(options)
	if err != nil {
		return Key{}, fmt.Errorf("convcache: encoding key options: %w", err)
	}

	hasher := newKeyedHasher(keyDomainKey)
	var length [8]byte
	binary.LittleEndian.PutUint64(length[:], uint64(len(input)))
	hasher.Write(length[:])
	hasher.Write(input)
	hasher.Write(encoded)

	var key Key
	copy(key[:], hasher.Sum(nil))
	return key, nil
}

// String returns the hex encoding of the key.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// ParseKey parses a 64-character hex key.
func ParseKey(text string) (Key, error) {
	var key Key
	decoded, err := hex.DecodeString(text)
	if err != nil {
		return key, fmt.Errorf("parsing cache key: %w", err)
	}
	if len(decoded) != len(key) {
		return key, fmt.Errorf("cache key is %d bytes, want %d", len(decoded), len(key))
	}
	copy(key[:], decoded)
	return key, nil
}

func digestBlob(data []byte) Digest {
	hasher := newKeyedHasher(blobDomainKey)
	hasher.Write(data)
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}

func newKeyedHasher(key domainKey) *blake3.Hasher {
	// NewKeyed only fails for a key that is not 32 bytes.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("convcache: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}
