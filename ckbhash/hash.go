// Package ckbhash implements the blake2b-256 hash used throughout CKB for
// transaction hashes, script hashes, signing messages and lock args.
package ckbhash

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"strings"

	"github.com/minio/blake2b-simd"
)

const (
	// HashSize is the size in bytes of a ckbhash digest.
	HashSize = 32

	// Blake160Size is the size of a truncated hash used as a lock arg.
	Blake160Size = 20
)

// personalization is the blake2b personalization string CKB uses for every
// hash it computes.
var personalization = []byte("ckb-default-hash")

// Hash is a 32-byte blake2b digest.
type Hash [HashSize]byte

// ZeroHash is the all zero hash.
var ZeroHash Hash

// String returns the 0x prefixed hex encoding of the hash.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// IsZero returns true if every byte of the hash is zero.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// MarshalJSON encodes the hash as a 0x prefixed hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a 0x prefixed hex string into the hash.
func (h *Hash) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	parsed, err := NewHashFromStr(s)
	if err != nil {
		return err
	}
	*h = *parsed

	return nil
}

// NewHashFromStr parses a hex string, with or without the 0x prefix, into a
// Hash.
func NewHashFromStr(s string) (*Hash, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(b) != HashSize {
		return nil, fmt.Errorf("invalid hash length %d, want %d",
			len(b), HashSize)
	}

	var h Hash
	copy(h[:], b)

	return &h, nil
}

// MustHashFromStr is like NewHashFromStr but panics on invalid input. It is
// meant for package level constants.
func MustHashFromStr(s string) Hash {
	h, err := NewHashFromStr(s)
	if err != nil {
		panic(err)
	}

	return *h
}

// NewHasher returns a streaming blake2b-256 hasher with the CKB
// personalization.
func NewHasher() hash.Hash {
	h, err := blake2b.New(&blake2b.Config{
		Size:   HashSize,
		Person: personalization,
	})
	if err != nil {
		// The config is static and always valid.
		panic(err)
	}

	return h
}

// Blake2b256 hashes the concatenation of the given byte slices.
func Blake2b256(data ...[]byte) Hash {
	hasher := NewHasher()
	for _, d := range data {
		_, _ = hasher.Write(d)
	}

	var h Hash
	copy(h[:], hasher.Sum(nil))

	return h
}

// Blake160 returns the first 20 bytes of the blake2b-256 hash of data.
func Blake160(data []byte) [Blake160Size]byte {
	h := Blake2b256(data)

	var out [Blake160Size]byte
	copy(out[:], h[:Blake160Size])

	return out
}
