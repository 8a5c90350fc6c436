// Package dedup implements perceptual-hash frame deduplication: the Dedup
// Gate that decides whether an incoming screen frame is equivalent to its
// predecessor.
package dedup

import (
	"encoding/base64"
	"encoding/binary"
)

// AverageHash is a 64-bit perceptual hash computed from an 8x8 grayscale
// downscale of a frame.
type AverageHash uint64

// Distance returns the Hamming distance between two hashes.
func (h AverageHash) Distance(other AverageHash) int {
	return popcount(uint64(h ^ other))
}

func popcount(x uint64) int {
	n := 0
	for x != 0 {
		x &= x - 1
		n++
	}
	return n
}

// ToBase64 serializes the hash as 8 little-endian bytes, base64-encoded.
func (h AverageHash) ToBase64() string {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(h))
	return base64.StdEncoding.EncodeToString(buf[:])
}

// AverageHashFromBase64 parses a hash previously produced by ToBase64.
// An invalid string yields ok=false rather than an error: hash parsing is
// a pure, non-fallible-by-contract operation used on trusted storage.
func AverageHashFromBase64(s string) (AverageHash, bool) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(b) != 8 {
		return 0, false
	}
	return AverageHash(binary.LittleEndian.Uint64(b)), true
}
