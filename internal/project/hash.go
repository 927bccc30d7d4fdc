package project

import "crypto/sha256"

// Digest is a fixed 256-bit content hash, used as the disk cache key.
type Digest [32]byte

// HashBytes computes the digest of a source file's raw content.
func HashBytes(content []byte) Digest {
	var out Digest
	sum := sha256.Sum256(content)
	copy(out[:], sum[:])
	return out
}
