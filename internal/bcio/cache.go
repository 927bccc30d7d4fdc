package bcio

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"

	"hlbc/internal/project"
)

// cacheEntry is the on-disk envelope: the source digest alongside the
// already-verified, already-written module bytes, so a stale or
// corrupted cache file can be detected and discarded rather than
// silently trusted.
type cacheEntry struct {
	Digest  []byte `cbor:"digest"`
	Encoded []byte `cbor:"encoded"`
}

// cacheEncMode is canonical CBOR so two processes caching the same
// digest produce byte-identical cache files.
var cacheEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bcio: failed to create CBOR enc mode: %v", err))
	}
	cacheEncMode = em
}

// Cache is a disk cache of encoded modules keyed by the sha256 digest
// of their source text, letting `hlbc build` skip asm+verify+write for
// a file it has already compiled.
type Cache struct {
	dir string
}

// NewCache returns a cache rooted at dir. dir is created lazily on the
// first Store.
func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

func (c *Cache) pathFor(d project.Digest) string {
	return filepath.Join(c.dir, hex.EncodeToString(d[:])+".hlbcache")
}

// Load returns the cached encoded module for digest d, if present and
// not corrupted.
func (c *Cache) Load(d project.Digest) ([]byte, bool) {
	raw, err := os.ReadFile(c.pathFor(d))
	if err != nil {
		return nil, false
	}
	var e cacheEntry
	if err := cbor.Unmarshal(raw, &e); err != nil {
		return nil, false
	}
	if !bytes.Equal(e.Digest, d[:]) {
		return nil, false
	}
	return e.Encoded, true
}

// Store writes encoded under digest d, creating the cache directory if
// needed.
func (c *Cache) Store(d project.Digest, encoded []byte) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	raw, err := cacheEncMode.Marshal(&cacheEntry{Digest: d[:], Encoded: encoded})
	if err != nil {
		return err
	}
	return os.WriteFile(c.pathFor(d), raw, 0o644)
}
