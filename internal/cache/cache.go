// Package cache provides the caching layers used around pure upstream calls:
// a per-request memory cache for retrieval results and a layered
// (memory+disk) cache for embeddings.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a versioned cache key by hashing the joined parts. Parts that
// may contain arbitrary text (prompts, embedding inputs) are safe here.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return "itemforge:v1:" + hex.EncodeToString(sum[:])
}
