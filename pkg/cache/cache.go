// Package cache stores sanitization results keyed by input hash, so repeated
// runs over the same diagram text skip the repair pipeline entirely. Backends
// cover CLI usage (files), service usage (redis), and disabled caching.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Cache is the backend contract. Get reports (data, found, error); a miss is
// not an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Hash computes the SHA-256 hex digest of data. The full 64-character string
// is used so distinct diagrams never collide.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Key builds a cache key for one sanitization input. scope namespaces keys
// that would otherwise collide, such as runs probed against different
// renderers; grammar is part of the key because the same text repairs
// differently under different grammars.
func Key(scope, grammar, text string) string {
	if scope == "" {
		scope = "default"
	}
	return fmt.Sprintf("mermaidfix:%s:%s:%s", scope, grammar, Hash([]byte(text)))
}
