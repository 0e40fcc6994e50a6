// Package cache provides the artifact cache used by the pipeline runner.
//
// Rendered artifacts are content-addressed: the key is derived from the
// canonical graph description, the source pixels and the encoding options,
// so a parameter change can never serve a stale result.
//
// # Backends
//
//   - [NullCache]: caching disabled
//   - [MemoryCache]: bounded in-process map, the "memory" backend of a long-running server
//   - [FileCache]: one file per entry, used by the CLI
//   - [RedisCache]: shared cache for several server instances
//
// [Compressed] wraps any backend and stores entries zstd-compressed.
//
// # Keys
//
// [Keyer] builds keys; [ScopedKeyer] prefixes them for namespace isolation.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values by key.
//
// Get returns (nil, false, nil) on a miss. Implementations must be safe for
// concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default time-to-live values.
const (
	// TTLArtifact is the lifetime of a rendered image.
	TTLArtifact = 7 * 24 * time.Hour

	// TTLPreview is the lifetime of a downscaled preview render.
	TTLPreview = 24 * time.Hour
)
