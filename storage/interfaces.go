package storage

import (
	"context"
	"time"
)

// CacheEntry is one cached upstream response, keyed by the checksum of the
// raw lookup material. RawKey keeps the pre-hash key for diagnostics.
type CacheEntry struct {
	Key       string
	RawKey    string
	Details   string
	UpdatedAt time.Time
}

// CacheRepository provides operations for the checksum-keyed response cache.
// Implementations must be thread-safe.
type CacheRepository interface {
	// GetCacheEntry retrieves an entry by its checksum key.
	// Returns ErrNotFound if no entry exists.
	GetCacheEntry(ctx context.Context, key string) (*CacheEntry, error)

	// PutCacheEntry inserts or replaces an entry. The UpdatedAt timestamp is
	// refreshed on every write.
	PutCacheEntry(ctx context.Context, entry *CacheEntry) error

	// Close releases resources held by the repository.
	Close() error
}
