package badger

import (
	"context"
	"errors"
	"time"

	"github.com/calyptra/shipmark/storage"
	"github.com/dgraph-io/badger/v4"
)

// CacheRepository implements storage.CacheRepository for BadgerDB.
type CacheRepository struct {
	backend *Backend
}

var _ storage.CacheRepository = (*CacheRepository)(nil)

// NewCacheRepository creates a new CacheRepository on the given backend.
func NewCacheRepository(backend *Backend) (*CacheRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &CacheRepository{backend: backend}, nil
}

// Close is a no-op; the repository holds no resources beyond the backend.
func (r *CacheRepository) Close() error {
	return nil
}

// GetCacheEntry retrieves a cache entry by its checksum key.
func (r *CacheRepository) GetCacheEntry(ctx context.Context, key string) (*storage.CacheEntry, error) {
	var entry *storage.CacheEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCacheEntryKey(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			entry, err = storage.UnmarshalCacheEntry(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// PutCacheEntry inserts or replaces a cache entry, refreshing UpdatedAt.
func (r *CacheRepository) PutCacheEntry(ctx context.Context, entry *storage.CacheEntry) error {
	stored := *entry
	stored.UpdatedAt = time.Now().UTC()

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeCacheEntryKey(stored.Key)
		if err := tx.Set(key, storage.MarshalCacheEntry(&stored)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
