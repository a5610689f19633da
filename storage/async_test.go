package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryCacheRepo is a map-backed CacheRepository for tests.
type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string]*CacheEntry
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: make(map[string]*CacheEntry)}
}

func (r *memoryCacheRepo) GetCacheEntry(_ context.Context, key string) (*CacheEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

func (r *memoryCacheRepo) PutCacheEntry(_ context.Context, entry *CacheEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.Key] = entry
	return nil
}

func (r *memoryCacheRepo) Close() error { return nil }

func TestAsyncCacheWriterPersistsEntries(t *testing.T) {
	repo := newMemoryCacheRepo()
	w := NewAsyncCacheWriter(repo, 8, nil)

	require.NoError(t, w.Publish(&CacheEntry{Key: "a", Details: "one"}))
	require.NoError(t, w.Publish(&CacheEntry{Key: "b", Details: "two"}))

	require.Eventually(t, func() bool {
		_, errA := repo.GetCacheEntry(context.Background(), "a")
		_, errB := repo.GetCacheEntry(context.Background(), "b")
		return errA == nil && errB == nil
	}, time.Second, 5*time.Millisecond)
}

func TestAsyncCacheWriterCloseDrains(t *testing.T) {
	repo := newMemoryCacheRepo()
	w := NewAsyncCacheWriter(repo, 64, nil)

	for i := 0; i < 50; i++ {
		require.NoError(t, w.Publish(&CacheEntry{Key: string(rune('a' + i%26)), Details: "x"}))
	}
	require.NoError(t, w.Close())

	// Everything buffered before Close must have been written.
	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.NotEmpty(t, repo.entries)
}

func TestAsyncCacheWriterPublishAfterClose(t *testing.T) {
	w := NewAsyncCacheWriter(newMemoryCacheRepo(), 1, nil)
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Publish(&CacheEntry{Key: "late"}), ErrWriterClosed)
	// Close is idempotent.
	assert.NoError(t, w.Close())
}
