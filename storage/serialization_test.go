package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheEntryRoundTrip(t *testing.T) {
	entry := &CacheEntry{
		Key:       "9f2c1a.38",
		RawKey:    "https://jira.example.com|project = TFX",
		Details:   `{"issues":[{"key":"TFX-1"}]}`,
		UpdatedAt: time.Date(2025, 6, 23, 16, 0, 0, 123456000, time.UTC),
	}

	data := MarshalCacheEntry(entry)
	require.NotEmpty(t, data)
	assert.Len(t, data, CacheEntryMUS.Size(*entry))

	got, err := UnmarshalCacheEntry(data)
	require.NoError(t, err)
	assert.Equal(t, entry.Key, got.Key)
	assert.Equal(t, entry.RawKey, got.RawKey)
	assert.Equal(t, entry.Details, got.Details)
	assert.True(t, entry.UpdatedAt.Equal(got.UpdatedAt), "timestamps should survive the round trip")
}

func TestCacheEntryUnmarshalTruncated(t *testing.T) {
	entry := &CacheEntry{Key: "k", RawKey: "raw", Details: "details", UpdatedAt: time.Now().UTC()}
	data := MarshalCacheEntry(entry)

	_, err := UnmarshalCacheEntry(data[:3])
	assert.Error(t, err)
}

func TestCacheEntrySkip(t *testing.T) {
	entry := CacheEntry{Key: "k", RawKey: "raw", Details: "details", UpdatedAt: time.Now().UTC()}
	data := MarshalCacheEntry(&entry)

	n, err := CacheEntryMUS.Skip(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
}
