package badger

import "fmt"

// Key prefixes for different data types
const (
	cacheEntryPrefix = "cachent"
)

// makeCacheEntryKey generates a key for a cache entry by its checksum key.
func makeCacheEntryKey(key string) []byte {
	return []byte(fmt.Sprintf("%s:%s", cacheEntryPrefix, key))
}
