package core

import (
	"encoding/hex"
	"fmt"

	"github.com/go-crypt/x/blake2b"
)

// CacheKey derives a deterministic cache key from raw lookup material using
// BLAKE2b hashing. The raw length is appended so that truncated-digest
// collisions between inputs of different sizes stay distinguishable.
func CacheKey(raw string) string {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write([]byte(raw))
	sum := h.Sum(nil)
	return fmt.Sprintf("%s.%d", hex.EncodeToString(sum), len(raw))
}
