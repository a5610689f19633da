// Copyright 2025 Calyptra Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// CacheEntryMUS is the MUS serializer for CacheEntry values.
// UpdatedAt is encoded as a Unix-microsecond integer.
var CacheEntryMUS = cacheEntrySer{}

type cacheEntrySer struct{}

func (cacheEntrySer) Marshal(e CacheEntry, bs []byte) (n int) {
	n = ord.String.Marshal(e.Key, bs)
	n += ord.String.Marshal(e.RawKey, bs[n:])
	n += ord.String.Marshal(e.Details, bs[n:])
	n += varint.Int64.Marshal(e.UpdatedAt.UnixMicro(), bs[n:])
	return n
}

func (cacheEntrySer) Unmarshal(bs []byte) (e CacheEntry, n int, err error) {
	var n1 int
	e.Key, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	e.RawKey, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.Details, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micro int64
	micro, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.UpdatedAt = time.UnixMicro(micro).UTC()
	return
}

func (cacheEntrySer) Size(e CacheEntry) (size int) {
	size = ord.String.Size(e.Key)
	size += ord.String.Size(e.RawKey)
	size += ord.String.Size(e.Details)
	size += varint.Int64.Size(e.UpdatedAt.UnixMicro())
	return size
}

func (cacheEntrySer) Skip(bs []byte) (n int, err error) {
	var n1 int
	for i := 0; i < 3; i++ {
		n1, err = ord.String.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	n1, err = varint.Int64.Skip(bs[n:])
	n += n1
	return
}

// MarshalCacheEntry serializes a CacheEntry to bytes.
func MarshalCacheEntry(entry *CacheEntry) []byte {
	buf := make([]byte, CacheEntryMUS.Size(*entry))
	CacheEntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalCacheEntry deserializes a CacheEntry from bytes.
func UnmarshalCacheEntry(data []byte) (*CacheEntry, error) {
	entry, _, err := CacheEntryMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
