// Package cache provides a bounded read cache for SSTable point
// lookups, generalizing the original engine's LRUCache (a
// capacity-bounded map plus intrusive doubly-linked list promoting the
// most recently touched entry to the front) onto a real generic LRU
// implementation instead of a hand-rolled list/map pair.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/siltkv/siltkv/internal/record"
)

// Cache is a fixed-capacity, least-recently-used cache of decoded
// records keyed by their on-disk key bytes. A nil *Cache is valid and
// behaves as if caching is disabled (every Get/Add is a no-op), so
// callers don't need a separate "enabled" check at every call site.
type Cache struct {
	inner *lru.Cache[string, record.Record]
}

// New returns a Cache holding at most capacity entries. A non-positive
// capacity disables caching: New returns nil rather than a
// zero-capacity cache, matching CacheMaxSize's "0 means off" contract.
func New(capacity int) *Cache {
	if capacity <= 0 {
		return nil
	}
	inner, err := lru.New[string, record.Record](capacity)
	if err != nil {
		// Only returned by the library for capacity <= 0, already
		// excluded above.
		return nil
	}
	return &Cache{inner: inner}
}

// Get returns the cached record for key, promoting it to
// most-recently-used on a hit.
func (c *Cache) Get(key []byte) (record.Record, bool) {
	if c == nil {
		return record.Record{}, false
	}
	return c.inner.Get(string(key))
}

// Add inserts or refreshes rec under key, evicting the least recently
// used entry if the cache is at capacity.
func (c *Cache) Add(key []byte, rec record.Record) {
	if c == nil {
		return
	}
	c.inner.Add(string(key), rec)
}

// Len reports how many entries the cache currently holds.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.inner.Len()
}
