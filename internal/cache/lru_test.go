package cache

import (
	"testing"

	"github.com/siltkv/siltkv/internal/record"
	"github.com/stretchr/testify/require"
)

func TestCacheAddGet(t *testing.T) {
	c := New(2)
	c.Add([]byte("a"), record.Record{Key: []byte("a"), Value: []byte("1")})

	rec, ok := c.Get([]byte("a"))
	require.True(t, ok)
	require.Equal(t, []byte("1"), rec.Value)

	_, ok = c.Get([]byte("missing"))
	require.False(t, ok)
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)
	c.Add([]byte("a"), record.Record{Key: []byte("a")})
	c.Add([]byte("b"), record.Record{Key: []byte("b")})

	// touch "a" so "b" becomes the least recently used entry
	_, _ = c.Get([]byte("a"))

	c.Add([]byte("c"), record.Record{Key: []byte("c")})

	_, ok := c.Get([]byte("b"))
	require.False(t, ok)

	_, ok = c.Get([]byte("a"))
	require.True(t, ok)
	_, ok = c.Get([]byte("c"))
	require.True(t, ok)
}

func TestNewWithNonPositiveCapacityDisablesCache(t *testing.T) {
	c := New(0)
	require.Nil(t, c)

	// nil *Cache must behave as a no-op, not panic.
	c.Add([]byte("a"), record.Record{Key: []byte("a")})
	_, ok := c.Get([]byte("a"))
	require.False(t, ok)
	require.Zero(t, c.Len())
}
