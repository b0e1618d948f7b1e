package memtable

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func backends() map[string]func() Table {
	return map[string]func() Table{
		"skiplist": func() Table { return NewSkipList(DefaultMaxLevel) },
		"btree":    func() Table { t, _ := NewBTree(DefaultBTreeOrder); return t },
		"hashmap":  func() Table { return NewHashMap() },
	}
}

func TestTableInsertGet(t *testing.T) {
	for name, make := range backends() {
		t.Run(name, func(t *testing.T) {
			tbl := make()
			require.True(t, tbl.Insert([]byte("a"), []byte("1"), 1))
			require.True(t, tbl.Insert([]byte("b"), []byte("2"), 2))
			require.False(t, tbl.Insert([]byte("a"), []byte("updated"), 3))

			e, ok := tbl.Get([]byte("a"))
			require.True(t, ok)
			require.Equal(t, "updated", string(e.Value))
			require.Equal(t, uint64(3), e.Timestamp)

			_, ok = tbl.Get([]byte("missing"))
			require.False(t, ok)

			require.Equal(t, 2, tbl.Len())
		})
	}
}

func TestTableDeleteIsTombstone(t *testing.T) {
	for name, make := range backends() {
		t.Run(name, func(t *testing.T) {
			tbl := make()
			tbl.Insert([]byte("k"), []byte("v"), 1)
			require.False(t, tbl.Delete([]byte("k"), 2))

			e, ok := tbl.Get([]byte("k"))
			require.True(t, ok)
			require.True(t, e.Tombstone)
			require.Empty(t, e.Value)

			require.True(t, tbl.Delete([]byte("new-key"), 3))
		})
	}
}

func TestTableIteratorAscendingOrder(t *testing.T) {
	for name, make := range backends() {
		t.Run(name, func(t *testing.T) {
			tbl := make()
			keys := []string{"delta", "alpha", "charlie", "echo", "bravo"}
			for i, k := range keys {
				tbl.Insert([]byte(k), []byte(fmt.Sprintf("v%d", i)), uint64(i))
			}

			var got []string
			it := tbl.Iterator()
			for it.Valid() {
				got = append(got, string(it.Entry().Key))
				it.Next()
			}

			require.Equal(t, []string{"alpha", "bravo", "charlie", "delta", "echo"}, got)
		})
	}
}

func TestTableManyKeysRoundTrip(t *testing.T) {
	for name, make := range backends() {
		t.Run(name, func(t *testing.T) {
			tbl := make()
			const n = 500

			order := rand.Perm(n)
			for _, i := range order {
				tbl.Insert([]byte(fmt.Sprintf("key-%04d", i)), []byte(fmt.Sprintf("val-%d", i)), uint64(i))
			}
			require.Equal(t, n, tbl.Len())

			for i := 0; i < n; i++ {
				e, ok := tbl.Get([]byte(fmt.Sprintf("key-%04d", i)))
				require.True(t, ok)
				require.Equal(t, fmt.Sprintf("val-%d", i), string(e.Value))
			}

			var prev []byte
			it := tbl.Iterator()
			count := 0
			for it.Valid() {
				if prev != nil {
					require.Less(t, string(prev), string(it.Entry().Key))
				}
				prev = it.Entry().Key
				count++
				it.Next()
			}
			require.Equal(t, n, count)
		})
	}
}

func TestTableCopiesInput(t *testing.T) {
	for name, make := range backends() {
		t.Run(name, func(t *testing.T) {
			tbl := make()
			key := []byte("k")
			value := []byte("v")
			tbl.Insert(key, value, 1)

			key[0] = 'x'
			value[0] = 'x'

			e, ok := tbl.Get([]byte("k"))
			require.True(t, ok)
			require.Equal(t, "v", string(e.Value))
		})
	}
}
