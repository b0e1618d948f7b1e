package memtable

import (
	"sort"

	"github.com/siltkv/siltkv/internal/utils"
)

// HashMap is a Go-map-backed Table. Inserts and lookups are O(1); an
// Iterator requires sorting the key set first, hence "sorted on
// iterate" rather than always-sorted like the skip list or B-tree.
type HashMap struct {
	entries map[string]Entry
}

// NewHashMap returns an empty hash-map-backed table.
func NewHashMap() *HashMap {
	return &HashMap{entries: make(map[string]Entry)}
}

// Insert implements Table.
func (h *HashMap) Insert(key, value []byte, ts uint64) bool {
	return h.put(key, value, false, ts)
}

// Delete implements Table.
func (h *HashMap) Delete(key []byte, ts uint64) bool {
	return h.put(key, nil, true, ts)
}

func (h *HashMap) put(key, value []byte, tombstone bool, ts uint64) bool {
	_, existed := h.entries[string(key)]
	h.entries[string(key)] = cloneEntry(key, value, tombstone, ts)
	return !existed
}

// Get implements Table.
func (h *HashMap) Get(key []byte) (Entry, bool) {
	e, ok := h.entries[string(key)]
	return e, ok
}

// Len implements Table.
func (h *HashMap) Len() int {
	return len(h.entries)
}

// Iterator implements Table. The key set is sorted once, up front, to
// produce a deterministic ascending-key walk.
func (h *HashMap) Iterator() Iterator {
	keys := make([]string, 0, len(h.entries))
	for k := range h.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return utils.Compare([]byte(keys[i]), []byte(keys[j])) < 0
	})

	return &hashMapIterator{h: h, keys: keys}
}

type hashMapIterator struct {
	h    *HashMap
	keys []string
	pos  int
}

func (it *hashMapIterator) Valid() bool {
	return it.pos < len(it.keys)
}

func (it *hashMapIterator) Next() {
	it.pos++
}

func (it *hashMapIterator) Entry() Entry {
	return it.h.entries[it.keys[it.pos]]
}
