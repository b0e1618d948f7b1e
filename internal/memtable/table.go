// Package memtable implements the engine's in-memory write buffer: a
// common Table capability shared by three interchangeable back-ends
// (skip list, B-tree, hash map), and the Pool that manages one active
// table plus a bounded queue of frozen, flush-pending tables.
package memtable

import "github.com/siltkv/siltkv/internal/utils"

// Entry is one logical record held by a Table: a key, its value (absent
// for tombstones), and the timestamp it was written at.
type Entry struct {
	Key       []byte
	Value     []byte
	Tombstone bool
	Timestamp uint64
}

// Iterator walks a Table's entries in ascending key order.
type Iterator interface {
	Valid() bool
	Next()
	Entry() Entry
}

// Table is the capability every memtable back-end must provide,
// mirroring the original engine's SegmentTrait: insert, delete, get,
// and an in-order iterator.
type Table interface {
	// Insert records value for key at the given timestamp. Returns true
	// if this was a new key (affects the pool's byte-size bookkeeping),
	// false if it overwrote an existing entry.
	Insert(key, value []byte, ts uint64) bool
	// Delete logically removes key by inserting a tombstone. Returns true
	// if this added a new logical entry (key was absent), false if it
	// overwrote an existing (live or already-deleted) entry.
	Delete(key []byte, ts uint64) bool
	// Get returns the current entry for key, if present.
	Get(key []byte) (Entry, bool)
	// Iterator returns entries in ascending key order.
	Iterator() Iterator
	// Len returns the number of distinct keys held (tombstones count).
	Len() int
}

func cloneEntry(key, value []byte, tombstone bool, ts uint64) Entry {
	e := Entry{Key: utils.CopyBytes(key), Tombstone: tombstone, Timestamp: ts}
	if !tombstone {
		e.Value = utils.CopyBytes(value)
	}
	return e
}
