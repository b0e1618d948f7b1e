package sstable

// Dictionary substitutes a compact id for a record's key in the data
// region (spec §4's use_compression), implemented by
// internal/compression.Dictionary. It's declared here rather than
// imported to keep internal/sstable free of a dependency on the
// package that owns the dictionary's on-disk file and id assignment —
// any type with this shape satisfies it structurally.
type Dictionary interface {
	// Add bulk-registers keys that don't already have an id, persisting
	// the new entries in one write. Used once per flush/compaction
	// batch before the per-record Encode pass.
	Add(keys [][]byte) error
	// Encode returns key's id, assigning and persisting a new one if
	// key hasn't been seen before.
	Encode(key []byte) ([]byte, error)
	// Decode reverses Encode, returning an error if id was never
	// assigned by this dictionary.
	Decode(id []byte) ([]byte, error)
}
