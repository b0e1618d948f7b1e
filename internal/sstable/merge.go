package sstable

import (
	"github.com/siltkv/siltkv/internal/record"
	"github.com/siltkv/siltkv/internal/utils"
)

// MergeIterator merges multiple sorted RecordSources into one sorted
// stream. Unlike the reader-order-wins scheme this engine's predecessor
// used, duplicate keys are resolved by newest timestamp, so source
// order (which SSTable or memtable generation a source came from) does
// not matter for correctness, only for tie-breaking equal timestamps.
type MergeIterator struct {
	sources []RecordSource
	// dropTombstones discards tombstoned keys entirely instead of
	// emitting them; set when merging down to the oldest level, where
	// a delete marker has outlived every value it could shadow.
	dropTombstones bool

	cur   record.Record
	valid bool
}

// NewMergeIterator builds a merge iterator over sources, in source
// order. Sources are consumed, not copied; each must already be
// positioned at its first record (Valid()/Record() ready to read).
func NewMergeIterator(sources []RecordSource, dropTombstones bool) *MergeIterator {
	live := make([]RecordSource, 0, len(sources))
	for _, s := range sources {
		if s != nil && s.Valid() {
			live = append(live, s)
		}
	}

	mi := &MergeIterator{sources: live, dropTombstones: dropTombstones}
	mi.advance()
	return mi
}

func (mi *MergeIterator) Valid() bool          { return mi.valid }
func (mi *MergeIterator) Record() record.Record { return mi.cur }
func (mi *MergeIterator) Next()                { mi.advance() }

// advance selects the next distinct key across all sources, resolving
// duplicates by newest timestamp, and steps every source that held a
// copy of that key so it isn't re-emitted. It loops past keys that
// resolve to a dropped tombstone instead of returning early, so a
// single Next() call always leaves the iterator either exhausted or
// positioned on an emittable record.
func (mi *MergeIterator) advance() {
	for {
		var minKey []byte
		for _, s := range mi.sources {
			if !s.Valid() {
				continue
			}
			if minKey == nil || utils.Compare(s.Record().Key, minKey) < 0 {
				minKey = s.Record().Key
			}
		}

		if minKey == nil {
			mi.valid = false
			return
		}

		var winner record.Record
		haveWinner := false
		for _, s := range mi.sources {
			if !s.Valid() || utils.Compare(s.Record().Key, minKey) != 0 {
				continue
			}
			candidate := s.Record()
			if !haveWinner || candidate.Timestamp >= winner.Timestamp {
				winner = candidate
				haveWinner = true
			}
			s.Next()
		}

		if mi.dropTombstones && winner.Tombstone {
			continue
		}

		mi.cur = winner
		mi.valid = true
		return
	}
}
