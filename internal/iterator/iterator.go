// Package iterator builds the engine's unified read view: the pool's
// in-memory generations merged with however many on-disk SSTables
// participate, newest-timestamp-wins across all of them, with
// tombstones resolved internally but never emitted. Paginator (in
// paginator.go) layers page-at-a-time and cursor-style access on top.
package iterator

import (
	"github.com/siltkv/siltkv/internal/memtable"
	"github.com/siltkv/siltkv/internal/record"
	"github.com/siltkv/siltkv/internal/sstable"
	"github.com/siltkv/siltkv/internal/utils"
)

// ScanType selects which bound New applies to the merged stream.
type ScanType int

const (
	ScanAll ScanType = iota
	ScanRange
	ScanPrefix
)

// Options bounds a scan: Lower/Upper for ScanRange, Prefix for ScanPrefix.
type Options struct {
	Lower, Upper, Prefix []byte
	Type                 ScanType
}

// New builds one sorted, tombstone-resolved RecordSource over every
// memtable generation in pool and every reader in readers (newest
// write wins regardless of which layer it came from), bounded per opts.
func New(pool *memtable.Pool, readers []*sstable.Reader, opts Options) sstable.RecordSource {
	sources := make([]sstable.RecordSource, 0, len(readers)+4)
	for _, t := range pool.AllTables() {
		sources = append(sources, NewMemtableSource(t.Iterator()))
	}
	for _, r := range readers {
		sources = append(sources, sourceFor(r, opts))
	}

	merged := sstable.NewMergeIterator(sources, true)

	switch opts.Type {
	case ScanRange:
		return newBoundedSource(merged, opts.Lower, func(k []byte) bool {
			return utils.Compare(k, opts.Upper) > 0
		})
	case ScanPrefix:
		return newBoundedSource(merged, opts.Prefix, func(k []byte) bool {
			return !utils.HasPrefix(k, opts.Prefix)
		})
	default:
		return merged
	}
}

// sourceFor picks the narrowest reader scan available for opts, so a
// bounded query doesn't have to walk an entire SSTable's data region.
func sourceFor(r *sstable.Reader, opts Options) sstable.RecordSource {
	switch opts.Type {
	case ScanRange:
		return r.RangeScan(opts.Lower, opts.Upper)
	case ScanPrefix:
		return r.PrefixScan(opts.Prefix)
	default:
		return r.Iterator()
	}
}

// memtableSource adapts a memtable.Iterator to sstable.RecordSource.
type memtableSource struct {
	it memtable.Iterator
}

// NewMemtableSource adapts a memtable.Iterator to sstable.RecordSource,
// for callers (e.g. the flush path) that need to feed a memtable's
// entries through the same writer/merge machinery SSTables use.
func NewMemtableSource(it memtable.Iterator) sstable.RecordSource {
	return &memtableSource{it: it}
}

func (s *memtableSource) Valid() bool { return s.it.Valid() }
func (s *memtableSource) Next()       { s.it.Next() }
func (s *memtableSource) Record() record.Record {
	e := s.it.Entry()
	return record.Record{Timestamp: e.Timestamp, Tombstone: e.Tombstone, Key: e.Key, Value: e.Value}
}

// boundedSource skips leading entries before start and reports
// exhaustion once stop(key) holds for the current entry.
type boundedSource struct {
	inner sstable.RecordSource
	stop  func([]byte) bool
}

func newBoundedSource(inner sstable.RecordSource, start []byte, stop func([]byte) bool) *boundedSource {
	for inner.Valid() && utils.Compare(inner.Record().Key, start) < 0 {
		inner.Next()
	}
	return &boundedSource{inner: inner, stop: stop}
}

func (b *boundedSource) Valid() bool {
	return b.inner.Valid() && !b.stop(b.inner.Record().Key)
}

func (b *boundedSource) Next() { b.inner.Next() }

func (b *boundedSource) Record() record.Record { return b.inner.Record() }
