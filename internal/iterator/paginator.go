package iterator

import (
	"github.com/siltkv/siltkv/internal/memtable"
	"github.com/siltkv/siltkv/internal/record"
	"github.com/siltkv/siltkv/internal/sstable"
)

// Paginator layers page-at-a-time and cursor-style access on top of a
// scan. Each page request re-runs the scan from a fresh source (the
// underlying pool/SSTable state may have changed between calls, so
// pagination never assumes a stable live cursor); incremental
// next/prev instead keep a small cache so stepping backward never
// re-queries.
type Paginator struct {
	newSource func() (RecordSource, func())

	// cachedIndex is the index into cachedEntries of the entry most
	// recently returned by IterateNext/IteratePrev; -1 means nothing
	// has been returned yet.
	cachedIndex   int
	cachedEntries []record.Record
}

// RecordSource is the narrow slice of sstable.RecordSource a Paginator
// needs; kept local so this package doesn't have to import sstable
// just to name the type its callback returns.
type RecordSource interface {
	Valid() bool
	Next()
	Record() record.Record
}

// NewPaginator builds a Paginator over a scan described by newSource,
// a factory that produces a fresh, already-bounded source each time
// it's called (and an optional cleanup func, called after each scan
// completes — pass a no-op if the source needs none).
func NewPaginator(newSource func() (RecordSource, func())) *Paginator {
	return &Paginator{newSource: newSource, cachedIndex: -1}
}

// NewPaginatorFor builds a Paginator over the same merged, bounded view
// New would produce for pool/readers/opts, rebuilding it fresh on every
// page or incremental step.
func NewPaginatorFor(pool *memtable.Pool, readers []*sstable.Reader, opts Options) *Paginator {
	return NewPaginator(func() (RecordSource, func()) {
		return New(pool, readers, opts), func() {}
	})
}

// scanEntries collects the [pageNumber*pageSize, (pageNumber+1)*pageSize)
// window of a fresh scan.
func (p *Paginator) scanEntries(pageNumber, pageSize int) []record.Record {
	src, done := p.newSource()
	defer done()

	var result []record.Record
	traversed := 0
	limit := (pageNumber + 1) * pageSize

	for src.Valid() && traversed < limit {
		if traversed >= pageNumber*pageSize {
			result = append(result, src.Record())
		}
		traversed++
		src.Next()
	}
	return result
}

// Page returns page pageNumber (0-indexed) of pageSize entries.
func (p *Paginator) Page(pageNumber, pageSize int) []record.Record {
	return p.scanEntries(pageNumber, pageSize)
}

// IterateNext advances one entry: replays a cached step if one was
// already fetched and then un-done by IteratePrev, otherwise pulls
// exactly one fresh entry and appends it to the cache.
func (p *Paginator) IterateNext() (record.Record, bool) {
	if p.cachedIndex+1 < len(p.cachedEntries) {
		p.cachedIndex++
		return p.cachedEntries[p.cachedIndex], true
	}

	fetched := p.scanEntries(len(p.cachedEntries), 1)
	if len(fetched) == 0 {
		return record.Record{}, false
	}

	p.cachedEntries = append(p.cachedEntries, fetched[0])
	p.cachedIndex = len(p.cachedEntries) - 1
	return fetched[0], true
}

// IteratePrev steps backward through the cache without re-querying.
func (p *Paginator) IteratePrev() (record.Record, bool) {
	if p.cachedIndex <= 0 {
		return record.Record{}, false
	}
	p.cachedIndex--
	return p.cachedEntries[p.cachedIndex], true
}

// IterateStop clears the cache and resets the cursor, ending the
// current incremental iteration.
func (p *Paginator) IterateStop() {
	p.cachedEntries = nil
	p.cachedIndex = -1
}
