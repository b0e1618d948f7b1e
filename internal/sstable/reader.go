package sstable

import (
	"os"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/siltkv/siltkv/internal/cache"
	"github.com/siltkv/siltkv/internal/merkletree"
	"github.com/siltkv/siltkv/internal/record"
	"github.com/siltkv/siltkv/internal/utils"
)

// Iterator walks records in ascending key order. It is the same shape
// as RecordSource so a Reader's output can feed straight back into
// Write during compaction.
type Iterator = RecordSource

// Reader opens an existing SSTable (either layout) and serves point
// lookups, full scans, range scans and prefix scans against it.
type Reader struct {
	path     string
	layout   Layout
	variable bool
	data     []byte
	index    []indexEntry
	summary  []indexEntry
	bloom    *bloom.BloomFilter
	merkle   *merkletree.Tree
	cache    *cache.Cache
	dict     Dictionary
}

// Remove deletes a table's backing file(s) from disk: the single
// combined file, or all five region files under a five-file layout.
func Remove(path string, layout Layout) error {
	if layout != LayoutFivefile {
		return os.Remove(path)
	}
	var firstErr error
	for _, r := range []Region{RegionData, RegionIndex, RegionSummary, RegionBloom, RegionMerkle} {
		if err := os.Remove(regionPath(path, r)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Path returns the path (single file) or path prefix (five-file
// layout) this reader was opened from, used by the level registry to
// identify and later delete a table's backing files.
func (r *Reader) Path() string { return r.path }

// Layout returns which on-disk form this table was opened as.
func (r *Reader) Layout() Layout { return r.layout }

// Open reads an SSTable's regions into memory and returns a Reader
// ready to serve lookups. cacheCapacity sizes a per-Reader LRU read
// cache over Get (spec §6's cache_max_size); 0 disables it. dict, when
// non-nil, reverses the key substitution Write applied to the data
// region under compression (spec §4's use_compression); pass nil when
// the table was written without a dictionary.
func Open(path string, layout Layout, variable bool, cacheCapacity int, dict Dictionary) (*Reader, error) {
	var (
		r   *Reader
		err error
	)
	if layout == LayoutFivefile {
		r, err = openFivefile(path, variable, cacheCapacity, dict)
	} else {
		r, err = openSingleFile(path, variable, cacheCapacity, dict)
	}
	if err != nil {
		return nil, err
	}
	r.path = path
	r.layout = layout
	return r, nil
}

func openSingleFile(path string, variable bool, cacheCapacity int, dict Dictionary) (*Reader, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) < footerSize {
		return nil, ErrCorruptFooter
	}

	ft, err := decodeFooter(raw[len(raw)-footerSize:])
	if err != nil {
		return nil, err
	}

	slice := func(offset, length uint64) []byte {
		return raw[offset : offset+length]
	}

	return buildReader(
		variable,
		cacheCapacity,
		dict,
		slice(ft.dataOffset, ft.dataLen),
		slice(ft.indexOffset, ft.indexLen),
		slice(ft.summaryOffset, ft.summaryLen),
		slice(ft.bloomOffset, ft.bloomLen),
		slice(ft.merkleOffset, ft.merkleLen),
	)
}

func openFivefile(basePath string, variable bool, cacheCapacity int, dict Dictionary) (*Reader, error) {
	data, err := readFileRegion(regionPath(basePath, RegionData))
	if err != nil {
		return nil, err
	}
	indexBuf, err := readFileRegion(regionPath(basePath, RegionIndex))
	if err != nil {
		return nil, err
	}
	summaryBuf, err := readFileRegion(regionPath(basePath, RegionSummary))
	if err != nil {
		return nil, err
	}
	bloomBuf, err := readFileRegion(regionPath(basePath, RegionBloom))
	if err != nil {
		return nil, err
	}
	merkleBuf, err := readFileRegion(regionPath(basePath, RegionMerkle))
	if err != nil {
		return nil, err
	}
	return buildReader(variable, cacheCapacity, dict, data, indexBuf, summaryBuf, bloomBuf, merkleBuf)
}

func buildReader(variable bool, cacheCapacity int, dict Dictionary, data, indexBuf, summaryBuf, bloomBuf, merkleBuf []byte) (*Reader, error) {
	index, err := decodeIndexEntries(indexBuf)
	if err != nil {
		return nil, err
	}
	summary, err := decodeIndexEntries(summaryBuf)
	if err != nil {
		return nil, err
	}
	filter, err := decodeBloomFilter(bloomBuf)
	if err != nil {
		return nil, err
	}

	return &Reader{
		variable: variable,
		data:     data,
		index:    index,
		summary:  summary,
		bloom:    filter,
		merkle:   merkletree.Deserialize(merkleBuf),
		cache:    cache.New(cacheCapacity),
		dict:     dict,
	}, nil
}

// Get returns the record stored under key, if any. A Bloom-filter
// negative short-circuits the summary/index/data walk entirely. A
// cache hit skips the bloom/summary/index/data walk altogether; a
// cache miss that resolves to a real record is added to the cache
// before returning.
func (r *Reader) Get(key []byte) (record.Record, bool, error) {
	if rec, ok := r.cache.Get(key); ok {
		return rec, true, nil
	}

	if r.bloom != nil && !r.bloom.Test(key) {
		return record.Record{}, false, nil
	}

	offset, ok := r.locateDataOffset(key)
	if !ok {
		return record.Record{}, false, nil
	}
	rec, found, err := r.scanFor(offset, key)
	if found {
		r.cache.Add(key, rec)
	}
	return rec, found, err
}

// locateDataOffset walks summary -> index to find the data offset a
// linear scan for key should begin at.
func (r *Reader) locateDataOffset(key []byte) (uint64, bool) {
	lo, hi := 0, len(r.index)

	if len(r.summary) > 0 {
		si := findFloor(r.summary, key)
		if si < 0 {
			return 0, false
		}
		lo = int(r.summary[si].offset)
		if si+1 < len(r.summary) {
			hi = int(r.summary[si+1].offset)
		}
	}

	if lo >= hi {
		return 0, false
	}

	ii := findFloor(r.index[lo:hi], key)
	if ii < 0 {
		return 0, false
	}
	return r.index[lo+ii].offset, true
}

func (r *Reader) scanFor(offset uint64, key []byte) (record.Record, bool, error) {
	buf := r.data[offset:]
	for len(buf) > 0 {
		rec, n, err := record.Decode(buf, r.variable)
		if err != nil {
			if err == record.ErrCorrupt {
				buf = buf[n:]
				continue
			}
			return record.Record{}, false, err
		}
		if r.dict != nil {
			realKey, err := r.dict.Decode(rec.Key)
			if err != nil {
				return record.Record{}, false, err
			}
			rec.Key = realKey
		}

		switch {
		case utils.Compare(rec.Key, key) == 0:
			return rec, true, nil
		case utils.Compare(rec.Key, key) > 0:
			return record.Record{}, false, nil
		}
		buf = buf[n:]
	}
	return record.Record{}, false, nil
}

// MinKey and MaxKey return the table's smallest and largest keys, used
// by leveled compaction to decide which tables' ranges overlap. ok is
// false only for an empty table.
func (r *Reader) MinKey() ([]byte, bool) {
	if len(r.index) == 0 {
		return nil, false
	}
	return r.index[0].key, true
}

func (r *Reader) MaxKey() ([]byte, bool) {
	if len(r.index) == 0 {
		return nil, false
	}
	return r.index[len(r.index)-1].key, true
}

// Iterator walks every record in the table in ascending key order.
func (r *Reader) Iterator() Iterator {
	return newRecordIter(r.data, r.variable, r.dict)
}

// RangeScan walks records with start <= key <= end.
func (r *Reader) RangeScan(start, end []byte) Iterator {
	offset, ok := r.locateDataOffset(start)
	if !ok {
		offset = 0
	}
	return newBoundedIterator(r.data[offset:], r.variable, r.dict, start, func(k []byte) bool {
		return utils.Compare(k, end) > 0
	})
}

// PrefixScan walks records whose key starts with prefix.
func (r *Reader) PrefixScan(prefix []byte) Iterator {
	offset, ok := r.locateDataOffset(prefix)
	if !ok {
		offset = 0
	}
	return newBoundedIterator(r.data[offset:], r.variable, r.dict, prefix, func(k []byte) bool {
		return !utils.HasPrefix(k, prefix)
	})
}

// VerifyIntegrity rebuilds a Merkle tree over the data region and
// compares it against the persisted one, returning the indices of any
// chunks that diverged (empty means the table is intact).
func (r *Reader) VerifyIntegrity() []int {
	fresh := merkletree.New(r.data)
	return r.merkle.DifferentChunks(fresh)
}

// --- record iteration ------------------------------------------------------

type recordIter struct {
	buf      []byte
	variable bool
	dict     Dictionary
	cur      record.Record
	valid    bool
}

func newRecordIter(buf []byte, variable bool, dict Dictionary) *recordIter {
	it := &recordIter{buf: buf, variable: variable, dict: dict}
	it.advance()
	return it
}

func (it *recordIter) advance() {
	for len(it.buf) > 0 {
		rec, n, err := record.Decode(it.buf, it.variable)
		it.buf = it.buf[n:]
		if err != nil {
			if err == record.ErrCorrupt {
				continue
			}
			break
		}
		if it.dict != nil {
			realKey, err := it.dict.Decode(rec.Key)
			if err != nil {
				continue
			}
			rec.Key = realKey
		}
		it.cur = rec
		it.valid = true
		return
	}
	it.valid = false
}

func (it *recordIter) Valid() bool          { return it.valid }
func (it *recordIter) Next()                { it.advance() }
func (it *recordIter) Record() record.Record { return it.cur }

// boundedIterator wraps a recordIter, skipping leading entries before a
// start key and stopping once a caller-supplied predicate says the
// current key has run past the scan's end.
type boundedIterator struct {
	inner *recordIter
	stop  func(record.Record) bool
}

func newBoundedIterator(buf []byte, variable bool, dict Dictionary, start []byte, stop func([]byte) bool) *boundedIterator {
	it := newRecordIter(buf, variable, dict)
	for it.Valid() && utils.Compare(it.Record().Key, start) < 0 {
		it.Next()
	}
	return &boundedIterator{inner: it, stop: func(r record.Record) bool { return stop(r.Key) }}
}

func (b *boundedIterator) Valid() bool {
	return b.inner.Valid() && !b.stop(b.inner.Record())
}

func (b *boundedIterator) Next() { b.inner.Next() }

func (b *boundedIterator) Record() record.Record { return b.inner.Record() }
