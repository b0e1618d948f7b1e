package sstable

import (
	"os"

	"github.com/siltkv/siltkv/internal/merkletree"
	"github.com/siltkv/siltkv/internal/record"
)

// RecordSource yields records in strictly ascending key order with
// duplicates already resolved (the caller — typically a Pool flush or
// a compaction merge — owns newest-wins/tombstone resolution before
// records reach the writer).
type RecordSource interface {
	Valid() bool
	Next()
	Record() record.Record
}

// WriteOptions tunes the sparse index and summary densities (Ki, Ks in
// the spec's terms) and selects fixed vs. variable-byte record
// encoding.
type WriteOptions struct {
	IndexDensity   int // sample one index entry every IndexDensity data records
	SummaryDensity int // sample one summary entry every SummaryDensity index entries
	Variable       bool
	Layout         Layout
	// CacheMaxSize sizes the LRU read cache Open builds for the table
	// (spec §6's cache_max_size); 0 disables it. Write itself never
	// consults the cache — only Open, for the reader side.
	CacheMaxSize int
	// Dictionary, when non-nil, is consulted to substitute a compact id
	// for each record's key in the data region (spec §4's use_compression).
	Dictionary Dictionary
}

// DefaultWriteOptions matches the spec's suggested densities.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{IndexDensity: 16, SummaryDensity: 8, Layout: LayoutSingleFile}
}

// Write builds a complete SSTable from src at path (a single file under
// LayoutSingleFile, or a path prefix for LayoutFivefile's five sibling
// files), and returns the number of entries written.
func Write(path string, src RecordSource, opts WriteOptions) (int, error) {
	if opts.IndexDensity < 1 {
		opts.IndexDensity = 1
	}
	if opts.SummaryDensity < 1 {
		opts.SummaryDensity = 1
	}

	var recs []record.Record
	for src.Valid() {
		recs = append(recs, src.Record())
		src.Next()
	}

	// The dictionary sees every key in the batch before any is encoded,
	// matching the original's single bulk add ahead of the per-record
	// encode pass, so a key repeated later in the same flush/compaction
	// batch never races its own first assignment.
	if opts.Dictionary != nil {
		dictKeys := make([][]byte, len(recs))
		for i, rec := range recs {
			dictKeys[i] = rec.Key
		}
		if err := opts.Dictionary.Add(dictKeys); err != nil {
			return 0, err
		}
	}

	var dataBuf []byte
	var indexEntries []indexEntry
	var summaryEntries []indexEntry
	var keys [][]byte
	var lastKey []byte
	var lastOffset uint64

	count := 0
	sinceIndex := 0
	sinceSummary := 0

	for _, rec := range recs {
		offset := uint64(len(dataBuf))

		// Index, summary and bloom stay keyed on the real key even under
		// compression: only the data region's stored key is substituted,
		// so the summary/index binary search and bloom test never need
		// to know about the dictionary.
		if sinceIndex == 0 {
			indexEntries = append(indexEntries, indexEntry{key: cloneKey(rec.Key), offset: offset})
			if sinceSummary == 0 {
				summaryEntries = append(summaryEntries, indexEntry{
					key:    cloneKey(rec.Key),
					offset: uint64(len(indexEntries) - 1),
				})
			}
			sinceSummary = (sinceSummary + 1) % opts.SummaryDensity
		}
		sinceIndex = (sinceIndex + 1) % opts.IndexDensity

		diskRec := rec
		if opts.Dictionary != nil {
			id, err := opts.Dictionary.Encode(rec.Key)
			if err != nil {
				return 0, err
			}
			diskRec.Key = id
		}

		dataBuf = append(dataBuf, record.Encode(diskRec, opts.Variable)...)
		keys = append(keys, cloneKey(rec.Key))
		lastKey = rec.Key
		lastOffset = offset
		count++
	}

	// The index always carries the table's true min and max key, even
	// when the configured density doesn't land on the final record —
	// the level registry's range-overlap checks (leveled compaction)
	// depend on index[0] / index[len-1] bounding the whole table.
	if len(indexEntries) > 0 && string(indexEntries[len(indexEntries)-1].key) != string(lastKey) {
		indexEntries = append(indexEntries, indexEntry{key: cloneKey(lastKey), offset: lastOffset})
	}

	indexBuf := encodeIndexEntries(indexEntries)
	summaryBuf := encodeIndexEntries(summaryEntries)

	filter := newBloomFilter(count)
	for _, k := range keys {
		filter.Add(k)
	}
	bloomBuf, err := encodeBloomFilter(filter)
	if err != nil {
		return 0, err
	}

	merkleBuf := merkletree.New(dataBuf).Serialize()

	switch opts.Layout {
	case LayoutFivefile:
		err = writeFivefile(path, dataBuf, indexBuf, summaryBuf, bloomBuf, merkleBuf)
	default:
		err = writeSingleFile(path, dataBuf, indexBuf, summaryBuf, bloomBuf, merkleBuf)
	}
	if err != nil {
		return 0, err
	}

	return count, nil
}

func cloneKey(k []byte) []byte {
	out := make([]byte, len(k))
	copy(out, k)
	return out
}

func writeSingleFile(path string, dataBuf, indexBuf, summaryBuf, bloomBuf, merkleBuf []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	var offset uint64
	ft := footer{}

	write := func(buf []byte) (uint64, uint64, error) {
		o := offset
		if _, err := f.Write(buf); err != nil {
			return 0, 0, err
		}
		offset += uint64(len(buf))
		return o, uint64(len(buf)), nil
	}

	if ft.dataOffset, ft.dataLen, err = write(dataBuf); err != nil {
		return err
	}
	if ft.indexOffset, ft.indexLen, err = write(indexBuf); err != nil {
		return err
	}
	if ft.summaryOffset, ft.summaryLen, err = write(summaryBuf); err != nil {
		return err
	}
	if ft.bloomOffset, ft.bloomLen, err = write(bloomBuf); err != nil {
		return err
	}
	if ft.merkleOffset, ft.merkleLen, err = write(merkleBuf); err != nil {
		return err
	}

	_, err = f.Write(ft.encode())
	return err
}

func writeFivefile(basePath string, dataBuf, indexBuf, summaryBuf, bloomBuf, merkleBuf []byte) error {
	regions := map[Region][]byte{
		RegionData:    dataBuf,
		RegionIndex:   indexBuf,
		RegionSummary: summaryBuf,
		RegionBloom:   bloomBuf,
		RegionMerkle:  merkleBuf,
	}
	for r, buf := range regions {
		if err := os.WriteFile(regionPath(basePath, r), buf, 0o644); err != nil {
			return err
		}
	}
	return nil
}
