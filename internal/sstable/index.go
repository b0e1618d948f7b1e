package sstable

import (
	"encoding/binary"

	"github.com/siltkv/siltkv/internal/utils"
)

// indexEntry is one sparse-index row: the first key at a sampled data
// offset, and that offset.
type indexEntry struct {
	key    []byte
	offset uint64
}

// encodeIndexEntries serializes entries as
// [count:8]{[keylen:4][key][offset:8]}*
func encodeIndexEntries(entries []indexEntry) []byte {
	size := 8
	for _, e := range entries {
		size += 4 + len(e.key) + 8
	}

	buf := make([]byte, size)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(len(entries)))

	off := 8
	for _, e := range entries {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(len(e.key)))
		off += 4
		copy(buf[off:], e.key)
		off += len(e.key)
		binary.LittleEndian.PutUint64(buf[off:off+8], e.offset)
		off += 8
	}
	return buf
}

func decodeIndexEntries(buf []byte) ([]indexEntry, error) {
	if len(buf) < 8 {
		return nil, ErrCorruptFooter
	}
	count := binary.LittleEndian.Uint64(buf[0:8])
	off := 8

	entries := make([]indexEntry, 0, count)
	for i := uint64(0); i < count; i++ {
		if off+4 > len(buf) {
			return nil, ErrCorruptFooter
		}
		klen := int(binary.LittleEndian.Uint32(buf[off : off+4]))
		off += 4
		if off+klen+8 > len(buf) {
			return nil, ErrCorruptFooter
		}
		key := make([]byte, klen)
		copy(key, buf[off:off+klen])
		off += klen
		offset := binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
		entries = append(entries, indexEntry{key: key, offset: offset})
	}
	return entries, nil
}

// findFloor returns the last entry whose key is <= target, or -1 if
// every entry's key is greater than target.
func findFloor(entries []indexEntry, target []byte) int {
	lo, hi := 0, len(entries)-1
	result := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		if utils.Compare(entries[mid].key, target) <= 0 {
			result = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return result
}
