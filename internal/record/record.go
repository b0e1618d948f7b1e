// Package record implements the on-disk representation of a single
// (timestamp, tombstone, key, value) entry shared by the WAL and the
// SSTable data region, plus the clock that stamps new entries.
package record

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// ErrCorrupt is returned when a decoded record's CRC does not match its
// payload. The caller is expected to skip the record, not abort the
// whole stream.
var ErrCorrupt = errors.New("record: crc mismatch")

// ErrShort is returned when a byte slice is too small to hold a complete
// record header.
var ErrShort = errors.New("record: buffer too short")

// Record is the logical unit the engine moves between the WAL, memtables
// and SSTables. Timestamp is microseconds since the Unix epoch; the wire
// formats below reserve 16 bytes for it (the spec's unsigned 128-bit
// field) even though a uint64 already outlives any realistic deployment,
// so high 8 bytes are always zero on the wire (see DESIGN.md).
type Record struct {
	Timestamp uint64
	Tombstone bool
	Key       []byte
	Value     []byte
}

// Encode serializes r using the fixed-width layout when variable is
// false, or the 7-bit continuation varint layout when true.
func Encode(r Record, variable bool) []byte {
	if variable {
		return encodeVariable(r)
	}
	return encodeFixed(r)
}

// Decode parses one record from the front of b, returning the number of
// bytes consumed. It returns ErrCorrupt if the CRC does not match the
// decoded payload, and ErrShort if b does not hold a full record.
func Decode(b []byte, variable bool) (Record, int, error) {
	if variable {
		return decodeVariable(b)
	}
	return decodeFixed(b)
}

// --- fixed-width encoding -------------------------------------------------
//
// [CRC:4][ts:16][tombstone:1][klen:8][vlen:8 (absent iff tombstone)][key][value]

const (
	fixedCRCLen  = 4
	fixedTSLen   = 16
	fixedTombLen = 1
	fixedLenLen  = 8
)

func encodeFixed(r Record) []byte {
	klen := len(r.Key)
	vlen := len(r.Value)

	size := fixedTSLen + fixedTombLen + fixedLenLen + klen
	if !r.Tombstone {
		size += fixedLenLen + vlen
	}

	payload := make([]byte, size)
	off := 0

	putU128(payload[off:off+fixedTSLen], r.Timestamp)
	off += fixedTSLen

	if r.Tombstone {
		payload[off] = 1
	}
	off += fixedTombLen

	binary.LittleEndian.PutUint64(payload[off:off+fixedLenLen], uint64(klen))
	off += fixedLenLen

	if !r.Tombstone {
		binary.LittleEndian.PutUint64(payload[off:off+fixedLenLen], uint64(vlen))
		off += fixedLenLen
	}

	copy(payload[off:], r.Key)
	off += klen

	if !r.Tombstone {
		copy(payload[off:], r.Value)
	}

	crc := crc32.ChecksumIEEE(payload)

	out := make([]byte, fixedCRCLen+len(payload))
	binary.LittleEndian.PutUint32(out[0:fixedCRCLen], crc)
	copy(out[fixedCRCLen:], payload)
	return out
}

func decodeFixed(b []byte) (Record, int, error) {
	if len(b) < fixedCRCLen+fixedTSLen+fixedTombLen+fixedLenLen {
		return Record{}, 0, ErrShort
	}

	crc := binary.LittleEndian.Uint32(b[0:fixedCRCLen])
	off := fixedCRCLen

	ts := getU128(b[off : off+fixedTSLen])
	off += fixedTSLen

	tombstone := b[off] != 0
	off += fixedTombLen

	klen := binary.LittleEndian.Uint64(b[off : off+fixedLenLen])
	off += fixedLenLen

	var vlen uint64
	if !tombstone {
		if len(b) < off+fixedLenLen {
			return Record{}, 0, ErrShort
		}
		vlen = binary.LittleEndian.Uint64(b[off : off+fixedLenLen])
		off += fixedLenLen
	}

	end := off + int(klen)
	if !tombstone {
		end += int(vlen)
	}
	if len(b) < end {
		return Record{}, 0, ErrShort
	}

	key := make([]byte, klen)
	copy(key, b[off:off+int(klen)])
	off += int(klen)

	var value []byte
	if !tombstone {
		value = make([]byte, vlen)
		copy(value, b[off:off+int(vlen)])
		off += int(vlen)
	}

	payload := b[fixedCRCLen:off]
	if crc32.ChecksumIEEE(payload) != crc {
		return Record{}, off, ErrCorrupt
	}

	return Record{Timestamp: ts, Tombstone: tombstone, Key: key, Value: value}, off, nil
}

func putU128(dst []byte, v uint64) {
	binary.LittleEndian.PutUint64(dst[0:8], v)
	binary.LittleEndian.PutUint64(dst[8:16], 0)
}

func getU128(src []byte) uint64 {
	return binary.LittleEndian.Uint64(src[0:8])
}

// --- variable-byte encoding ------------------------------------------------
//
// Every integer field (CRC, timestamp, key length, value length) is
// encoded with 7-bit continuation bytes, mirroring the original engine's
// variable_encode/variable_decode helpers.

func encodeVariable(r Record) []byte {
	klen := len(r.Key)
	vlen := len(r.Value)

	payload := make([]byte, 0, 16+1+10+10+klen+vlen)
	payload = appendUvarint(payload, r.Timestamp)
	if r.Tombstone {
		payload = append(payload, 1)
	} else {
		payload = append(payload, 0)
	}
	payload = appendUvarint(payload, uint64(klen))
	if !r.Tombstone {
		payload = appendUvarint(payload, uint64(vlen))
	}
	payload = append(payload, r.Key...)
	if !r.Tombstone {
		payload = append(payload, r.Value...)
	}

	crc := uint64(crc32.ChecksumIEEE(payload))

	out := appendUvarint(make([]byte, 0, 5+len(payload)), crc)
	out = append(out, payload...)
	return out
}

func decodeVariable(b []byte) (Record, int, error) {
	off := 0

	crc, n, err := readUvarint(b[off:])
	if err != nil {
		return Record{}, 0, ErrShort
	}
	off += n
	payloadStart := off

	ts, n, err := readUvarint(b[off:])
	if err != nil {
		return Record{}, 0, ErrShort
	}
	off += n

	if off >= len(b) {
		return Record{}, 0, ErrShort
	}
	tombstone := b[off] != 0
	off++

	klen, n, err := readUvarint(b[off:])
	if err != nil {
		return Record{}, 0, ErrShort
	}
	off += n

	var vlen uint64
	if !tombstone {
		vlen, n, err = readUvarint(b[off:])
		if err != nil {
			return Record{}, 0, ErrShort
		}
		off += n
	}

	end := off + int(klen)
	if !tombstone {
		end += int(vlen)
	}
	if len(b) < end {
		return Record{}, 0, ErrShort
	}

	key := make([]byte, klen)
	copy(key, b[off:off+int(klen)])
	off += int(klen)

	var value []byte
	if !tombstone {
		value = make([]byte, vlen)
		copy(value, b[off:off+int(vlen)])
		off += int(vlen)
	}

	if uint64(crc32.ChecksumIEEE(b[payloadStart:off])) != crc {
		return Record{}, off, ErrCorrupt
	}

	return Record{Timestamp: ts, Tombstone: tombstone, Key: key, Value: value}, off, nil
}

func appendUvarint(dst []byte, v uint64) []byte {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	return append(dst, buf[:n]...)
}

func readUvarint(b []byte) (uint64, int, error) {
	v, n := binary.Uvarint(b)
	if n <= 0 {
		return 0, 0, ErrShort
	}
	return v, n, nil
}
