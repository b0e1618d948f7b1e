// Package compression implements the key-substitution dictionary
// backing an SSTable's optional data-region compression (spec §4's
// use_compression / compression_dictionary_path): every key is
// assigned a small integer id the first time it's seen, and the data
// region stores that id instead of the key itself.
package compression

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// ErrKeyTooLong is returned for a key longer than 255 bytes: the
// on-disk entry format is a single length byte followed by the key.
var ErrKeyTooLong = errors.New("compression: key exceeds 255 bytes")

// Dictionary maps keys to ids and back, persisting new assignments to
// a side file as they're made. It satisfies sstable.Dictionary.
type Dictionary struct {
	path string
	file *os.File
	list [][]byte
	ids  map[string]uint64
}

// Load opens (creating if absent) the dictionary file at path and
// replays its entries to rebuild the id assignments in memory.
func Load(path string) (*Dictionary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		raw = nil
	}

	d := &Dictionary{path: path, ids: make(map[string]uint64)}
	for buf := raw; len(buf) > 0; {
		n := int(buf[0])
		if len(buf) < 1+n {
			return nil, fmt.Errorf("compression: %s: truncated entry", path)
		}
		key := append([]byte(nil), buf[1:1+n]...)
		d.ids[string(key)] = uint64(len(d.list))
		d.list = append(d.list, key)
		buf = buf[1+n:]
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	d.file = f
	return d, nil
}

// Close releases the dictionary's backing file handle.
func (d *Dictionary) Close() error {
	return d.file.Close()
}

// Add bulk-registers any of keys not already assigned an id, in a
// single append to the backing file — used once per flush/compaction
// batch ahead of the per-record Encode pass, so that a key repeated
// later in the same batch never gets a second id.
func (d *Dictionary) Add(keys [][]byte) error {
	var pending []byte
	for _, key := range keys {
		if _, ok := d.ids[string(key)]; ok {
			continue
		}
		entry, err := encodeEntry(key)
		if err != nil {
			return err
		}
		d.ids[string(key)] = uint64(len(d.list))
		d.list = append(d.list, append([]byte(nil), key...))
		pending = append(pending, entry...)
	}
	if len(pending) == 0 {
		return nil
	}
	_, err := d.file.Write(pending)
	return err
}

// Encode returns key's id as an 8-byte little-endian value, assigning
// and persisting a new one immediately if key hasn't been seen before.
func (d *Dictionary) Encode(key []byte) ([]byte, error) {
	if id, ok := d.ids[string(key)]; ok {
		return idBytes(id), nil
	}

	entry, err := encodeEntry(key)
	if err != nil {
		return nil, err
	}
	id := uint64(len(d.list))
	d.ids[string(key)] = id
	d.list = append(d.list, append([]byte(nil), key...))
	if _, err := d.file.Write(entry); err != nil {
		return nil, err
	}
	return idBytes(id), nil
}

// Decode reverses Encode, returning an error if id was never assigned
// by this dictionary.
func (d *Dictionary) Decode(id []byte) ([]byte, error) {
	if len(id) != 8 {
		return nil, fmt.Errorf("compression: malformed id (want 8 bytes, got %d)", len(id))
	}
	idx := binary.LittleEndian.Uint64(id)
	if idx >= uint64(len(d.list)) {
		return nil, fmt.Errorf("compression: id %d out of range (have %d entries)", idx, len(d.list))
	}
	return d.list[idx], nil
}

func encodeEntry(key []byte) ([]byte, error) {
	if len(key) > 255 {
		return nil, ErrKeyTooLong
	}
	entry := make([]byte, 1+len(key))
	entry[0] = byte(len(key))
	copy(entry[1:], key)
	return entry, nil
}

func idBytes(id uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, id)
	return b
}
