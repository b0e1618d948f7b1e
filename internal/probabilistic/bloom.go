package probabilistic

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/bits-and-blooms/bitset"
)

// ErrShortBloom is returned when a byte slice is too small to hold a
// serialized BloomFilter header.
var ErrShortBloom = errors.New("probabilistic: bloom filter data too short")

// BloomFilter is a standard Bloom filter: a bit array tested by
// hashFuncCount independent hash functions.
type BloomFilter struct {
	bits          *bitset.BitSet
	hashFuncCount uint8
}

// NewBloomFilter sizes a filter for cap expected elements at the given
// target false-positive probability, following the standard
// m = -(n ln p) / (ln 2)^2, k = (m/n) ln 2 derivation.
func NewBloomFilter(probability float64, cap int) *BloomFilter {
	if cap < 1 {
		cap = 1
	}

	rowLen := uint(-(float64(cap) * math.Log(probability)) / (math.Ln2 * math.Ln2))
	if rowLen < 1 {
		rowLen = 1
	}

	hashFuncCount := uint8(float64(rowLen) / float64(cap) * math.Ln2)
	if hashFuncCount < 1 {
		hashFuncCount = 1
	}

	return &BloomFilter{
		bits:          bitset.New(rowLen),
		hashFuncCount: hashFuncCount,
	}
}

// Add inserts key into the filter.
func (f *BloomFilter) Add(key []byte) {
	for i := uint8(0); i < f.hashFuncCount; i++ {
		idx := hashSeed(key, uint64(i)) % uint64(f.bits.Len())
		f.bits.Set(uint(idx))
	}
}

// Contains reports whether key may be in the filter. False positives
// are possible; false negatives are not.
func (f *BloomFilter) Contains(key []byte) bool {
	for i := uint8(0); i < f.hashFuncCount; i++ {
		idx := hashSeed(key, uint64(i)) % uint64(f.bits.Len())
		if !f.bits.Test(uint(idx)) {
			return false
		}
	}
	return true
}

// Serialize writes [hash_fun_count:1][bit_len:8][packed bits] to a new
// byte slice, following the original engine's header layout with the
// bit payload delegated to bitset's own compact encoding.
func (f *BloomFilter) Serialize() []byte {
	packed, _ := f.bits.MarshalBinary()

	out := make([]byte, 1+8+len(packed))
	out[0] = f.hashFuncCount
	binary.LittleEndian.PutUint64(out[1:9], f.bits.Len())
	copy(out[9:], packed)
	return out
}

// DeserializeBloomFilter parses the output of Serialize.
func DeserializeBloomFilter(data []byte) (*BloomFilter, error) {
	if len(data) < 9 {
		return nil, ErrShortBloom
	}

	hashFuncCount := data[0]
	bitLen := binary.LittleEndian.Uint64(data[1:9])

	bits := &bitset.BitSet{}
	if err := bits.UnmarshalBinary(data[9:]); err != nil {
		return nil, err
	}
	if bits.Len() != bitLen {
		return nil, ErrShortBloom
	}

	return &BloomFilter{bits: bits, hashFuncCount: hashFuncCount}, nil
}
