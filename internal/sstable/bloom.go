package sstable

import (
	"bytes"

	"github.com/bits-and-blooms/bloom/v3"
)

// defaultFalsePositiveRate matches the teacher's original bloom filter
// tuning for point-lookup skip decisions.
const defaultFalsePositiveRate = 0.01

func newBloomFilter(expectedKeys int) *bloom.BloomFilter {
	if expectedKeys < 1 {
		expectedKeys = 1
	}
	return bloom.NewWithEstimates(uint(expectedKeys), defaultFalsePositiveRate)
}

func encodeBloomFilter(f *bloom.BloomFilter) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeBloomFilter(data []byte) (*bloom.BloomFilter, error) {
	f := &bloom.BloomFilter{}
	if _, err := f.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return f, nil
}
