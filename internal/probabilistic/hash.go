// Package probabilistic implements the approximate-membership and
// approximate-cardinality structures that ride on top of the engine
// through reserved key prefixes: a Bloom filter, a Count-Min sketch, a
// HyperLogLog, and SimHash/Hamming-distance helpers.
package probabilistic

import "github.com/cespare/xxhash/v2"

// hashSeed returns a seeded 64-bit hash of key, used to derive the i-th
// of several independent-looking hash functions from a single hash
// family, mirroring the original engine's xxh3 hash64_with_seed calls.
func hashSeed(key []byte, seed uint64) uint64 {
	d := xxhash.NewWithSeed(seed)
	d.Write(key)
	return d.Sum64()
}
