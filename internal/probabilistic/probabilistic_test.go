package probabilistic

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBloomFilterNoFalseNegatives(t *testing.T) {
	f := NewBloomFilter(0.01, 1000)

	keys := make([][]byte, 0, 500)
	for i := 0; i < 500; i++ {
		keys = append(keys, []byte(fmt.Sprintf("key-%d", i)))
	}
	for _, k := range keys {
		f.Add(k)
	}
	for _, k := range keys {
		require.True(t, f.Contains(k))
	}
}

func TestBloomFilterSerializeRoundTrip(t *testing.T) {
	f := NewBloomFilter(0.05, 100)
	f.Add([]byte("alpha"))
	f.Add([]byte("beta"))

	blob := f.Serialize()
	restored, err := DeserializeBloomFilter(blob)
	require.NoError(t, err)

	require.True(t, restored.Contains([]byte("alpha")))
	require.True(t, restored.Contains([]byte("beta")))
}

func TestBloomFilterDeserializeShort(t *testing.T) {
	_, err := DeserializeBloomFilter([]byte{1, 2})
	require.ErrorIs(t, err, ErrShortBloom)
}

func TestCountMinSketchNeverUnderestimates(t *testing.T) {
	c := NewCountMinSketch(0.01, 0.01)

	for i := 0; i < 10; i++ {
		c.IncreaseCount([]byte("hot-key"))
	}
	for i := 0; i < 3; i++ {
		c.IncreaseCount([]byte("warm-key"))
	}

	require.GreaterOrEqual(t, c.GetCount([]byte("hot-key")), uint64(10))
	require.GreaterOrEqual(t, c.GetCount([]byte("warm-key")), uint64(3))
	require.Equal(t, uint64(0), c.GetCount([]byte("never-seen")))
}

func TestCountMinSketchSerializeRoundTrip(t *testing.T) {
	c := NewCountMinSketch(0.01, 0.01)
	c.IncreaseCount([]byte("a"))
	c.IncreaseCount([]byte("a"))

	blob := c.Serialize()
	restored, err := DeserializeCountMinSketch(blob)
	require.NoError(t, err)
	require.Equal(t, c.GetCount([]byte("a")), restored.GetCount([]byte("a")))
}

func TestHyperLogLogEstimatesWithinTolerance(t *testing.T) {
	h := NewHyperLogLog(10)

	const n = 5000
	for i := 0; i < n; i++ {
		h.Add([]byte(fmt.Sprintf("item-%d", i)))
	}

	got := h.Count()
	low, high := uint64(n*0.9), uint64(n*1.1)
	require.GreaterOrEqual(t, got, low)
	require.LessOrEqual(t, got, high)
}

func TestHyperLogLogSerializeRoundTrip(t *testing.T) {
	h := NewHyperLogLog(8)
	h.Add([]byte("x"))
	h.Add([]byte("y"))

	blob := h.Serialize()
	restored, err := DeserializeHyperLogLog(blob)
	require.NoError(t, err)
	require.Equal(t, h.Count(), restored.Count())
}

func TestSimHashSimilarTextsAreClose(t *testing.T) {
	a := "the quick brown fox jumps over the lazy dog"
	b := "the quick brown fox jumps over a lazy dog"

	dist := HammingDistance(a, b)
	require.Less(t, dist, uint8(20))
}

func TestSimHashIdenticalTextZeroDistance(t *testing.T) {
	text := "repeated content for hashing"
	require.Equal(t, uint8(0), HammingDistance(text, text))
}
