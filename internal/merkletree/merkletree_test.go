package merkletree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootDeterministic(t *testing.T) {
	data := make([]byte, ChunkSize*5+10)
	for i := range data {
		data[i] = byte(i)
	}

	t1 := New(data)
	t2 := New(data)

	require.NotEmpty(t, t1.Root())
	require.Equal(t, t1.Root(), t2.Root())
}

func TestDifferentChunksDetectsSingleChange(t *testing.T) {
	data := make([]byte, ChunkSize*4)
	for i := range data {
		data[i] = byte(i)
	}

	modified := make([]byte, len(data))
	copy(modified, data)
	modified[ChunkSize*2+5] ^= 0xFF

	a := New(data)
	b := New(modified)

	diffs := a.DifferentChunks(b)
	require.Equal(t, []int{2}, diffs)
}

func TestDifferentChunksNoneWhenEqual(t *testing.T) {
	data := []byte("hello merkle world")
	a := New(data)
	b := New(data)

	require.Empty(t, a.DifferentChunks(b))
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	data := make([]byte, ChunkSize*3+1)
	for i := range data {
		data[i] = byte(i * 7)
	}

	tree := New(data)
	blob := tree.Serialize()

	restored := Deserialize(blob)
	require.Equal(t, tree.Root(), restored.Root())
}

func TestEmptyTree(t *testing.T) {
	tree := New(nil)
	require.Empty(t, tree.Root())
	require.Empty(t, tree.DifferentChunks(New(nil)))
}
