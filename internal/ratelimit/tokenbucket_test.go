package ratelimit

import (
	"testing"

	"github.com/siltkv/siltkv/internal/record"
	"github.com/stretchr/testify/require"
)

func TestAllowDrainsCapacity(t *testing.T) {
	clock := record.NewSequenceClock(0)
	b := New(10, 5, clock)

	require.True(t, b.Allow(10))
	require.False(t, b.Allow(1))
}

func TestAllowRefillsOverTime(t *testing.T) {
	clock := record.FixedClock(0)
	b := New(10, 10, clock)
	require.True(t, b.Allow(10))

	b.clock = record.FixedClock(1_000_000) // 1 second later
	require.True(t, b.Allow(5))
}

func TestAllowNeverExceedsCapacity(t *testing.T) {
	clock := record.FixedClock(0)
	b := New(10, 1000, clock)

	b.clock = record.FixedClock(10_000_000) // 10 seconds later, huge refill
	require.True(t, b.Allow(10))
	require.False(t, b.Allow(1))
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	clock := record.FixedClock(42)
	b := New(100, 10, clock)
	b.Allow(30)

	blob := b.Serialize()
	restored, err := Deserialize(blob, clock)
	require.NoError(t, err)

	require.Equal(t, b.Capacity, restored.Capacity)
	require.Equal(t, b.Tokens, restored.Tokens)
	require.Equal(t, b.RefillRate, restored.RefillRate)
}

func TestDeserializeShortBuffer(t *testing.T) {
	_, err := Deserialize([]byte{1, 2, 3}, record.FixedClock(0))
	require.ErrorIs(t, err, ErrShortBucket)
}
