package record

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFixedRoundTrip(t *testing.T) {
	cases := []Record{
		{Timestamp: 1, Tombstone: false, Key: []byte("k"), Value: []byte("v")},
		{Timestamp: 42, Tombstone: true, Key: []byte("deleted-key")},
		{Timestamp: 0, Tombstone: false, Key: []byte(""), Value: []byte("")},
		{Timestamp: 123456789, Tombstone: false, Key: []byte("long-key-here"), Value: make([]byte, 4096)},
	}

	for _, c := range cases {
		enc := Encode(c, false)
		got, n, err := Decode(enc, false)
		require.NoError(t, err)
		require.Equal(t, len(enc), n)
		require.Equal(t, c.Timestamp, got.Timestamp)
		require.Equal(t, c.Tombstone, got.Tombstone)
		require.Equal(t, c.Key, got.Key)
		if c.Tombstone {
			require.Empty(t, got.Value)
		} else {
			require.Equal(t, c.Value, got.Value)
		}
	}
}

func TestEncodeDecodeVariableRoundTrip(t *testing.T) {
	cases := []Record{
		{Timestamp: 1, Tombstone: false, Key: []byte("k"), Value: []byte("v")},
		{Timestamp: 42, Tombstone: true, Key: []byte("deleted-key")},
		{Timestamp: 987654321, Tombstone: false, Key: []byte("abc"), Value: []byte("xyz123")},
	}

	for _, c := range cases {
		enc := Encode(c, true)
		got, n, err := Decode(enc, true)
		require.NoError(t, err)
		require.Equal(t, len(enc), n)
		require.Equal(t, c.Timestamp, got.Timestamp)
		require.Equal(t, c.Tombstone, got.Tombstone)
		require.Equal(t, c.Key, got.Key)
		if c.Tombstone {
			require.Empty(t, got.Value)
		} else {
			require.Equal(t, c.Value, got.Value)
		}
	}
}

func TestDecodeFixedCorruptCRC(t *testing.T) {
	r := Record{Timestamp: 1, Key: []byte("k"), Value: []byte("v")}
	enc := Encode(r, false)
	enc[len(enc)-1] ^= 0xFF

	_, _, err := Decode(enc, false)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestDecodeVariableCorruptCRC(t *testing.T) {
	r := Record{Timestamp: 1, Key: []byte("k"), Value: []byte("v")}
	enc := Encode(r, true)
	enc[len(enc)-1] ^= 0xFF

	_, _, err := Decode(enc, true)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestDecodeFixedShortBuffer(t *testing.T) {
	_, _, err := Decode([]byte{1, 2, 3}, false)
	require.ErrorIs(t, err, ErrShort)
}

func TestDecodeVariableShortBuffer(t *testing.T) {
	_, _, err := Decode([]byte{}, true)
	require.ErrorIs(t, err, ErrShort)
}

func TestEncodeFixedConsecutiveRecordsAreIndependentlyDecodable(t *testing.T) {
	a := Record{Timestamp: 1, Key: []byte("a"), Value: []byte("1")}
	b := Record{Timestamp: 2, Key: []byte("b"), Value: []byte("2")}

	buf := append(Encode(a, false), Encode(b, false)...)

	got1, n1, err := Decode(buf, false)
	require.NoError(t, err)
	require.Equal(t, a.Key, got1.Key)

	got2, _, err := Decode(buf[n1:], false)
	require.NoError(t, err)
	require.Equal(t, b.Key, got2.Key)
}

func TestSequenceClockIncreasing(t *testing.T) {
	c := NewSequenceClock(100)
	require.Equal(t, uint64(100), c.Now())
	require.Equal(t, uint64(101), c.Now())
	require.Equal(t, uint64(102), c.Now())
}

func TestFixedClock(t *testing.T) {
	c := FixedClock(7)
	require.Equal(t, uint64(7), c.Now())
	require.Equal(t, uint64(7), c.Now())
}
