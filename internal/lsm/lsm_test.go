package lsm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/siltkv/siltkv/internal/config"
	"github.com/siltkv/siltkv/internal/iterator"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.WriteAheadLogDir = filepath.Join(dir, "wal")
	cfg.SSTableDir = filepath.Join(dir, "sstables")
	return cfg
}

func TestInsertGetDelete(t *testing.T) {
	cfg := testConfig(t)
	db, err := Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Insert([]byte("alpha"), []byte("1"), 1))
	require.NoError(t, db.Insert([]byte("beta"), []byte("2"), 2))

	v, ok, err := db.Get([]byte("alpha"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", string(v))

	require.NoError(t, db.Delete([]byte("alpha"), 3))
	_, ok, err = db.Get([]byte("alpha"))
	require.NoError(t, err)
	require.False(t, ok)

	v, ok, err = db.Get([]byte("beta"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", string(v))
}

func TestInsertRejectsReservedPrefix(t *testing.T) {
	cfg := testConfig(t)
	db, err := Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	key := append(append([]byte{}, ReservedPrefix...), []byte("bloom")...)
	err = db.Insert(key, []byte("v"), 1)
	require.ErrorIs(t, err, ErrReservedKey)

	require.NoError(t, db.InsertInternal(key, []byte("v"), 1))
	v, ok, err := db.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", string(v))
}

// flushEveryWrite returns a config whose memtable pool evicts (and thus
// flushes) on every single write, making flush timing deterministic.
func flushEveryWrite(t *testing.T) config.Config {
	cfg := testConfig(t)
	cfg.MemoryTableCapacity = 1
	cfg.MemoryTablePoolNum = 0
	return cfg
}

func TestFlushWritesSSTableAndManifest(t *testing.T) {
	cfg := flushEveryWrite(t)
	db, err := Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Insert([]byte("alpha"), []byte("1"), 1))

	entries, err := os.ReadDir(cfg.SSTableDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	found := false
	for _, e := range entries {
		if e.Name() == manifestFileName {
			found = true
		}
	}
	require.True(t, found, "manifest should exist after a flush")

	v, ok, err := db.Get([]byte("alpha"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", string(v))
}

func TestReopenRecoversState(t *testing.T) {
	cfg := testConfig(t)
	db, err := Open(cfg)
	require.NoError(t, err)

	require.NoError(t, db.Insert([]byte("alpha"), []byte("1"), 1))
	require.NoError(t, db.Insert([]byte("beta"), []byte("2"), 2))
	require.NoError(t, db.Delete([]byte("beta"), 3))
	require.NoError(t, db.Close())

	db2, err := Open(cfg)
	require.NoError(t, err)
	defer db2.Close()

	v, ok, err := db2.Get([]byte("alpha"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", string(v))

	_, ok, err = db2.Get([]byte("beta"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCompactionMergesLevelZero(t *testing.T) {
	cfg := flushEveryWrite(t)
	cfg.LSMMaxPerLevel = 1
	db, err := Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Insert([]byte("a"), []byte("1"), 1))
	require.NoError(t, db.Insert([]byte("b"), []byte("2"), 2))
	require.NoError(t, db.Insert([]byte("c"), []byte("3"), 3))

	require.LessOrEqual(t, len(db.reg.LevelReaders(0)), cfg.LSMMaxPerLevel)
	require.NotEmpty(t, db.reg.LevelReaders(1))

	for _, want := range []struct{ key, val string }{
		{"a", "1"}, {"b", "2"}, {"c", "3"},
	} {
		v, ok, err := db.Get([]byte(want.key))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, want.val, string(v))
	}
}

func TestIterateMergesPoolAndSSTables(t *testing.T) {
	cfg := flushEveryWrite(t)
	db, err := Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Insert([]byte("a"), []byte("1"), 1))
	require.NoError(t, db.Insert([]byte("b"), []byte("2"), 2))
	require.NoError(t, db.Delete([]byte("a"), 3))

	src := db.Iterate(iterator.Options{Type: iterator.ScanAll})
	var keys []string
	for src.Valid() {
		keys = append(keys, string(src.Record().Key))
		src.Next()
	}
	require.Equal(t, []string{"b"}, keys)
}
