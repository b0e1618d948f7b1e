package kv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenClose(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "test-db")

	db, err := Open(tmpDir)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestPutGet(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "test-db")
	db, err := Open(tmpDir)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put("key1", "value1"))

	val, err := db.Get("key1")
	require.NoError(t, err)
	require.Equal(t, "value1", val)
}

func TestGetNotFound(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "test-db")
	db, err := Open(tmpDir)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Get("nonexistent")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "test-db")
	db, err := Open(tmpDir)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put("key1", "value1"))
	require.NoError(t, db.Delete("key1"))

	_, err = db.Get("key1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "test-db")
	db, err := Open(tmpDir)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put("key1", "value1"))
	require.NoError(t, db.Put("key1", "value2"))

	val, err := db.Get("key1")
	require.NoError(t, err)
	require.Equal(t, "value2", val)
}

func TestMultipleKeys(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "test-db")
	db, err := Open(tmpDir)
	require.NoError(t, err)
	defer db.Close()

	testData := map[string]string{
		"key1": "value1",
		"key2": "value2",
		"key3": "value3",
	}

	for k, v := range testData {
		require.NoError(t, db.Put(k, v))
	}

	for k, expectedV := range testData {
		val, err := db.Get(k)
		require.NoError(t, err)
		require.Equal(t, expectedV, val)
	}
}

func TestDeleteNonExistent(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "test-db")
	db, err := Open(tmpDir)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Delete("nonexistent"))
}

func TestClosedDB(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "test-db")
	db, err := Open(tmpDir)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	require.ErrorIs(t, db.Put("key", "value"), ErrClosed)

	_, err = db.Get("key")
	require.ErrorIs(t, err, ErrClosed)

	require.ErrorIs(t, db.Delete("key"), ErrClosed)
}

func TestReopenPersistsData(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "test-db")
	db, err := Open(tmpDir)
	require.NoError(t, err)

	require.NoError(t, db.Put("key1", "value1"))
	require.NoError(t, db.Close())

	db2, err := Open(tmpDir)
	require.NoError(t, err)
	defer db2.Close()

	val, err := db2.Get("key1")
	require.NoError(t, err)
	require.Equal(t, "value1", val)
}
