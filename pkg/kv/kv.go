// Package kv is the engine's simple string-keyed facade over internal/lsm:
// the same durability and compaction guarantees, without the byte-slice
// and timestamp plumbing a caller embedding the engine shouldn't need to
// think about.
package kv

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/siltkv/siltkv/internal/config"
	"github.com/siltkv/siltkv/internal/lsm"
	"github.com/siltkv/siltkv/internal/record"
)

// ErrNotFound is returned when a key is not found.
var ErrNotFound = errors.New("kv: key not found")

// ErrClosed is returned when the DB is closed.
var ErrClosed = errors.New("kv: db is closed")

// DB is a string key-value database backed by an LSM engine instance.
type DB struct {
	db    *lsm.DB
	clock record.Clock
}

// Open opens a database rooted at path, creating it if it doesn't
// exist. The write-ahead log and SSTables are kept in subdirectories of
// path so a caller only has to name one directory.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("kv: path cannot be empty")
	}

	cfg := config.Default()
	cfg.WriteAheadLogDir = filepath.Join(path, "wal")
	cfg.SSTableDir = filepath.Join(path, "sstables")
	return OpenConfig(cfg)
}

// OpenConfig opens a database using a fully specified configuration,
// for callers that need control over memtable backend, compaction
// policy, or any other tunable spec §6 exposes.
func OpenConfig(cfg config.Config) (*DB, error) {
	lsmDB, err := lsm.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("kv: failed to open database: %w", err)
	}
	return &DB{db: lsmDB, clock: record.SystemClock{}}, nil
}

// Close closes the database and releases all resources.
func (db *DB) Close() error {
	if err := db.db.Close(); err != nil {
		if errors.Is(err, lsm.ErrClosed) {
			return ErrClosed
		}
		return err
	}
	return nil
}

// Put stores a key-value pair in the database, stamped with the
// current time. If the key already exists, its value is updated.
func (db *DB) Put(key, value string) error {
	err := db.db.Insert([]byte(key), []byte(value), db.clock.Now())
	if err != nil {
		if errors.Is(err, lsm.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("kv: put failed: %w", err)
	}
	return nil
}

// Get retrieves the value for a given key. Returns ErrNotFound if the
// key doesn't exist (including if it was deleted).
func (db *DB) Get(key string) (string, error) {
	val, found, err := db.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, lsm.ErrClosed) {
			return "", ErrClosed
		}
		return "", fmt.Errorf("kv: get failed: %w", err)
	}
	if !found {
		return "", ErrNotFound
	}
	return string(val), nil
}

// Delete removes a key from the database. If the key doesn't exist,
// it's a no-op (no error returned).
func (db *DB) Delete(key string) error {
	err := db.db.Delete([]byte(key), db.clock.Now())
	if err != nil {
		if errors.Is(err, lsm.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("kv: delete failed: %w", err)
	}
	return nil
}
