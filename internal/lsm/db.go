// Package lsm coordinates the engine's write/read path: the memtable
// pool (§4.4), the write-ahead log, the on-disk level registry, and
// compaction, presented as one synchronous DB value per spec §5's
// single-threaded cooperative model — a public call runs its own
// flush and compaction inline and returns only once durable, rather
// than handing work to a background worker.
package lsm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/siltkv/siltkv/internal/compaction"
	"github.com/siltkv/siltkv/internal/config"
	"github.com/siltkv/siltkv/internal/iterator"
	"github.com/siltkv/siltkv/internal/memtable"
	"github.com/siltkv/siltkv/internal/record"
	"github.com/siltkv/siltkv/internal/sstable"
	"github.com/siltkv/siltkv/internal/wal"
)

// ErrClosed is returned by DB operations after Close.
var ErrClosed = errors.New("lsm: db is closed")

// ErrReservedKey is returned when a caller tries to write a key under
// the engine-reserved prefix through the public Insert/Delete path.
var ErrReservedKey = errors.New("lsm: key uses the reserved prefix")

// ReservedPrefix marks keys the engine itself owns (persisted
// probabilistic-structure and rate-limiter state); ordinary callers
// may not write under it directly.
var ReservedPrefix = []byte("__siltkv/")

// DB is the coordinator described by spec §4.7: it owns the memtable
// pool and the level registry, and drives flush and compaction as a
// direct consequence of writes rather than as background work.
type DB struct {
	cfg config.Config

	pool      *memtable.Pool
	wal       *wal.WAL
	reg       *registry
	compactor *compaction.Compactor

	closed bool
}

// Open builds a DB from cfg (spec's build(cfg)), then reconstructs its
// state from whatever is on disk: the level registry from the
// manifest, the memtable pool by replaying the write-ahead log from
// its persisted cursor (spec's reconstruct_from_wal/load_from_dir).
func Open(cfg config.Config) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("lsm: invalid configuration: %w", err)
	}

	if err := os.MkdirAll(cfg.SSTableDir, 0o755); err != nil {
		return nil, err
	}

	cfg, err := cfg.LoadCompressionDictionary()
	if err != nil {
		return nil, fmt.Errorf("lsm: loading compression dictionary: %w", err)
	}

	reg, err := loadRegistry(cfg.SSTableDir, cfg.SSTableDir, cfg.LSMMaxLevel, cfg.LSMMaxPerLevel, cfg.WriteOptions(), cfg.Dictionary())
	if err != nil {
		return nil, fmt.Errorf("lsm: loading registry: %w", err)
	}

	w, err := wal.Open(cfg.WriteAheadLogDir, cfg.WALOptions())
	if err != nil {
		return nil, fmt.Errorf("lsm: opening wal: %w", err)
	}

	pool := memtable.NewPool(cfg.MemtableConfig())

	db := &DB{
		cfg:       cfg,
		pool:      pool,
		wal:       w,
		reg:       reg,
		compactor: compaction.NewCompactor(cfg.CompactionPolicy(), 1),
	}

	if _, err := w.Replay(func(rec record.Record) {
		var evicted *memtable.Generation
		if rec.Tombstone {
			evicted, _ = pool.Delete(rec.Key, rec.Timestamp, 0)
		} else {
			evicted, _ = pool.Insert(rec.Key, rec.Value, rec.Timestamp, 0)
		}
		if evicted != nil {
			// Replay only reconstructs the pool; the offset a replayed
			// record carries is stale relative to the live WAL cursor,
			// so an eviction produced here is flushed without advancing
			// the cursor — there's nothing yet written past it to drop.
			_ = db.flushGeneration(*evicted)
		}
	}); err != nil {
		w.Close()
		return nil, fmt.Errorf("lsm: replaying wal: %w", err)
	}

	return db, nil
}

// Close flushes every remaining memtable generation to disk, then
// closes the write-ahead log. It runs synchronously and leaves no
// background work outstanding.
func (db *DB) Close() error {
	if db.closed {
		return ErrClosed
	}
	db.closed = true

	for {
		gen, ok := db.pool.PopOldestFrozen()
		if !ok {
			break
		}
		if err := db.flushGeneration(gen); err != nil {
			return err
		}
	}
	if err := db.flushActive(); err != nil {
		return err
	}

	return db.wal.Close()
}

// flushActive force-flushes the active table even if it hasn't hit its
// fill threshold, so Close never drops unflushed writes.
func (db *DB) flushActive() error {
	active := db.pool.AllTables()[0]
	if active.Len() == 0 {
		return nil
	}
	return db.flushGeneration(memtable.Generation{Table: active, WALOffset: 0})
}

// Insert writes key/value at timestamp ts, rejecting the reserved
// prefix (spec §7's reserved-key violation).
func (db *DB) Insert(key, value []byte, ts uint64) error {
	if bytes.HasPrefix(key, ReservedPrefix) {
		return ErrReservedKey
	}
	return db.insert(key, value, ts)
}

// InsertInternal writes key/value at timestamp ts without the
// reserved-prefix check, for the engine's own bookkeeping writes.
func (db *DB) InsertInternal(key, value []byte, ts uint64) error {
	return db.insert(key, value, ts)
}

func (db *DB) insert(key, value []byte, ts uint64) error {
	if db.closed {
		return ErrClosed
	}

	offset, err := db.wal.Append(record.Record{Timestamp: ts, Key: key, Value: value})
	if err != nil {
		return err
	}

	evicted, _ := db.pool.Insert(key, value, ts, offset)
	if evicted != nil {
		if err := db.flushGeneration(*evicted); err != nil {
			return err
		}
	}
	return nil
}

// Delete writes a tombstone for key at timestamp ts.
func (db *DB) Delete(key []byte, ts uint64) error {
	if bytes.HasPrefix(key, ReservedPrefix) {
		return ErrReservedKey
	}
	if db.closed {
		return ErrClosed
	}

	offset, err := db.wal.Append(record.Record{Timestamp: ts, Tombstone: true, Key: key})
	if err != nil {
		return err
	}

	evicted, _ := db.pool.Delete(key, ts, offset)
	if evicted != nil {
		if err := db.flushGeneration(*evicted); err != nil {
			return err
		}
	}
	return nil
}

// Get looks up key: the pool first, then SSTables level 0 upward,
// newest table to oldest within a level, per spec §4.7.
func (db *DB) Get(key []byte) ([]byte, bool, error) {
	if db.closed {
		return nil, false, ErrClosed
	}

	if e, ok := db.pool.Get(key); ok {
		if e.Tombstone {
			return nil, false, nil
		}
		return e.Value, true, nil
	}

	for level := 0; level < db.reg.NumLevels(); level++ {
		readers := db.reg.LevelReaders(level)
		for i := len(readers) - 1; i >= 0; i-- {
			rec, found, err := readers[i].Get(key)
			if err != nil || !found {
				continue
			}
			if rec.Tombstone {
				return nil, false, nil
			}
			return rec.Value, true, nil
		}
	}

	return nil, false, nil
}

// Iterate builds a merged, bounded read view across the pool and every
// on-disk table (spec §4.8).
func (db *DB) Iterate(opts iterator.Options) sstable.RecordSource {
	return iterator.New(db.pool, db.reg.AllReaders(), opts)
}

// Paginate builds a Paginator over the same merged, bounded view
// Iterate would produce, rebuilding that view fresh on every page or
// incremental step (spec §4.8's paginator, built to tolerate the pool
// and level registry changing between calls).
func (db *DB) Paginate(opts iterator.Options) *iterator.Paginator {
	return iterator.NewPaginator(func() (iterator.RecordSource, func()) {
		return iterator.New(db.pool, db.reg.AllReaders(), opts), func() {}
	})
}

// flushGeneration writes gen's table to a fresh level-0 SSTable,
// registers it in the level registry, advances the WAL's durability
// cursor past the records it covers, and runs one round of compaction
// if level 0 is now over threshold — all inline on the calling
// goroutine, per spec §5.
func (db *DB) flushGeneration(gen memtable.Generation) error {
	path := db.reg.NextTablePath(0)
	src := iterator.NewMemtableSource(gen.Table.Iterator())

	if _, err := sstable.Write(path, src, db.cfg.WriteOptions()); err != nil {
		return fmt.Errorf("lsm: flushing to %q: %w", path, err)
	}

	reader, err := sstable.Open(path, db.cfg.WriteOptions().Layout, db.cfg.UseVariableEncoding, db.cfg.CacheMaxSize, db.cfg.Dictionary())
	if err != nil {
		return fmt.Errorf("lsm: reopening flushed table %q: %w", path, err)
	}

	if err := db.reg.Commit([]compaction.LevelChange{{Level: 0, Add: []compaction.TableHandle{reader}}}); err != nil {
		return err
	}

	if gen.WALOffset > 0 {
		if err := db.wal.AdvanceCursor(gen.WALOffset); err != nil {
			return err
		}
	}

	if !db.cfg.CompactionEnabled {
		return nil
	}
	if len(db.reg.Tables(0)) <= db.cfg.LSMMaxPerLevel {
		return nil
	}
	return db.compactor.Run(context.Background(), db.reg)
}
