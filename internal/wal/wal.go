// Package wal implements the engine's write-ahead log: a segmented,
// append-only directory of record files with entry-count and byte-size
// caps per segment, a persisted byte-cursor low-water-mark that gates
// both replay and segment garbage collection, and a background fsync
// loop for time-driven durability.
package wal

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/siltkv/siltkv/internal/record"
)

var (
	// ErrClosed is returned by Append/Sync/Replay once the WAL has been closed.
	ErrClosed = errors.New("wal: writer is closed")
)

const (
	cursorFileName = "CURSOR"
	segmentExt     = ".wseg"
)

// Options configures segment rotation thresholds and the record codec.
type Options struct {
	MaxEntriesPerSegment int
	MaxBytesPerSegment   int64
	VariableEncoding     bool
	Clock                record.Clock
	SyncInterval         time.Duration
}

// DefaultOptions returns sensible defaults for an embedded deployment.
func DefaultOptions() Options {
	return Options{
		MaxEntriesPerSegment: 10_000,
		MaxBytesPerSegment:   16 << 20,
		VariableEncoding:     false,
		Clock:                record.SystemClock{},
		SyncInterval:         time.Second,
	}
}

// segment tracks one WAL file's position in the global (conceptually
// concatenated) byte stream. Rotation only ever happens at record
// boundaries, so a segment's [startOffset, startOffset+length) range
// never splits a record across the segment boundary.
type segment struct {
	index       uint64
	path        string
	startOffset uint64
	length      uint64
	entries     int
	file        *os.File
}

// LoadResult reports replay statistics, in the teacher's style.
type LoadResult struct {
	Recovered int
	Skipped   int
}

// WAL is a segmented, crash-recoverable append log.
type WAL struct {
	mu       sync.Mutex
	dir      string
	opts     Options
	segments []*segment
	active   *segment
	cursor   uint64
	closed   bool
	asyncErr error

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Open opens (or creates) a WAL rooted at dir, replaying segment
// metadata and the persisted cursor from disk.
func Open(dir string, opts Options) (*WAL, error) {
	if opts.Clock == nil {
		opts.Clock = record.SystemClock{}
	}
	if opts.MaxEntriesPerSegment <= 0 {
		opts.MaxEntriesPerSegment = DefaultOptions().MaxEntriesPerSegment
	}
	if opts.MaxBytesPerSegment <= 0 {
		opts.MaxBytesPerSegment = DefaultOptions().MaxBytesPerSegment
	}
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = DefaultOptions().SyncInterval
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	segments, err := discoverSegments(dir)
	if err != nil {
		return nil, err
	}

	w := &WAL{
		dir:      dir,
		opts:     opts,
		segments: segments,
		cursor:   readCursor(dir),
		stopCh:   make(chan struct{}),
	}

	if len(segments) == 0 {
		if err := w.rotate(); err != nil {
			return nil, err
		}
	} else {
		last := segments[len(segments)-1]
		f, err := os.OpenFile(last.path, os.O_APPEND|os.O_RDWR, 0o644)
		if err != nil {
			return nil, err
		}
		last.file = f
		w.active = last
	}

	w.wg.Add(1)
	go w.syncLoop()

	return w, nil
}

func discoverSegments(dir string) ([]*segment, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var segments []*segment
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), segmentExt) {
			continue
		}
		idx, ok := parseSegmentIndex(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		segments = append(segments, &segment{
			index:  idx,
			path:   filepath.Join(dir, e.Name()),
			length: uint64(info.Size()),
		})
	}

	sort.Slice(segments, func(i, j int) bool { return segments[i].index < segments[j].index })

	var offset uint64
	for _, s := range segments {
		s.startOffset = offset
		offset += s.length
	}

	return segments, nil
}

func parseSegmentIndex(name string) (uint64, bool) {
	base := strings.TrimSuffix(name, segmentExt)
	parts := strings.SplitN(base, "-", 2)
	if len(parts) != 2 {
		return 0, false
	}
	idx, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return idx, true
}

func segmentName(index uint64) string {
	return strconv.FormatUint(index, 10) + "-" + uuid.NewString() + segmentExt
}

// rotate closes the current active segment (if any) and opens a fresh
// one, appended to segments. Caller must hold mu.
func (w *WAL) rotate() error {
	var nextIndex uint64
	var startOffset uint64
	if w.active != nil {
		if err := w.active.file.Sync(); err != nil {
			return err
		}
		if err := w.active.file.Close(); err != nil {
			return err
		}
		nextIndex = w.active.index + 1
		startOffset = w.active.startOffset + w.active.length
	}

	path := filepath.Join(w.dir, segmentName(nextIndex))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}

	s := &segment{index: nextIndex, path: path, startOffset: startOffset, file: f}
	w.segments = append(w.segments, s)
	w.active = s
	return nil
}

// Append encodes rec and writes it to the active segment, rotating
// first if the active segment has hit its entry or byte cap. It returns
// the record's ending offset in the WAL's global byte stream, which the
// caller can later hand to AdvanceCursor once the corresponding
// memtable generation has been flushed.
func (w *WAL) Append(rec record.Record) (uint64, error) {
	enc := record.Encode(rec, w.opts.VariableEncoding)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrClosed
	}
	if w.asyncErr != nil {
		return 0, w.asyncErr
	}

	if w.active.entries > 0 &&
		(w.active.entries >= w.opts.MaxEntriesPerSegment ||
			w.active.length+uint64(len(enc)) > uint64(w.opts.MaxBytesPerSegment)) {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	if _, err := w.active.file.Write(enc); err != nil {
		return 0, err
	}
	w.active.length += uint64(len(enc))
	w.active.entries++

	return w.active.startOffset + w.active.length, nil
}

// Sync forces the active segment to durable storage.
func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	return w.active.file.Sync()
}

// Replay walks every byte from the persisted cursor forward, applying
// apply to each successfully decoded record. Corrupt records are
// skipped, not fatal, mirroring the teacher's fault-tolerant Load.
func (w *WAL) Replay(apply func(record.Record)) (*LoadResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	result := &LoadResult{}

	for _, s := range w.segments {
		segEnd := s.startOffset + s.length
		if segEnd <= w.cursor {
			continue
		}

		localStart := uint64(0)
		if w.cursor > s.startOffset {
			localStart = w.cursor - s.startOffset
		}

		data, err := os.ReadFile(s.path)
		if err != nil {
			return nil, err
		}
		if uint64(len(data)) < localStart {
			continue
		}
		data = data[localStart:]

		for len(data) > 0 {
			rec, n, err := record.Decode(data, w.opts.VariableEncoding)
			if err != nil {
				result.Skipped++
				if n <= 0 {
					break
				}
				data = data[n:]
				continue
			}
			apply(rec)
			result.Recovered++
			data = data[n:]
		}
	}

	return result, nil
}

// AdvanceCursor moves the low-water-mark forward to offset (a value
// previously returned by Append) and persists it, then deletes any
// segment fully below the new cursor.
func (w *WAL) AdvanceCursor(offset uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if offset > w.cursor {
		w.cursor = offset
	}
	if err := writeCursor(w.dir, w.cursor); err != nil {
		return err
	}

	return w.gcLocked()
}

func (w *WAL) gcLocked() error {
	kept := w.segments[:0:0]
	for _, s := range w.segments {
		segEnd := s.startOffset + s.length
		if segEnd <= w.cursor && s != w.active {
			if s.file != nil {
				s.file.Close()
			}
			if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
				return err
			}
			continue
		}
		kept = append(kept, s)
	}
	w.segments = kept
	return nil
}

// Close stops the background fsync loop and closes the active segment.
func (w *WAL) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.wg.Wait()
		return nil
	}
	w.closed = true
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()

	syncErr := w.active.file.Sync()
	closeErr := w.active.file.Close()
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}

func (w *WAL) syncLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.opts.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.mu.Lock()
			if w.closed {
				w.mu.Unlock()
				return
			}
			err := w.active.file.Sync()
			if err != nil && w.asyncErr == nil {
				w.asyncErr = err
			}
			w.mu.Unlock()
		case <-w.stopCh:
			return
		}
	}
}

func readCursor(dir string) uint64 {
	data, err := os.ReadFile(filepath.Join(dir, cursorFileName))
	if err != nil {
		return 0
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func writeCursor(dir string, offset uint64) error {
	tmp := filepath.Join(dir, cursorFileName+".tmp")
	if err := os.WriteFile(tmp, []byte(strconv.FormatUint(offset, 10)), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, cursorFileName))
}
