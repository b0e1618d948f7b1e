package lsm

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/siltkv/siltkv/internal/compaction"
	"github.com/siltkv/siltkv/internal/sstable"
	"golang.org/x/sync/errgroup"
)

// registry is the in-memory level directory: one ordered (oldest
// first) slice of opened SSTable readers per level, backed by the
// on-disk manifest. It implements compaction.LevelStore so the
// compaction package can drive it without ever importing this package.
type registry struct {
	mu sync.RWMutex

	dataDir    string
	sstableDir string
	maxLevel   int
	maxPer     int
	writeOpts  sstable.WriteOptions
	dict       sstable.Dictionary

	levels [][]*sstable.Reader
}

func newRegistry(dataDir, sstableDir string, maxLevel, maxPer int, writeOpts sstable.WriteOptions, dict sstable.Dictionary) *registry {
	return &registry{
		dataDir:    dataDir,
		sstableDir: sstableDir,
		maxLevel:   maxLevel,
		maxPer:     maxPer,
		writeOpts:  writeOpts,
		dict:       dict,
		levels:     make([][]*sstable.Reader, maxLevel),
	}
}

// loadRegistry opens every table the manifest lists, fanning the opens
// out across goroutines since each is an independent disk read; it
// blocks until every open completes (or the first one fails) before
// returning, so callers still see a synchronous Open. dict is passed to
// every opened reader so point lookups and scans can reverse whatever
// key substitution the table was written with.
func loadRegistry(dataDir, sstableDir string, maxLevel, maxPer int, writeOpts sstable.WriteOptions, dict sstable.Dictionary) (*registry, error) {
	doc, err := loadManifest(dataDir)
	if err != nil {
		return nil, err
	}

	reg := newRegistry(dataDir, sstableDir, maxLevel, maxPer, writeOpts, dict)
	if len(doc.Levels) > reg.maxLevel {
		doc.Levels = doc.Levels[:reg.maxLevel]
	}

	var g errgroup.Group
	for level, entries := range doc.Levels {
		level, entries := level, entries
		readers := make([]*sstable.Reader, len(entries))
		for i, e := range entries {
			i, e := i, e
			g.Go(func() error {
				layout := sstable.LayoutFivefile
				if e.SingleFile {
					layout = sstable.LayoutSingleFile
				}
				path := filepath.Join(dataDir, e.Path)
				r, err := sstable.Open(path, layout, writeOpts.Variable, writeOpts.CacheMaxSize, dict)
				if err != nil {
					return fmt.Errorf("lsm: opening table %q: %w", path, err)
				}
				readers[i] = r
				return nil
			})
		}
		reg.levels[level] = readers
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reg, nil
}

// Tables implements compaction.LevelStore.
func (r *registry) Tables(level int) []compaction.TableHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if level < 0 || level >= len(r.levels) {
		return nil
	}
	out := make([]compaction.TableHandle, len(r.levels[level]))
	for i, reader := range r.levels[level] {
		out[i] = reader
	}
	return out
}

// MaxPerLevel implements compaction.LevelStore.
func (r *registry) MaxPerLevel() int { return r.maxPer }

// MaxLevel implements compaction.LevelStore.
func (r *registry) MaxLevel() int { return r.maxLevel }

// WriteOptions implements compaction.LevelStore.
func (r *registry) WriteOptions() sstable.WriteOptions { return r.writeOpts }

// NextTablePath implements compaction.LevelStore, building a path per
// the engine's sstable_<level+1>_<micros>_<s|m> naming scheme.
func (r *registry) NextTablePath(level int) string {
	micros := time.Now().UnixNano() / int64(time.Microsecond)
	return tableName(r.sstableDir, level, micros, r.writeOpts.Layout == sstable.LayoutSingleFile)
}

// Commit implements compaction.LevelStore: applies every LevelChange
// in-memory, persists the resulting manifest, then deletes the files
// backing removed tables. A flush registering a brand-new level-0
// table is just a Commit with one Add and no Remove.
func (r *registry) Commit(changes []compaction.LevelChange) error {
	r.mu.Lock()

	var toDelete []*sstable.Reader
	for _, ch := range changes {
		if ch.Level < 0 || ch.Level >= len(r.levels) {
			r.mu.Unlock()
			return fmt.Errorf("lsm: commit targets out-of-range level %d", ch.Level)
		}

		cur := r.levels[ch.Level]
		if len(ch.Remove) > 0 {
			removeSet := make(map[string]bool, len(ch.Remove))
			for _, t := range ch.Remove {
				removeSet[t.Path()] = true
			}
			kept := cur[:0:0]
			for _, reader := range cur {
				if removeSet[reader.Path()] {
					toDelete = append(toDelete, reader)
					continue
				}
				kept = append(kept, reader)
			}
			cur = kept
		}
		for _, t := range ch.Add {
			reader, ok := t.(*sstable.Reader)
			if !ok {
				r.mu.Unlock()
				return fmt.Errorf("lsm: commit received a TableHandle that isn't a *sstable.Reader")
			}
			cur = append(cur, reader)
		}
		r.levels[ch.Level] = cur
	}

	doc := r.buildManifestLocked()
	r.mu.Unlock()

	if err := saveManifest(r.dataDir, doc); err != nil {
		return err
	}

	for _, reader := range toDelete {
		if err := sstable.Remove(reader.Path(), reader.Layout()); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (r *registry) buildManifestLocked() manifestDoc {
	doc := manifestDoc{Levels: make([][]manifestEntry, len(r.levels))}
	for level, readers := range r.levels {
		entries := make([]manifestEntry, len(readers))
		for i, reader := range readers {
			rel, err := filepath.Rel(r.dataDir, reader.Path())
			if err != nil {
				rel = reader.Path()
			}
			entries[i] = manifestEntry{Path: rel, SingleFile: reader.Layout() == sstable.LayoutSingleFile}
		}
		doc.Levels[level] = entries
	}
	return doc
}

// AllReaders returns every table across every level, for building a
// full read view (order is irrelevant — the merge picks winners by
// timestamp, not by source order).
func (r *registry) AllReaders() []*sstable.Reader {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []*sstable.Reader
	for _, readers := range r.levels {
		all = append(all, readers...)
	}
	return all
}

// LevelReaders returns level's readers oldest-first, for point lookups
// that need newest-to-oldest order (reverse this) within a level.
func (r *registry) LevelReaders(level int) []*sstable.Reader {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if level < 0 || level >= len(r.levels) {
		return nil
	}
	out := make([]*sstable.Reader, len(r.levels[level]))
	copy(out, r.levels[level])
	return out
}

// NumLevels returns how many levels are configured (not how many
// currently hold tables).
func (r *registry) NumLevels() int { return r.maxLevel }
