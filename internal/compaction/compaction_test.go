package compaction

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/siltkv/siltkv/internal/record"
	"github.com/siltkv/siltkv/internal/sstable"
	"github.com/stretchr/testify/require"
)

type sliceSource struct {
	recs []record.Record
	pos  int
}

func (s *sliceSource) Valid() bool          { return s.pos < len(s.recs) }
func (s *sliceSource) Record() record.Record { return s.recs[s.pos] }
func (s *sliceSource) Next()                { s.pos++ }

func buildTable(t *testing.T, dir, name string, recs []record.Record) *sstable.Reader {
	t.Helper()
	path := filepath.Join(dir, name)
	opts := sstable.WriteOptions{IndexDensity: 1, SummaryDensity: 1, Layout: sstable.LayoutSingleFile}
	_, err := sstable.Write(path, &sliceSource{recs: recs}, opts)
	require.NoError(t, err)
	r, err := sstable.Open(path, sstable.LayoutSingleFile, false, 0, nil)
	require.NoError(t, err)
	return r
}

type fakeStore struct {
	dir         string
	levels      map[int][]TableHandle
	maxPerLevel int
	maxLevel    int
	opts        sstable.WriteOptions
	counter     int
}

func newFakeStore(dir string, maxPerLevel, maxLevel int) *fakeStore {
	return &fakeStore{
		dir:         dir,
		levels:      make(map[int][]TableHandle),
		maxPerLevel: maxPerLevel,
		maxLevel:    maxLevel,
		opts:        sstable.WriteOptions{IndexDensity: 1, SummaryDensity: 1, Layout: sstable.LayoutSingleFile},
	}
}

func (s *fakeStore) Tables(level int) []TableHandle {
	out := make([]TableHandle, len(s.levels[level]))
	copy(out, s.levels[level])
	return out
}

func (s *fakeStore) MaxPerLevel() int { return s.maxPerLevel }
func (s *fakeStore) MaxLevel() int    { return s.maxLevel }

func (s *fakeStore) NextTablePath(level int) string {
	s.counter++
	return filepath.Join(s.dir, fmt.Sprintf("L%d_%d.sst", level, s.counter))
}

func (s *fakeStore) WriteOptions() sstable.WriteOptions { return s.opts }

func (s *fakeStore) Commit(changes []LevelChange) error {
	for _, ch := range changes {
		cur := s.levels[ch.Level]
		if len(ch.Remove) > 0 {
			removeSet := make(map[string]bool, len(ch.Remove))
			for _, r := range ch.Remove {
				removeSet[r.Path()] = true
			}
			kept := cur[:0:0]
			for _, t := range cur {
				if !removeSet[t.Path()] {
					kept = append(kept, t)
				}
			}
			cur = kept
		}
		cur = append(cur, ch.Add...)
		s.levels[ch.Level] = cur
	}
	return nil
}

func rec(key string, ts uint64) record.Record {
	return record.Record{Timestamp: ts, Key: []byte(key), Value: []byte("v-" + key)}
}

func TestRunSizeTieredMergesFullLevel(t *testing.T) {
	dir := t.TempDir()
	store := newFakeStore(dir, 2, 3)

	store.levels[0] = []TableHandle{
		buildTable(t, dir, "a.sst", []record.Record{rec("a", 1)}),
		buildTable(t, dir, "b.sst", []record.Record{rec("b", 1)}),
		buildTable(t, dir, "c.sst", []record.Record{rec("c", 1)}),
	}

	c := NewCompactor(SizeTiered, 4)
	require.NoError(t, c.Run(context.Background(), store))

	require.Empty(t, store.Tables(0))
	level1 := store.Tables(1)
	require.Len(t, level1, 1)

	it := level1[0].Iterator()
	var keys []string
	for it.Valid() {
		keys = append(keys, string(it.Record().Key))
		it.Next()
	}
	require.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestRunSizeTieredNoopUnderThreshold(t *testing.T) {
	dir := t.TempDir()
	store := newFakeStore(dir, 4, 3)
	store.levels[0] = []TableHandle{
		buildTable(t, dir, "a.sst", []record.Record{rec("a", 1)}),
	}

	c := NewCompactor(SizeTiered, 1)
	require.NoError(t, c.Run(context.Background(), store))
	require.Len(t, store.Tables(0), 1)
	require.Empty(t, store.Tables(1))
}

func TestRunLeveledMergesOnlyOverlappingTables(t *testing.T) {
	dir := t.TempDir()
	store := newFakeStore(dir, 1, 3)

	// Oldest at level 0 covers [b, d]; a newer table at level 0 keeps
	// the level over threshold but shouldn't be touched this round.
	store.levels[0] = []TableHandle{
		buildTable(t, dir, "old.sst", []record.Record{rec("b", 1), rec("d", 1)}),
		buildTable(t, dir, "new.sst", []record.Record{rec("z", 5)}),
	}

	// Level 1 has one overlapping table [c, e] and one disjoint table [x, y].
	overlapping := buildTable(t, dir, "l1-overlap.sst", []record.Record{rec("c", 0), rec("e", 0)})
	disjoint := buildTable(t, dir, "l1-disjoint.sst", []record.Record{rec("x", 0), rec("y", 0)})
	store.levels[1] = []TableHandle{overlapping, disjoint}

	c := NewCompactor(Leveled, 4)
	require.NoError(t, c.Run(context.Background(), store))

	level0 := store.Tables(0)
	require.Len(t, level0, 1)
	require.Equal(t, "new.sst", filepath.Base(level0[0].Path()))

	// The pass cascades: level 1 then holds the disjoint table and the
	// merged one, over its limit of 1, so its oldest (the disjoint
	// table) moves on to level 2.
	level1 := store.Tables(1)
	require.Len(t, level1, 1)
	require.Len(t, store.Tables(2), 1)

	var merged TableHandle
	for _, tbl := range level1 {
		if tbl.Path() == disjoint.Path() {
			continue
		}
		merged = tbl
	}
	require.NotNil(t, merged)

	var keys []string
	it := merged.Iterator()
	for it.Valid() {
		keys = append(keys, string(it.Record().Key))
		it.Next()
	}
	require.Equal(t, []string{"b", "c", "d", "e"}, keys)
}
