package iterator

import (
	"path/filepath"
	"testing"

	"github.com/siltkv/siltkv/internal/memtable"
	"github.com/siltkv/siltkv/internal/record"
	"github.com/siltkv/siltkv/internal/sstable"
	"github.com/stretchr/testify/require"
)

type sliceSource struct {
	recs []record.Record
	pos  int
}

func (s *sliceSource) Valid() bool           { return s.pos < len(s.recs) }
func (s *sliceSource) Record() record.Record { return s.recs[s.pos] }
func (s *sliceSource) Next()                 { s.pos++ }

func buildReader(t *testing.T, dir, name string, recs []record.Record) *sstable.Reader {
	t.Helper()
	path := filepath.Join(dir, name)
	opts := sstable.WriteOptions{IndexDensity: 1, SummaryDensity: 1, Layout: sstable.LayoutSingleFile}
	_, err := sstable.Write(path, &sliceSource{recs: recs}, opts)
	require.NoError(t, err)
	r, err := sstable.Open(path, sstable.LayoutSingleFile, false, 0, nil)
	require.NoError(t, err)
	return r
}

func rec(key string, ts uint64, tombstone bool) record.Record {
	v := []byte("v-" + key)
	if tombstone {
		v = nil
	}
	return record.Record{Timestamp: ts, Tombstone: tombstone, Key: []byte(key), Value: v}
}

func keysOf(t *testing.T, src sstable.RecordSource) []string {
	t.Helper()
	var keys []string
	for src.Valid() {
		keys = append(keys, string(src.Record().Key))
		src.Next()
	}
	return keys
}

func TestNewMergesPoolAndTablesNewestWins(t *testing.T) {
	dir := t.TempDir()

	table := buildReader(t, dir, "a.sst", []record.Record{
		rec("alpha", 1, false),
		rec("beta", 1, false),
	})

	pool := memtable.NewPool(memtable.DefaultConfig())
	pool.Insert([]byte("beta"), []byte("fresher"), 5, 0)
	pool.Insert([]byte("gamma"), []byte("v-gamma"), 5, 0)

	merged := New(pool, []*sstable.Reader{table}, Options{Type: ScanAll})
	require.Equal(t, []string{"alpha", "beta", "gamma"}, keysOf(t, merged))

	merged = New(pool, []*sstable.Reader{table}, Options{Type: ScanAll})
	require.True(t, merged.Valid())
	require.Equal(t, "alpha", string(merged.Record().Key))
	merged.Next()
	require.Equal(t, "fresher", string(merged.Record().Value))
}

func TestNewDropsTombstonedKeys(t *testing.T) {
	dir := t.TempDir()
	table := buildReader(t, dir, "a.sst", []record.Record{
		rec("alpha", 1, false),
		rec("beta", 1, false),
	})

	pool := memtable.NewPool(memtable.DefaultConfig())
	pool.Delete([]byte("beta"), 5, 0)

	merged := New(pool, []*sstable.Reader{table}, Options{Type: ScanAll})
	require.Equal(t, []string{"alpha"}, keysOf(t, merged))
}

func TestNewRangeScanBounds(t *testing.T) {
	dir := t.TempDir()
	table := buildReader(t, dir, "a.sst", []record.Record{
		rec("a", 1, false),
		rec("b", 1, false),
		rec("c", 1, false),
		rec("d", 1, false),
	})
	pool := memtable.NewPool(memtable.DefaultConfig())

	merged := New(pool, []*sstable.Reader{table}, Options{
		Type:  ScanRange,
		Lower: []byte("b"),
		Upper: []byte("c"),
	})
	require.Equal(t, []string{"b", "c"}, keysOf(t, merged))
}

func TestNewPrefixScanBounds(t *testing.T) {
	dir := t.TempDir()
	table := buildReader(t, dir, "a.sst", []record.Record{
		rec("app", 1, false),
		rec("apple", 1, false),
		rec("banana", 1, false),
	})
	pool := memtable.NewPool(memtable.DefaultConfig())

	merged := New(pool, []*sstable.Reader{table}, Options{
		Type:   ScanPrefix,
		Prefix: []byte("app"),
	})
	require.Equal(t, []string{"app", "apple"}, keysOf(t, merged))
}

func TestPaginatorPage(t *testing.T) {
	dir := t.TempDir()
	table := buildReader(t, dir, "a.sst", []record.Record{
		rec("a", 1, false),
		rec("b", 1, false),
		rec("c", 1, false),
		rec("d", 1, false),
		rec("e", 1, false),
	})
	pool := memtable.NewPool(memtable.DefaultConfig())

	p := NewPaginatorFor(pool, []*sstable.Reader{table}, Options{Type: ScanAll})

	page0 := p.Page(0, 2)
	require.Len(t, page0, 2)
	require.Equal(t, "a", string(page0[0].Key))
	require.Equal(t, "b", string(page0[1].Key))

	page1 := p.Page(1, 2)
	require.Len(t, page1, 2)
	require.Equal(t, "c", string(page1[0].Key))
	require.Equal(t, "d", string(page1[1].Key))

	page2 := p.Page(2, 2)
	require.Len(t, page2, 1)
	require.Equal(t, "e", string(page2[0].Key))
}

func TestPaginatorIterateNextAndPrev(t *testing.T) {
	dir := t.TempDir()
	table := buildReader(t, dir, "a.sst", []record.Record{
		rec("a", 1, false),
		rec("b", 1, false),
		rec("c", 1, false),
	})
	pool := memtable.NewPool(memtable.DefaultConfig())

	p := NewPaginatorFor(pool, []*sstable.Reader{table}, Options{Type: ScanAll})

	e, ok := p.IterateNext()
	require.True(t, ok)
	require.Equal(t, "a", string(e.Key))

	e, ok = p.IterateNext()
	require.True(t, ok)
	require.Equal(t, "b", string(e.Key))

	e, ok = p.IteratePrev()
	require.True(t, ok)
	require.Equal(t, "a", string(e.Key))

	e, ok = p.IterateNext()
	require.True(t, ok)
	require.Equal(t, "b", string(e.Key))

	e, ok = p.IterateNext()
	require.True(t, ok)
	require.Equal(t, "c", string(e.Key))

	_, ok = p.IterateNext()
	require.False(t, ok)
}

func TestPaginatorIterateStopResetsCursor(t *testing.T) {
	dir := t.TempDir()
	table := buildReader(t, dir, "a.sst", []record.Record{
		rec("a", 1, false),
		rec("b", 1, false),
	})
	pool := memtable.NewPool(memtable.DefaultConfig())

	p := NewPaginatorFor(pool, []*sstable.Reader{table}, Options{Type: ScanAll})
	p.IterateNext()
	p.IterateStop()

	e, ok := p.IterateNext()
	require.True(t, ok)
	require.Equal(t, "a", string(e.Key))
}
