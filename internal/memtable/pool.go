package memtable

import "errors"

// Backend selects which Table implementation new generations use.
type Backend int

const (
	BackendSkipList Backend = iota
	BackendBTree
	BackendHashMap
)

// ErrPoolClosed is returned by Pool operations after Close.
var ErrPoolClosed = errors.New("memtable: pool closed")

// newTable builds a fresh Table for cfg.Backend, threading the
// configured skip-list level / B-tree order through. An out-of-range
// BTreeOrder falls back to DefaultBTreeOrder here: newTable has no way
// to report failure to its caller, so the real "invalid configuration
// fails construction" gate (spec §7) lives at the config/engine-open
// boundary, which validates before a Pool is ever built.
func newTable(cfg Config) Table {
	switch cfg.Backend {
	case BackendBTree:
		order := cfg.BTreeOrder
		if order < 2 {
			order = DefaultBTreeOrder
		}
		t, _ := NewBTree(order)
		return t
	case BackendHashMap:
		return NewHashMap()
	default:
		return NewSkipList(cfg.SkipListMaxLevel)
	}
}

// Config sizes a Pool.
type Config struct {
	// Backend selects the Table implementation for every generation.
	Backend Backend
	// MaxBytesPerTable is the soft byte budget per table; a table is
	// frozen and swapped out once it is at least FillRatio full.
	MaxBytesPerTable int64
	// FillRatio is the fraction of MaxBytesPerTable that triggers a
	// freeze+swap (spec default: 0.8).
	FillRatio float64
	// FrozenCapacity is the size of the frozen (read-only) queue: the
	// swap that fills it evicts the oldest table for flush, so at most
	// FrozenCapacity-1 frozen tables stay in the pool between writes.
	FrozenCapacity int
	// SkipListMaxLevel bounds forward-pointer levels for BackendSkipList.
	SkipListMaxLevel int
	// BTreeOrder sets the branching factor for BackendBTree. Must be at
	// least 2; callers that build a Config directly from untrusted
	// input should validate this themselves (see config.Config.Validate).
	BTreeOrder int
}

// DefaultConfig matches the spec's stated defaults: 4MB tables, 80%
// soft cap, a pool of 4 (1 active conceptually outside the frozen
// queue, 3 frozen slots before eviction pressure begins).
func DefaultConfig() Config {
	return Config{
		Backend:          BackendSkipList,
		MaxBytesPerTable: 4 << 20,
		FillRatio:        0.8,
		FrozenCapacity:   4,
		SkipListMaxLevel: DefaultMaxLevel,
		BTreeOrder:       DefaultBTreeOrder,
	}
}

// Generation pairs a frozen Table with the WAL offset its last write
// advanced the global byte stream to, letting the coordinator garbage
// collect WAL segments once this generation is durably flushed.
type Generation struct {
	Table     Table
	WALOffset uint64
}

// Pool holds one mutable active table plus a bounded queue of frozen,
// flush-pending tables, generalizing the original engine's MemoryPool
// (one read-write table, a VecDeque of read-only tables) to pluggable
// back-ends.
type Pool struct {
	cfg    Config
	active Table
	size   int64
	frozen []Generation
	closed bool
}

// NewPool returns a pool with a fresh active table.
func NewPool(cfg Config) *Pool {
	return &Pool{cfg: cfg, active: newTable(cfg)}
}

// Insert writes key/value into the active table, returning a
// just-evicted Generation (if the frozen queue was at capacity) that
// the caller must flush to an SSTable, and whether the active table
// was frozen by this write; walOffset is stamped onto that
// newly-frozen generation.
func (p *Pool) Insert(key, value []byte, ts uint64, walOffset uint64) (evicted *Generation, swapped bool) {
	isNew := p.active.Insert(key, value, ts)
	if isNew {
		p.size += int64(len(key) + len(value))
	}
	return p.maybeSwap(walOffset)
}

// Delete writes a tombstone into the active table.
func (p *Pool) Delete(key []byte, ts uint64, walOffset uint64) (evicted *Generation, swapped bool) {
	isNew := p.active.Delete(key, ts)
	if isNew {
		p.size += int64(len(key))
	}
	return p.maybeSwap(walOffset)
}

func (p *Pool) maybeSwap(walOffset uint64) (*Generation, bool) {
	threshold := int64(float64(p.cfg.MaxBytesPerTable) * p.cfg.FillRatio)
	if p.size < threshold {
		return nil, false
	}

	gen := Generation{Table: p.active, WALOffset: walOffset}
	p.frozen = append([]Generation{gen}, p.frozen...)
	p.active = newTable(p.cfg)
	p.size = 0

	if len(p.frozen) >= p.cfg.FrozenCapacity {
		n := len(p.frozen)
		oldest := p.frozen[n-1]
		p.frozen = p.frozen[:n-1]
		return &oldest, true
	}

	return nil, true
}

// Get looks up key across the active table, then each frozen
// generation from newest to oldest (so the freshest write wins).
func (p *Pool) Get(key []byte) (Entry, bool) {
	if e, ok := p.active.Get(key); ok {
		return e, true
	}
	for _, gen := range p.frozen {
		if e, ok := gen.Table.Get(key); ok {
			return e, true
		}
	}
	return Entry{}, false
}

// AllTables returns every table currently held — active first, then
// frozen from newest to oldest — for iteration/merge purposes.
func (p *Pool) AllTables() []Table {
	tables := make([]Table, 0, 1+len(p.frozen))
	tables = append(tables, p.active)
	for _, g := range p.frozen {
		tables = append(tables, g.Table)
	}
	return tables
}

// PopOldestFrozen removes and returns the oldest frozen generation, for
// callers that want to drain the frozen queue (e.g. on graceful close
// or a manual flush-all). Returns false if there is nothing frozen.
func (p *Pool) PopOldestFrozen() (Generation, bool) {
	if len(p.frozen) == 0 {
		return Generation{}, false
	}
	n := len(p.frozen)
	oldest := p.frozen[n-1]
	p.frozen = p.frozen[:n-1]
	return oldest, true
}

// Close marks the pool closed. It does not free resources itself;
// callers are expected to flush remaining generations first.
func (p *Pool) Close() {
	p.closed = true
}
