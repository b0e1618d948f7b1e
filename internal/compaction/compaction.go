// Package compaction implements the two table-merging policies that
// keep the level registry bounded: size-tiered (merge a whole level
// down) and leveled (merge one table against its overlapping
// successors). Both run against the LevelStore abstraction so this
// package never imports internal/lsm directly.
package compaction

import (
	"context"

	"github.com/siltkv/siltkv/internal/sstable"
	"github.com/siltkv/siltkv/internal/utils"
	"golang.org/x/sync/semaphore"
)

// Policy selects which compaction algorithm a Compactor runs.
type Policy int

const (
	SizeTiered Policy = iota
	Leveled
)

// TableHandle is the read-only view compaction needs of an SSTable; a
// *sstable.Reader already satisfies this.
type TableHandle interface {
	Path() string
	MinKey() ([]byte, bool)
	MaxKey() ([]byte, bool)
	Iterator() sstable.Iterator
}

// LevelChange describes one level's edit within a single compaction
// commit: tables to drop and tables to add, applied atomically
// alongside every other level's change in the same Commit call.
type LevelChange struct {
	Level  int
	Remove []TableHandle
	Add    []TableHandle
}

// LevelStore is the level registry's view as seen by a compaction
// policy. internal/lsm implements this against its on-disk manifest;
// tests implement it in memory.
type LevelStore interface {
	// Tables returns level's current tables, oldest first.
	Tables(level int) []TableHandle
	// MaxPerLevel is the table-count threshold M that triggers compaction.
	MaxPerLevel() int
	// MaxLevel is the number of levels L; levels run [0, MaxLevel).
	MaxLevel() int
	// NextTablePath allocates a fresh output path for a new table at level.
	NextTablePath(level int) string
	// WriteOptions is the sstable.Write configuration new tables use.
	WriteOptions() sstable.WriteOptions
	// Commit applies every change atomically (manifest rewrite +
	// opening new readers + deleting superseded files).
	Commit(changes []LevelChange) error
}

// Compactor runs one policy, bounding concurrent invocations with a
// semaphore so a burst of flush-triggered compactions can't open an
// unbounded number of file descriptors merging many tables at once.
type Compactor struct {
	policy Policy
	sem    *semaphore.Weighted
}

// NewCompactor builds a Compactor that allows at most maxConcurrent
// compaction runs (including their cascades) in flight simultaneously.
func NewCompactor(policy Policy, maxConcurrent int64) *Compactor {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Compactor{policy: policy, sem: semaphore.NewWeighted(maxConcurrent)}
}

// Run compacts every level of store that exceeds its configured
// per-level threshold, cascading upward until no level needs it or
// MaxLevel is reached.
func (c *Compactor) Run(ctx context.Context, store LevelStore) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)

	switch c.policy {
	case Leveled:
		return runLeveled(store)
	default:
		return runSizeTiered(store)
	}
}

// rangesOverlap reports whether [aMin, aMax] and [bMin, bMax] share any key.
func rangesOverlap(aMin, aMax, bMin, bMax []byte) bool {
	return utils.Compare(aMin, bMax) <= 0 && utils.Compare(bMin, aMax) <= 0
}

func isLastLevel(level int, store LevelStore) bool {
	return level == store.MaxLevel()-1
}
