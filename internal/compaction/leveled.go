package compaction

import "github.com/siltkv/siltkv/internal/sstable"

// runLeveled implements the spec's leveled policy: when level ℓ
// exceeds the max-per-level count, pop the oldest table at ℓ, merge it
// with every ℓ+1 table whose key range overlaps it, and replace those
// with the merged result. Cascades into ℓ+1 the same way size-tiered
// does, as long as the new destination level count still exceeds the
// threshold.
func runLeveled(store LevelStore) error {
	for level := 0; level < store.MaxLevel()-1; level++ {
		tables := store.Tables(level)
		if len(tables) <= store.MaxPerLevel() {
			return nil
		}

		oldest := tables[0]
		oldestMin, _ := oldest.MinKey()
		oldestMax, _ := oldest.MaxKey()

		var overlapping []TableHandle
		for _, next := range store.Tables(level + 1) {
			nextMin, okMin := next.MinKey()
			nextMax, okMax := next.MaxKey()
			if !okMin || !okMax {
				continue
			}
			if rangesOverlap(oldestMin, oldestMax, nextMin, nextMax) {
				overlapping = append(overlapping, next)
			}
		}

		sources := make([]sstable.RecordSource, 0, 1+len(overlapping))
		sources = append(sources, oldest.Iterator())
		for _, t := range overlapping {
			sources = append(sources, t.Iterator())
		}

		merged := sstable.NewMergeIterator(sources, isLastLevel(level+1, store))

		outPath := store.NextTablePath(level + 1)
		opts := store.WriteOptions()
		if _, err := sstable.Write(outPath, merged, opts); err != nil {
			return err
		}
		newReader, err := sstable.Open(outPath, opts.Layout, opts.Variable, opts.CacheMaxSize, opts.Dictionary)
		if err != nil {
			return err
		}

		err = store.Commit([]LevelChange{
			{Level: level, Remove: []TableHandle{oldest}},
			{Level: level + 1, Remove: overlapping, Add: []TableHandle{newReader}},
		})
		if err != nil {
			return err
		}
	}
	return nil
}
