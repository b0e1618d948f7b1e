package compaction

import "github.com/siltkv/siltkv/internal/sstable"

// runSizeTiered implements the spec's size-tiered policy: when level ℓ
// exceeds the max-per-level count, every table at ℓ is merged into one
// new table at ℓ+1 and ℓ is cleared. This cascades into ℓ+1 as long as
// it, too, exceeds the threshold, up to MaxLevel.
func runSizeTiered(store LevelStore) error {
	for level := 0; level < store.MaxLevel()-1; level++ {
		tables := store.Tables(level)
		if len(tables) <= store.MaxPerLevel() {
			return nil
		}

		sources := make([]sstable.RecordSource, len(tables))
		for i, t := range tables {
			sources[i] = t.Iterator()
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
			{Level: level, Remove: tables},
			{Level: level + 1, Add: []TableHandle{newReader}},
		})
		if err != nil {
			return err
		}
	}
	return nil
}
