// Package config loads and validates the engine's JSON configuration,
// supplying defaults for any field missing from the file, and
// translates it into the option types each internal package expects.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/siltkv/siltkv/internal/compaction"
	"github.com/siltkv/siltkv/internal/compression"
	"github.com/siltkv/siltkv/internal/memtable"
	"github.com/siltkv/siltkv/internal/sstable"
	"github.com/siltkv/siltkv/internal/wal"
)

// MemoryTableType selects a memtable.Backend by name in JSON.
type MemoryTableType string

const (
	MemoryTableSkipList MemoryTableType = "SkipList"
	MemoryTableHashMap  MemoryTableType = "HashMap"
	MemoryTableBTree    MemoryTableType = "BTree"
)

// CompactionAlgorithmType selects a compaction.Policy by name in JSON.
type CompactionAlgorithmType string

const (
	CompactionSizeTiered CompactionAlgorithmType = "SizeTiered"
	CompactionLeveled    CompactionAlgorithmType = "Leveled"
)

// Config is the full set of recognized engine options (spec §6).
// Fields missing from a loaded JSON file keep their Default() values.
type Config struct {
	BloomFilterProbability float64 `json:"bloom_filter_probability"`
	BloomFilterCap         int     `json:"bloom_filter_cap"`
	SkipListMaxLevel       int     `json:"skip_list_max_level"`
	BTreeOrder             int     `json:"b_tree_order"`
	HyperLogLogPrecision   uint    `json:"hyperloglog_precision"`

	WriteAheadLogDir        string `json:"write_ahead_log_dir"`
	WriteAheadLogNumOfLogs  int    `json:"write_ahead_log_num_of_logs"`
	WriteAheadLogSize       int64  `json:"write_ahead_log_size"`

	MemoryTableCapacity int64           `json:"memory_table_capacity"`
	MemoryTableType     MemoryTableType `json:"memory_table_type"`
	MemoryTablePoolNum  int             `json:"memory_table_pool_num"`

	SummaryDensity int  `json:"summary_density"`
	IndexDensity   int  `json:"index_density"`
	SSTableSingleFile bool `json:"sstable_single_file"`
	SSTableDir     string `json:"sstable_dir"`

	LSMMaxLevel     int `json:"lsm_max_level"`
	LSMMaxPerLevel  int `json:"lsm_max_per_level"`

	CompactionEnabled       bool                    `json:"compaction_enabled"`
	CompactionAlgorithmType CompactionAlgorithmType `json:"compaction_algorithm_type"`

	UseCompression             bool   `json:"use_compression"`
	UseVariableEncoding        bool   `json:"use_variable_encoding"`
	CompressionDictionaryPath string `json:"compression_dictionary_path"`

	CacheMaxSize          int    `json:"cache_max_size"`
	TokenBucketCapacity   uint64 `json:"token_bucket_capacity"`
	TokenBucketRefillRate uint64 `json:"token_bucket_refill_rate"`

	// dict holds the loaded compression dictionary once
	// LoadCompressionDictionary has run; nil until then, and nil forever
	// when UseCompression is false. Declared as the sstable.Dictionary
	// interface (not *compression.Dictionary) so a disabled dictionary
	// is a genuine nil interface in WriteOptions, not a non-nil
	// interface wrapping a nil pointer.
	dict sstable.Dictionary
}

// Default returns the engine's built-in defaults, used to fill in any
// field a loaded JSON file omits.
func Default() Config {
	return Config{
		BloomFilterProbability: 0.01,
		BloomFilterCap:         1_000_000,
		SkipListMaxLevel:       16,
		BTreeOrder:             32,
		HyperLogLogPrecision:   10,

		WriteAheadLogDir:       "./wal",
		WriteAheadLogNumOfLogs: 1000,
		WriteAheadLogSize:      1 << 20,

		MemoryTableCapacity: 4 << 20,
		MemoryTableType:     MemoryTableSkipList,
		MemoryTablePoolNum:  4,

		SummaryDensity:    8,
		IndexDensity:      16,
		SSTableSingleFile: true,
		SSTableDir:        "./sstables",

		LSMMaxLevel:    7,
		LSMMaxPerLevel: 4,

		CompactionEnabled:       true,
		CompactionAlgorithmType: CompactionSizeTiered,

		UseCompression:      false,
		UseVariableEncoding: false,

		CacheMaxSize:          0,
		TokenBucketCapacity:   100,
		TokenBucketRefillRate: 10,
	}
}

// Load reads a JSON config file, starting from Default() so that any
// field missing from the file keeps its default value.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, err
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg to path as pretty-printed JSON.
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// WALOptions translates the config into internal/wal.Options.
func (c Config) WALOptions() wal.Options {
	opts := wal.DefaultOptions()
	opts.MaxEntriesPerSegment = c.WriteAheadLogNumOfLogs
	opts.MaxBytesPerSegment = c.WriteAheadLogSize
	opts.VariableEncoding = c.UseVariableEncoding
	return opts
}

// MemtableConfig translates the config into internal/memtable.Config.
func (c Config) MemtableConfig() memtable.Config {
	cfg := memtable.DefaultConfig()
	cfg.MaxBytesPerTable = c.MemoryTableCapacity
	cfg.FrozenCapacity = c.MemoryTablePoolNum
	cfg.SkipListMaxLevel = c.SkipListMaxLevel
	cfg.BTreeOrder = c.BTreeOrder
	switch c.MemoryTableType {
	case MemoryTableHashMap:
		cfg.Backend = memtable.BackendHashMap
	case MemoryTableBTree:
		cfg.Backend = memtable.BackendBTree
	default:
		cfg.Backend = memtable.BackendSkipList
	}
	return cfg
}

// Validate checks the fields that can make engine construction fail
// outright (spec §7), as opposed to ones like HyperLogLogPrecision
// that are silently clamped into range by their own package. Called
// once from lsm.Open before any on-disk state is touched.
func (c Config) Validate() error {
	if c.BTreeOrder < 2 {
		return fmt.Errorf("config: b_tree_order must be at least 2, got %d", c.BTreeOrder)
	}
	return nil
}

// LoadCompressionDictionary opens (creating if absent) the on-disk
// dictionary backing data-region key compression when UseCompression
// is set, defaulting to a fixed file name under SSTableDir when
// CompressionDictionaryPath is empty. It returns c unchanged, with dict
// left nil, when compression is disabled. Call once, before WriteOptions
// is used to flush or compact anything.
func (c Config) LoadCompressionDictionary() (Config, error) {
	if !c.UseCompression {
		return c, nil
	}

	path := c.CompressionDictionaryPath
	if path == "" {
		path = filepath.Join(c.SSTableDir, "compression.dict")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Config{}, err
	}

	dict, err := compression.Load(path)
	if err != nil {
		return Config{}, err
	}
	c.dict = dict
	return c, nil
}

// WriteOptions translates the config into internal/sstable.WriteOptions.
func (c Config) WriteOptions() sstable.WriteOptions {
	layout := sstable.LayoutFivefile
	if c.SSTableSingleFile {
		layout = sstable.LayoutSingleFile
	}
	return sstable.WriteOptions{
		IndexDensity:   c.IndexDensity,
		SummaryDensity: c.SummaryDensity,
		Variable:       c.UseVariableEncoding,
		Layout:         layout,
		CacheMaxSize:   c.CacheMaxSize,
		Dictionary:     c.dict,
	}
}

// Dictionary returns the loaded compression dictionary, or nil when
// compression is disabled or LoadCompressionDictionary hasn't run yet.
// Every sstable.Open call site needs this to reverse the key
// substitution a dictionary-writing flush or compaction applied.
func (c Config) Dictionary() sstable.Dictionary {
	return c.dict
}

// CompactionPolicy translates the config into an internal/compaction.Policy.
func (c Config) CompactionPolicy() compaction.Policy {
	if c.CompactionAlgorithmType == CompactionLeveled {
		return compaction.Leveled
	}
	return compaction.SizeTiered
}
