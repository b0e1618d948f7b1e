package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/siltkv/siltkv/internal/config"
)

type menuResult int

const (
	continueToDB menuResult = iota
	exitRequested
)

// configMenu is the pre-open configuration step, grounded on the
// original engine's initializer_menu: confirm the loaded config, tweak
// individual fields, revert to defaults, or exit before ever opening a
// database.
func configMenu(cfg *config.Config) menuResult {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Println("\nCONFIGURATION")
		fmt.Println("  continue   open the database with the current configuration")
		fmt.Println("  show       print the current configuration")
		fmt.Println("  set <field> <value>   change one field (e.g. 'set lsm_max_per_level 8')")
		fmt.Println("  default    revert to default configuration")
		fmt.Println("  exit       quit without opening a database")
		fmt.Print("config> ")

		if !scanner.Scan() {
			return exitRequested
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "continue":
			return continueToDB
		case "show":
			printConfig(*cfg)
		case "default":
			*cfg = config.Default()
			if err := config.Save(configFileName, *cfg); err != nil {
				fmt.Fprintf(os.Stderr, "failed to save default configuration: %v\n", err)
				continue
			}
			fmt.Println("configuration reverted to default")
		case "set":
			if len(fields) < 3 {
				fmt.Println("usage: set <field> <value>")
				continue
			}
			if err := setConfigField(cfg, fields[1], fields[2]); err != nil {
				fmt.Println(err)
				continue
			}
			if err := config.Save(configFileName, *cfg); err != nil {
				fmt.Fprintf(os.Stderr, "failed to save configuration: %v\n", err)
			}
		case "exit":
			fmt.Println("Goodbye!")
			return exitRequested
		default:
			fmt.Printf("unknown option %q\n", fields[0])
		}
	}
}

func printConfig(cfg config.Config) {
	fmt.Printf("  bloom_filter_probability: %v\n", cfg.BloomFilterProbability)
	fmt.Printf("  bloom_filter_cap: %v\n", cfg.BloomFilterCap)
	fmt.Printf("  skip_list_max_level: %v\n", cfg.SkipListMaxLevel)
	fmt.Printf("  b_tree_order: %v\n", cfg.BTreeOrder)
	fmt.Printf("  hyperloglog_precision: %v\n", cfg.HyperLogLogPrecision)
	fmt.Printf("  write_ahead_log_dir: %v\n", cfg.WriteAheadLogDir)
	fmt.Printf("  write_ahead_log_num_of_logs: %v\n", cfg.WriteAheadLogNumOfLogs)
	fmt.Printf("  write_ahead_log_size: %v\n", cfg.WriteAheadLogSize)
	fmt.Printf("  memory_table_capacity: %v\n", cfg.MemoryTableCapacity)
	fmt.Printf("  memory_table_type: %v\n", cfg.MemoryTableType)
	fmt.Printf("  memory_table_pool_num: %v\n", cfg.MemoryTablePoolNum)
	fmt.Printf("  summary_density: %v\n", cfg.SummaryDensity)
	fmt.Printf("  index_density: %v\n", cfg.IndexDensity)
	fmt.Printf("  sstable_single_file: %v\n", cfg.SSTableSingleFile)
	fmt.Printf("  sstable_dir: %v\n", cfg.SSTableDir)
	fmt.Printf("  lsm_max_level: %v\n", cfg.LSMMaxLevel)
	fmt.Printf("  lsm_max_per_level: %v\n", cfg.LSMMaxPerLevel)
	fmt.Printf("  compaction_enabled: %v\n", cfg.CompactionEnabled)
	fmt.Printf("  compaction_algorithm_type: %v\n", cfg.CompactionAlgorithmType)
	fmt.Printf("  use_compression: %v\n", cfg.UseCompression)
	fmt.Printf("  use_variable_encoding: %v\n", cfg.UseVariableEncoding)
	fmt.Printf("  cache_max_size: %v\n", cfg.CacheMaxSize)
	fmt.Printf("  token_bucket_capacity: %v\n", cfg.TokenBucketCapacity)
	fmt.Printf("  token_bucket_refill_rate: %v\n", cfg.TokenBucketRefillRate)
}

// setConfigField edits one JSON-tagged field by name, covering the
// fields a shell user would plausibly want to tweak before opening a
// database (directories, capacities, compaction behavior).
func setConfigField(cfg *config.Config, field, value string) error {
	switch field {
	case "bloom_filter_probability":
		return setFloat(&cfg.BloomFilterProbability, value)
	case "bloom_filter_cap":
		return setInt(&cfg.BloomFilterCap, value)
	case "skip_list_max_level":
		return setInt(&cfg.SkipListMaxLevel, value)
	case "b_tree_order":
		return setInt(&cfg.BTreeOrder, value)
	case "hyperloglog_precision":
		return setUint(&cfg.HyperLogLogPrecision, value)
	case "write_ahead_log_dir":
		cfg.WriteAheadLogDir = value
	case "write_ahead_log_num_of_logs":
		return setInt(&cfg.WriteAheadLogNumOfLogs, value)
	case "write_ahead_log_size":
		return setInt64(&cfg.WriteAheadLogSize, value)
	case "memory_table_capacity":
		return setInt64(&cfg.MemoryTableCapacity, value)
	case "memory_table_type":
		cfg.MemoryTableType = config.MemoryTableType(value)
	case "memory_table_pool_num":
		return setInt(&cfg.MemoryTablePoolNum, value)
	case "summary_density":
		return setInt(&cfg.SummaryDensity, value)
	case "index_density":
		return setInt(&cfg.IndexDensity, value)
	case "sstable_single_file":
		return setBool(&cfg.SSTableSingleFile, value)
	case "sstable_dir":
		cfg.SSTableDir = value
	case "lsm_max_level":
		return setInt(&cfg.LSMMaxLevel, value)
	case "lsm_max_per_level":
		return setInt(&cfg.LSMMaxPerLevel, value)
	case "compaction_enabled":
		return setBool(&cfg.CompactionEnabled, value)
	case "compaction_algorithm_type":
		cfg.CompactionAlgorithmType = config.CompactionAlgorithmType(value)
	case "use_compression":
		return setBool(&cfg.UseCompression, value)
	case "use_variable_encoding":
		return setBool(&cfg.UseVariableEncoding, value)
	case "cache_max_size":
		return setInt(&cfg.CacheMaxSize, value)
	case "token_bucket_capacity":
		return setUint64(&cfg.TokenBucketCapacity, value)
	case "token_bucket_refill_rate":
		return setUint64(&cfg.TokenBucketRefillRate, value)
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}

func setInt(dst *int, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func setInt64(dst *int64, value string) error {
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func setUint(dst *uint, value string) error {
	v, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return err
	}
	*dst = uint(v)
	return nil
}

func setUint64(dst *uint64, value string) error {
	v, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func setFloat(dst *float64, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func setBool(dst *bool, value string) error {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
