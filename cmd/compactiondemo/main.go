package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/siltkv/siltkv/internal/config"
	"github.com/siltkv/siltkv/pkg/kv"
)

func main() {
	tmpDir := filepath.Join(os.TempDir(), "siltkv-compaction-demo")
	defer os.RemoveAll(tmpDir)

	fmt.Println("=== SiltKV Compaction Test ===")
	fmt.Printf("Data directory: %s\n\n", tmpDir)

	// Small memtable and a tight level-0 cap make flush and compaction
	// happen within a few hundred writes instead of needing megabytes of data.
	cfg := config.Default()
	cfg.WriteAheadLogDir = filepath.Join(tmpDir, "wal")
	cfg.SSTableDir = filepath.Join(tmpDir, "sstables")
	cfg.MemoryTableCapacity = 16 << 10 // 16KB
	cfg.LSMMaxPerLevel = 3

	fmt.Println("1. Opening DB...")
	db, err := kv.OpenConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	fmt.Println("2. Writing data to trigger multiple flushes and compaction...")
	keyCounter := 0
	for batch := 0; batch < 6; batch++ {
		fmt.Printf("  Batch %d: writing keys...\n", batch+1)
		for i := 0; i < 200; i++ {
			key := fmt.Sprintf("key-%05d", keyCounter)
			value := make([]byte, 200)
			for j := range value {
				value[j] = byte(keyCounter + j)
			}
			if err := db.Put(key, string(value)); err != nil {
				log.Fatalf("Failed to put %s: %v", key, err)
			}
			keyCounter++
		}
	}
	fmt.Printf("  Total written: %d keys\n", keyCounter)

	fmt.Println("\n3. Checking SSTable files by level...")
	entries, err := os.ReadDir(cfg.SSTableDir)
	if err != nil {
		log.Fatalf("Failed to list SSTable directory: %v", err)
	}

	perLevel := map[string]int{}
	for _, e := range entries {
		if e.Name() == "MANIFEST" {
			continue
		}
		// sstable_<level+1>_<micros>_<s|m>[.idx|.summ|...]
		parts := strings.SplitN(e.Name(), "_", 4)
		if len(parts) < 2 {
			continue
		}
		perLevel[parts[1]]++
	}
	fmt.Printf("  Found %d file(s) total\n", len(entries))
	for level, n := range perLevel {
		fmt.Printf("    level file-group %s: %d file(s)\n", level, n)
	}

	fmt.Println("\n4. Verifying data integrity...")
	verified, failed := 0, 0
	testKeys := []int{0, 100, 200, 300, 500, 700, 900, 1100, keyCounter - 1}
	for _, keyNum := range testKeys {
		if keyNum < 0 || keyNum >= keyCounter {
			continue
		}
		key := fmt.Sprintf("key-%05d", keyNum)
		expected := make([]byte, 200)
		for j := range expected {
			expected[j] = byte(keyNum + j)
		}
		val, err := db.Get(key)
		if err != nil {
			log.Printf("  Get error for %s: %v", key, err)
			failed++
			continue
		}
		if val != string(expected) {
			log.Printf("  Key %s: value mismatch", key)
			failed++
			continue
		}
		verified++
		fmt.Printf("  %s ok\n", key)
	}
	fmt.Printf("\n5. Verification results: %d/%d passed", verified, len(testKeys))
	if failed > 0 {
		fmt.Printf(", %d failed", failed)
	}
	fmt.Println()

	fmt.Println("\n6. Checking manifest...")
	manifestPath := filepath.Join(cfg.SSTableDir, "MANIFEST")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		log.Fatalf("Manifest not found: %v", err)
	}
	fmt.Printf("  Manifest (%d bytes):\n%s\n", len(data), string(data))

	fmt.Println("\n=== Compaction test completed! ===")
}
