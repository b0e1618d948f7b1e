package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/siltkv/siltkv/internal/config"
	"github.com/siltkv/siltkv/pkg/kv"
)

func main() {
	tmpDir := filepath.Join(os.TempDir(), "siltkv-flush-demo")
	defer os.RemoveAll(tmpDir)

	fmt.Println("=== SiltKV Flush Test ===")
	fmt.Printf("Data directory: %s\n\n", tmpDir)

	// Shrink the memtable so a modest write volume triggers a real flush
	// without needing megabytes of data to demonstrate it.
	cfg := config.Default()
	cfg.WriteAheadLogDir = filepath.Join(tmpDir, "wal")
	cfg.SSTableDir = filepath.Join(tmpDir, "sstables")
	cfg.MemoryTableCapacity = 16 << 10 // 16KB

	fmt.Println("1. Opening DB...")
	db, err := kv.OpenConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	fmt.Println("2. Writing data to trigger flush...")
	keyCount := 1000
	valueSize := 200

	for i := 0; i < keyCount; i++ {
		key := fmt.Sprintf("key-%05d", i)
		value := make([]byte, valueSize)
		for j := range value {
			value[j] = byte(i + j)
		}
		if err := db.Put(key, string(value)); err != nil {
			log.Fatalf("Failed to put %s: %v", key, err)
		}
		if (i+1)%100 == 0 {
			fmt.Printf("  Written %d keys...\n", i+1)
		}
	}
	fmt.Printf("  Total written: %d keys\n", keyCount)

	fmt.Println("\n3. Verifying data from SSTable...")
	verified := 0
	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("key-%05d", i*100)
		expected := make([]byte, valueSize)
		for j := range expected {
			expected[j] = byte(i*100 + j)
		}
		val, err := db.Get(key)
		if err != nil {
			log.Fatalf("Failed to get %s: %v", key, err)
		}
		if val != string(expected) {
			log.Fatalf("Key %s: value mismatch", key)
		}
		verified++
		fmt.Printf("  Verified: %s\n", key)
	}
	fmt.Printf("\n4. Successfully verified %d/10 sample keys\n", verified)

	fmt.Println("\n5. Checking SSTable files...")
	entries, err := os.ReadDir(cfg.SSTableDir)
	if err != nil {
		log.Fatalf("Failed to list SSTable directory: %v", err)
	}
	if len(entries) == 0 {
		fmt.Println("  Warning: No files found (flush might not have triggered)")
	} else {
		fmt.Printf("  Found %d file(s) under %s:\n", len(entries), cfg.SSTableDir)
		for _, e := range entries {
			info, _ := e.Info()
			size := int64(0)
			if info != nil {
				size = info.Size()
			}
			fmt.Printf("    %s (%d bytes)\n", e.Name(), size)
		}
	}

	fmt.Println("\n=== Flush test completed successfully! ===")
}
