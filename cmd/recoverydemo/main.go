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
	dataDir := filepath.Join(os.TempDir(), "siltkv-recovery-demo")
	defer os.RemoveAll(dataDir)

	fmt.Println("=== SiltKV Recovery Test ===")
	fmt.Printf("Data directory: %s\n\n", dataDir)

	cfg := config.Default()
	cfg.WriteAheadLogDir = filepath.Join(dataDir, "wal")
	cfg.SSTableDir = filepath.Join(dataDir, "sstables")
	cfg.MemoryTableCapacity = 16 << 10 // force a few real flushes

	fmt.Println("1. Opening DB and writing data...")
	db1, err := kv.OpenConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}

	testData := map[string]string{
		"user:1001": "Alice",
		"user:1002": "Bob",
		"user:1003": "Charlie",
		"user:1004": "David",
		"user:1005": "Eve",
	}
	for k, v := range testData {
		if err := db1.Put(k, v); err != nil {
			log.Fatalf("Failed to put %s: %v", k, err)
		}
		fmt.Printf("  Put: %s = %s\n", k, v)
	}

	fmt.Println("\n2. Writing more data to trigger flush...")
	for i := 0; i < 300; i++ {
		key := fmt.Sprintf("key-%05d", i)
		value := make([]byte, 200)
		for j := range value {
			value[j] = byte(i + j)
		}
		if err := db1.Put(key, string(value)); err != nil {
			log.Fatalf("Failed to put %s: %v", key, err)
		}
		if (i+1)%100 == 0 {
			fmt.Printf("  Written %d keys...\n", i+1)
		}
	}

	fmt.Println("\n3. Closing DB...")
	if err := db1.Close(); err != nil {
		log.Fatalf("Failed to close DB: %v", err)
	}

	fmt.Println("\n4. Reopening DB (testing recovery)...")
	db2, err := kv.OpenConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to reopen DB: %v", err)
	}
	defer db2.Close()

	fmt.Println("\n5. Verifying original test data...")
	for k, expectedV := range testData {
		val, err := db2.Get(k)
		if err != nil {
			log.Fatalf("Failed to get %s: %v", k, err)
		}
		if val != expectedV {
			log.Fatalf("Key %s: expected %s, got %s", k, expectedV, val)
		}
		fmt.Printf("  %s = %s\n", k, val)
	}

	fmt.Println("\n6. Verifying flushed data...")
	verifyKeys := []string{"key-00000", "key-00100", "key-00200", "key-00299"}
	verified := 0
	for _, key := range verifyKeys {
		val, err := db2.Get(key)
		if err != nil {
			log.Fatalf("Failed to get %s: %v", key, err)
		}
		if len(val) != 200 {
			log.Fatalf("Key %s: value length mismatch, expected 200, got %d", key, len(val))
		}
		verified++
		fmt.Printf("  %s (length: %d)\n", key, len(val))
	}
	fmt.Printf("  Verified %d flushed keys\n", verified)

	fmt.Println("\n7. Checking Manifest file...")
	manifestPath := filepath.Join(cfg.SSTableDir, "MANIFEST")
	if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
		log.Fatal("Manifest file not found!")
	}
	fmt.Printf("  Manifest file exists: %s\n", manifestPath)

	fmt.Println("\n8. Checking SSTable directory...")
	entries, err := os.ReadDir(cfg.SSTableDir)
	if err != nil {
		log.Fatalf("Failed to list SSTable directory: %v", err)
	}
	if len(entries) == 0 {
		log.Fatal("No SSTable files found!")
	}
	fmt.Printf("  Found %d file(s)\n", len(entries))

	fmt.Println("\n9. Writing new data after recovery...")
	newData := map[string]string{
		"user:2001": "Frank",
		"user:2002": "Grace",
	}
	for k, v := range newData {
		if err := db2.Put(k, v); err != nil {
			log.Fatalf("Failed to put %s: %v", k, err)
		}
		fmt.Printf("  Put: %s = %s\n", k, v)
	}

	fmt.Println("\n10. Verifying new data...")
	for k, expectedV := range newData {
		val, err := db2.Get(k)
		if err != nil {
			log.Fatalf("Failed to get %s: %v", k, err)
		}
		if val != expectedV {
			log.Fatalf("Key %s: expected %s, got %s", k, expectedV, val)
		}
		fmt.Printf("  %s = %s\n", k, val)
	}

	fmt.Println("\n=== Recovery test completed successfully! ===")
}
