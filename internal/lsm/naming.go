package lsm

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// tableName builds a table's base path following the engine's on-disk
// naming scheme: sstable_<level+1>_<micros>_<s|m>. The level is
// encoded 1-based so it survives as the name's first numeric field;
// the trailing letter records whether the table is a single combined
// file ("s") or five sibling region files sharing this prefix ("m").
func tableName(dir string, level int, micros int64, singleFile bool) string {
	suffix := "m"
	if singleFile {
		suffix = "s"
	}
	return filepath.Join(dir, fmt.Sprintf("sstable_%d_%d_%s", level+1, micros, suffix))
}

// parseTableName recovers the level and storage form a tableName path
// was built with, for directory-enumeration recovery.
func parseTableName(path string) (level int, singleFile bool, ok bool) {
	base := filepath.Base(path)
	parts := strings.Split(base, "_")
	if len(parts) != 4 || parts[0] != "sstable" {
		return 0, false, false
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n < 1 {
		return 0, false, false
	}
	switch parts[3] {
	case "s":
		singleFile = true
	case "m":
		singleFile = false
	default:
		return 0, false, false
	}
	return n - 1, singleFile, true
}
