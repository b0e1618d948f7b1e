package main

import (
	"fmt"

	"github.com/siltkv/siltkv/internal/iterator"
	"github.com/siltkv/siltkv/internal/sstable"
)

func init() {
	commands["insert"] = cmdInsert
	commands["get"] = cmdGet
	commands["delete"] = cmdDelete
	commands["prefixscan"] = cmdPrefixScan
	commands["rangescan"] = cmdRangeScan
	commands["prefixiter"] = cmdPrefixIter
	commands["rangeiter"] = cmdRangeIter
}

func cmdInsert(s *session, args []string) {
	if len(args) != 2 {
		fmt.Println("usage: insert <key> <value>")
		return
	}
	if err := s.db.Insert([]byte(args[0]), []byte(args[1]), s.clock.Now()); err != nil {
		fmt.Printf("error during insertion: %v\n", err)
		return
	}
	fmt.Println("insertion successful")
}

func cmdGet(s *session, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: get <key>")
		return
	}
	val, found, err := s.db.Get([]byte(args[0]))
	if err != nil {
		fmt.Printf("error occurred while getting data: %v\n", err)
		return
	}
	if !found {
		fmt.Println("value not found for the given key")
		return
	}
	fmt.Printf("found value: %s\n", string(val))
}

func cmdDelete(s *session, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: delete <key>")
		return
	}
	if err := s.db.Delete([]byte(args[0]), s.clock.Now()); err != nil {
		fmt.Printf("error during deletion: %v\n", err)
		return
	}
	fmt.Println("deletion successful")
}

func cmdPrefixScan(s *session, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: prefixscan <prefix>")
		return
	}
	src := s.db.Iterate(iterator.Options{Type: iterator.ScanPrefix, Prefix: []byte(args[0])})
	printAll(src)
}

func cmdRangeScan(s *session, args []string) {
	if len(args) != 2 {
		fmt.Println("usage: rangescan <lower> <upper>")
		return
	}
	src := s.db.Iterate(iterator.Options{Type: iterator.ScanRange, Lower: []byte(args[0]), Upper: []byte(args[1])})
	printAll(src)
}

func printAll(src sstable.RecordSource) {
	count := 0
	for src.Valid() {
		rec := src.Record()
		fmt.Printf("  %s = %s\n", string(rec.Key), string(rec.Value))
		count++
		src.Next()
	}
	fmt.Printf("%d entr%s\n", count, plural(count))
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

func cmdPrefixIter(s *session, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: prefixiter <prefix>")
		return
	}
	p := s.db.Paginate(iterator.Options{Type: iterator.ScanPrefix, Prefix: []byte(args[0])})
	runPaginatorShell(p)
}

func cmdRangeIter(s *session, args []string) {
	if len(args) != 2 {
		fmt.Println("usage: rangeiter <lower> <upper>")
		return
	}
	p := s.db.Paginate(iterator.Options{Type: iterator.ScanRange, Lower: []byte(args[0]), Upper: []byte(args[1])})
	runPaginatorShell(p)
}
