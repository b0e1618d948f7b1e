package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/siltkv/siltkv/internal/iterator"
)

// runPaginatorShell drives a Paginator interactively: 'n' for next,
// 'p' for previous, anything else stops the iteration.
func runPaginatorShell(p *iterator.Paginator) {
	fmt.Println("n = next, p = previous, any other input stops")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("iter> ")
		if !scanner.Scan() {
			p.IterateStop()
			return
		}
		switch scanner.Text() {
		case "n":
			rec, ok := p.IterateNext()
			if !ok {
				fmt.Println("no more entries")
				continue
			}
			fmt.Printf("  %s = %s\n", string(rec.Key), string(rec.Value))
		case "p":
			rec, ok := p.IteratePrev()
			if !ok {
				fmt.Println("already at the start")
				continue
			}
			fmt.Printf("  %s = %s\n", string(rec.Key), string(rec.Value))
		default:
			p.IterateStop()
			return
		}
	}
}
