// Command siltkv is an interactive text shell over the engine: insert,
// get, delete, range/prefix scans and iterators, plus sub-commands for
// each probabilistic structure and the rate limiter, and a small
// configuration editor run before the database opens.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/siltkv/siltkv/internal/config"
	"github.com/siltkv/siltkv/internal/lsm"
	"github.com/siltkv/siltkv/internal/probabilistic"
	"github.com/siltkv/siltkv/internal/ratelimit"
	"github.com/siltkv/siltkv/internal/record"
)

const configFileName = "config.json"

// session holds everything a command handler needs: the open database,
// its configuration, and the in-memory probabilistic/rate-limit
// structures created so far in this run.
type session struct {
	db     *lsm.DB
	cfg    config.Config
	clock  record.Clock
	blooms map[string]*probabilistic.BloomFilter
	cmses  map[string]*probabilistic.CountMinSketch
	hlls   map[string]*probabilistic.HyperLogLog
	tokens map[string]*ratelimit.TokenBucket
}

func main() {
	cfg := loadOrInitConfig()

	fmt.Println("=== SiltKV shell ===")
	fmt.Println("type 'help' for a list of commands, 'exit' to quit")

	if code := configMenu(&cfg); code == exitRequested {
		return
	}

	db, err := lsm.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	s := &session{
		db:     db,
		cfg:    cfg,
		clock:  record.SystemClock{},
		blooms: make(map[string]*probabilistic.BloomFilter),
		cmses:  make(map[string]*probabilistic.CountMinSketch),
		hlls:   make(map[string]*probabilistic.HyperLogLog),
		tokens: make(map[string]*ratelimit.TokenBucket),
	}

	repl(s)
}

func loadOrInitConfig() config.Config {
	if _, err := os.Stat(configFileName); os.IsNotExist(err) {
		cfg := config.Default()
		if err := config.Save(configFileName, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "failed to save default configuration: %v\n", err)
		}
		return cfg
	}
	cfg, err := config.Load(configFileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load %s, using defaults: %v\n", configFileName, err)
		return config.Default()
	}
	return cfg
}

// repl reads one command per line until "exit" or EOF.
func repl(s *session) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("siltkv> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		cmd, args := fields[0], fields[1:]
		switch cmd {
		case "exit", "quit":
			fmt.Println("Exiting...")
			return
		case "help":
			printHelp()
		default:
			if handler, ok := commands[cmd]; ok {
				handler(s, args)
			} else {
				fmt.Printf("unknown command %q — type 'help'\n", cmd)
			}
		}
	}
}

// commands maps a command name to its handler; populated by init()
// functions in commands.go and probabilistic.go so each file owns its
// own slice of the dispatch table.
var commands = map[string]func(*session, []string){}

func printHelp() {
	fmt.Println(`commands:
  insert <key> <value>       store a key/value pair
  get <key>                  fetch a value
  delete <key>                tombstone a key
  prefixscan <prefix>         list every key under a prefix
  rangescan <lower> <upper>   list every key in [lower, upper]
  prefixiter <prefix>         step through a prefix scan one entry at a time
  rangeiter <lower> <upper>   step through a range scan one entry at a time
  bloom new <name> [prob] [cap]
  bloom add/check/save/load <name> [key]
  cms new/add/count/save/load <name> [key]
  hll new/add/count/save/load <name> [key]
  simhash <text1> <text2>     hamming distance between two strings' simhashes
  ratelimit new/allow/save/load <name> [n]
  exit                        quit the shell`)
}
