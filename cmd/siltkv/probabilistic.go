package main

import (
	"fmt"
	"strconv"

	"github.com/siltkv/siltkv/internal/lsm"
	"github.com/siltkv/siltkv/internal/probabilistic"
	"github.com/siltkv/siltkv/internal/ratelimit"
)

func init() {
	commands["bloom"] = cmdBloom
	commands["cms"] = cmdCMS
	commands["hll"] = cmdHLL
	commands["simhash"] = cmdSimHash
	commands["ratelimit"] = cmdRateLimit
}

// reservedKey builds the key a named probabilistic/rate-limit structure
// is persisted under: the engine's reserved prefix, a kind tag, and the
// user-chosen name, so these structures live in the same level/manifest
// machinery as ordinary data instead of a side file.
func reservedKey(kind, name string) []byte {
	return append(append(append([]byte{}, lsm.ReservedPrefix...), kind+"/"...), name...)
}

func cmdBloom(s *session, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: bloom <new|add|check|save|load> <name> [key|prob] [cap]")
		return
	}
	op, name := args[0], args[1]
	switch op {
	case "new":
		prob := s.cfg.BloomFilterProbability
		cap := s.cfg.BloomFilterCap
		if len(args) >= 3 {
			if v, err := strconv.ParseFloat(args[2], 64); err == nil {
				prob = v
			}
		}
		if len(args) >= 4 {
			if v, err := strconv.Atoi(args[3]); err == nil {
				cap = v
			}
		}
		s.blooms[name] = probabilistic.NewBloomFilter(prob, cap)
		fmt.Printf("bloom filter %q created\n", name)
	case "add":
		f, ok := s.blooms[name]
		if !ok || len(args) < 3 {
			fmt.Println("usage: bloom add <name> <key> (name must exist — use 'bloom new' first)")
			return
		}
		f.Add([]byte(args[2]))
		fmt.Println("added")
	case "check":
		f, ok := s.blooms[name]
		if !ok || len(args) < 3 {
			fmt.Println("usage: bloom check <name> <key>")
			return
		}
		fmt.Printf("maybe present: %v\n", f.Contains([]byte(args[2])))
	case "save":
		f, ok := s.blooms[name]
		if !ok {
			fmt.Printf("no bloom filter named %q\n", name)
			return
		}
		if err := s.db.InsertInternal(reservedKey("bloom", name), f.Serialize(), s.clock.Now()); err != nil {
			fmt.Printf("save failed: %v\n", err)
			return
		}
		fmt.Println("saved")
	case "load":
		data, found, err := s.db.Get(reservedKey("bloom", name))
		if err != nil || !found {
			fmt.Printf("no saved bloom filter named %q\n", name)
			return
		}
		f, err := probabilistic.DeserializeBloomFilter(data)
		if err != nil {
			fmt.Printf("load failed: %v\n", err)
			return
		}
		s.blooms[name] = f
		fmt.Println("loaded")
	default:
		fmt.Println("usage: bloom <new|add|check|save|load> <name> [key|prob] [cap]")
	}
}

func cmdCMS(s *session, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: cms <new|add|count|save|load> <name> [key]")
		return
	}
	op, name := args[0], args[1]
	switch op {
	case "new":
		s.cmses[name] = probabilistic.NewCountMinSketch(0.01, 0.1)
		fmt.Printf("count-min sketch %q created\n", name)
	case "add":
		c, ok := s.cmses[name]
		if !ok || len(args) < 3 {
			fmt.Println("usage: cms add <name> <key>")
			return
		}
		c.IncreaseCount([]byte(args[2]))
		fmt.Println("added")
	case "count":
		c, ok := s.cmses[name]
		if !ok || len(args) < 3 {
			fmt.Println("usage: cms count <name> <key>")
			return
		}
		fmt.Printf("estimated count: %d\n", c.GetCount([]byte(args[2])))
	case "save":
		c, ok := s.cmses[name]
		if !ok {
			fmt.Printf("no count-min sketch named %q\n", name)
			return
		}
		if err := s.db.InsertInternal(reservedKey("cms", name), c.Serialize(), s.clock.Now()); err != nil {
			fmt.Printf("save failed: %v\n", err)
			return
		}
		fmt.Println("saved")
	case "load":
		data, found, err := s.db.Get(reservedKey("cms", name))
		if err != nil || !found {
			fmt.Printf("no saved count-min sketch named %q\n", name)
			return
		}
		c, err := probabilistic.DeserializeCountMinSketch(data)
		if err != nil {
			fmt.Printf("load failed: %v\n", err)
			return
		}
		s.cmses[name] = c
		fmt.Println("loaded")
	default:
		fmt.Println("usage: cms <new|add|count|save|load> <name> [key]")
	}
}

func cmdHLL(s *session, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: hll <new|add|count|save|load> <name> [key]")
		return
	}
	op, name := args[0], args[1]
	switch op {
	case "new":
		s.hlls[name] = probabilistic.NewHyperLogLog(s.cfg.HyperLogLogPrecision)
		fmt.Printf("hyperloglog %q created\n", name)
	case "add":
		h, ok := s.hlls[name]
		if !ok || len(args) < 3 {
			fmt.Println("usage: hll add <name> <key>")
			return
		}
		h.Add([]byte(args[2]))
		fmt.Println("added")
	case "count":
		h, ok := s.hlls[name]
		if !ok {
			fmt.Printf("no hyperloglog named %q\n", name)
			return
		}
		fmt.Printf("estimated cardinality: %d\n", h.Count())
	case "save":
		h, ok := s.hlls[name]
		if !ok {
			fmt.Printf("no hyperloglog named %q\n", name)
			return
		}
		if err := s.db.InsertInternal(reservedKey("hll", name), h.Serialize(), s.clock.Now()); err != nil {
			fmt.Printf("save failed: %v\n", err)
			return
		}
		fmt.Println("saved")
	case "load":
		data, found, err := s.db.Get(reservedKey("hll", name))
		if err != nil || !found {
			fmt.Printf("no saved hyperloglog named %q\n", name)
			return
		}
		h, err := probabilistic.DeserializeHyperLogLog(data)
		if err != nil {
			fmt.Printf("load failed: %v\n", err)
			return
		}
		s.hlls[name] = h
		fmt.Println("loaded")
	default:
		fmt.Println("usage: hll <new|add|count|save|load> <name> [key]")
	}
}

func cmdSimHash(s *session, args []string) {
	if len(args) != 2 {
		fmt.Println("usage: simhash <text1> <text2>")
		return
	}
	fmt.Printf("hamming distance: %d\n", probabilistic.HammingDistance(args[0], args[1]))
}

func cmdRateLimit(s *session, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: ratelimit <new|allow|save|load> <name> [n]")
		return
	}
	op, name := args[0], args[1]
	switch op {
	case "new":
		s.tokens[name] = ratelimit.New(s.cfg.TokenBucketCapacity, s.cfg.TokenBucketRefillRate, s.clock)
		fmt.Printf("token bucket %q created\n", name)
	case "allow":
		b, ok := s.tokens[name]
		if !ok {
			fmt.Printf("no token bucket named %q\n", name)
			return
		}
		n := uint64(1)
		if len(args) >= 3 {
			if v, err := strconv.ParseUint(args[2], 10, 64); err == nil {
				n = v
			}
		}
		fmt.Printf("allowed: %v\n", b.Allow(n))
	case "save":
		b, ok := s.tokens[name]
		if !ok {
			fmt.Printf("no token bucket named %q\n", name)
			return
		}
		if err := s.db.InsertInternal(reservedKey("tokenbucket", name), b.Serialize(), s.clock.Now()); err != nil {
			fmt.Printf("save failed: %v\n", err)
			return
		}
		fmt.Println("saved")
	case "load":
		data, found, err := s.db.Get(reservedKey("tokenbucket", name))
		if err != nil || !found {
			fmt.Printf("no saved token bucket named %q\n", name)
			return
		}
		b, err := ratelimit.Deserialize(data, s.clock)
		if err != nil {
			fmt.Printf("load failed: %v\n", err)
			return
		}
		s.tokens[name] = b
		fmt.Println("loaded")
	default:
		fmt.Println("usage: ratelimit <new|allow|save|load> <name> [n]")
	}
}
