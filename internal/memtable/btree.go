package memtable

import (
	"errors"

	"github.com/siltkv/siltkv/internal/utils"
)

// DefaultBTreeOrder is the branching factor m used when a caller
// doesn't configure one (spec default: 32): each node holds at most
// m-1 keys and at most m children.
const DefaultBTreeOrder = 32

// ErrInvalidOrder is returned by NewBTree when asked for an order that
// can't hold a single key per node (spec §7: construction fails).
var ErrInvalidOrder = errors.New("memtable: b-tree order must be at least 2")

// btNode is stored by value in BTree's arena; children are arena
// indices so the tree lives in one contiguous slice instead of a graph
// of heap-allocated nodes, matching the skip list's arena discipline.
type btNode struct {
	leaf     bool
	keys     []Entry
	children []int32
}

// BTree is an arena-indexed order-m B-tree implementing Table.
type BTree struct {
	arena []btNode
	root  int32
	count int
	order int
}

// NewBTree returns an empty B-tree of the given order (branching
// factor m). order must be at least 2; anything smaller can't hold a
// key per node and is rejected rather than silently clamped, per the
// engine's "invalid configuration fails construction" contract.
func NewBTree(order int) (*BTree, error) {
	if order < 2 {
		return nil, ErrInvalidOrder
	}
	return &BTree{root: nilIdx, order: order}, nil
}

func (t *BTree) maxKeys() int { return t.order - 1 }

// newNode appends a fresh node to the arena and returns its index. It
// must never be called while a caller holds a live *btNode from before
// the call, since append may reallocate the backing array.
func (t *BTree) newNode(leaf bool) int32 {
	t.arena = append(t.arena, btNode{leaf: leaf})
	return int32(len(t.arena) - 1)
}

// search returns the position of key within node.keys if present, and
// the index at which it would be inserted (or descended past)
// otherwise.
func search(keys []Entry, key []byte) (int, bool) {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := (lo + hi) / 2
		c := utils.Compare(keys[mid].Key, key)
		switch {
		case c == 0:
			return mid, true
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false
}

func insertEntryAt(s []Entry, i int, e Entry) []Entry {
	s = append(s, Entry{})
	copy(s[i+1:], s[i:])
	s[i] = e
	return s
}

func insertIdxAt(s []int32, i int, v int32) []int32 {
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeEntryAt(s []Entry, i int) []Entry {
	copy(s[i:], s[i+1:])
	return s[:len(s)-1]
}

func removeIdxAt(s []int32, i int) []int32 {
	copy(s[i:], s[i+1:])
	return s[:len(s)-1]
}

// Insert implements Table.
func (t *BTree) Insert(key, value []byte, ts uint64) bool {
	return t.put(key, value, false, ts)
}

// Delete implements Table.
func (t *BTree) Delete(key []byte, ts uint64) bool {
	return t.put(key, nil, true, ts)
}

func (t *BTree) put(key, value []byte, tombstone bool, ts uint64) bool {
	e := cloneEntry(key, value, tombstone, ts)

	if t.root == nilIdx {
		t.root = t.newNode(true)
		t.arena[t.root].keys = []Entry{e}
		t.count++
		return true
	}

	if len(t.arena[t.root].keys) == t.maxKeys() {
		oldRoot := t.root
		newRoot := t.newNode(false)
		t.arena[newRoot].children = []int32{oldRoot}
		t.splitChild(newRoot, 0)
		t.root = newRoot
	}

	return t.insertNonFull(t.root, e)
}

// splitChild splits the i-th child of parentIdx, promoting its median
// key into parentIdx.
func (t *BTree) splitChild(parentIdx int32, i int) {
	childIdx := t.arena[parentIdx].children[i]
	child := t.arena[childIdx]

	mid := len(child.keys) / 2
	midKey := child.keys[mid]

	rightIdx := t.newNode(child.leaf)
	right := btNode{leaf: child.leaf}
	right.keys = append(right.keys, child.keys[mid+1:]...)
	if !child.leaf {
		right.children = append(right.children, child.children[mid+1:]...)
	}
	t.arena[rightIdx] = right

	left := btNode{leaf: child.leaf}
	left.keys = append(left.keys, child.keys[:mid]...)
	if !child.leaf {
		left.children = append(left.children, child.children[:mid+1]...)
	}
	t.arena[childIdx] = left

	t.arena[parentIdx].keys = insertEntryAt(t.arena[parentIdx].keys, i, midKey)
	t.arena[parentIdx].children = insertIdxAt(t.arena[parentIdx].children, i+1, rightIdx)
}

func (t *BTree) insertNonFull(nodeIdx int32, e Entry) bool {
	i, found := search(t.arena[nodeIdx].keys, e.Key)
	if found {
		t.arena[nodeIdx].keys[i] = e
		return false
	}

	if t.arena[nodeIdx].leaf {
		t.arena[nodeIdx].keys = insertEntryAt(t.arena[nodeIdx].keys, i, e)
		t.count++
		return true
	}

	childIdx := t.arena[nodeIdx].children[i]
	if len(t.arena[childIdx].keys) == t.maxKeys() {
		t.splitChild(nodeIdx, i)
		switch c := utils.Compare(e.Key, t.arena[nodeIdx].keys[i].Key); {
		case c == 0:
			t.arena[nodeIdx].keys[i] = e
			return false
		case c > 0:
			i++
		}
	}

	return t.insertNonFull(t.arena[nodeIdx].children[i], e)
}

// Get implements Table.
func (t *BTree) Get(key []byte) (Entry, bool) {
	idx := t.root
	for idx != nilIdx {
		node := t.arena[idx]
		i, found := search(node.keys, key)
		if found {
			return node.keys[i], true
		}
		if node.leaf {
			return Entry{}, false
		}
		idx = node.children[i]
	}
	return Entry{}, false
}

// Len implements Table.
func (t *BTree) Len() int {
	return t.count
}

// Iterator implements Table.
func (t *BTree) Iterator() Iterator {
	it := &btreeIterator{tree: t}
	it.pushLeftPath(t.root)
	return it
}

type btFrame struct {
	node int32
	pos  int // next key index to emit at this node
}

// btreeIterator performs an in-order traversal using an explicit stack,
// since Go has no coroutines for generators.
type btreeIterator struct {
	tree  *BTree
	stack []btFrame
}

func (it *btreeIterator) pushLeftPath(idx int32) {
	for idx != nilIdx {
		it.stack = append(it.stack, btFrame{node: idx, pos: 0})
		if it.tree.arena[idx].leaf {
			return
		}
		idx = it.tree.arena[idx].children[0]
	}
}

func (it *btreeIterator) Valid() bool {
	return len(it.stack) > 0
}

func (it *btreeIterator) Entry() Entry {
	top := it.stack[len(it.stack)-1]
	return it.tree.arena[top.node].keys[top.pos]
}

func (it *btreeIterator) Next() {
	top := &it.stack[len(it.stack)-1]
	node := it.tree.arena[top.node]

	if !node.leaf {
		// descend into the child right of the key we just emitted
		child := node.children[top.pos+1]
		top.pos++
		it.pushLeftPath(child)
		return
	}

	top.pos++
	for len(it.stack) > 0 && it.stack[len(it.stack)-1].pos >= len(it.tree.arena[it.stack[len(it.stack)-1].node].keys) {
		it.stack = it.stack[:len(it.stack)-1]
	}
}
