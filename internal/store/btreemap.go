package store

import (
	"bytes"
	"sync/atomic"

	"github.com/google/btree"
)

// btreeDegree matches the degree erigon's in-memory history reader uses
// for its google/btree trees; no measurement in this corpus suggests a
// different value serves small in-process key sets better.
const btreeDegree = 16

// kvItem is the btree.Item backing one key/value pair. Only Key
// participates in Less; Value rides along.
type kvItem struct {
	Key   []byte
	Value []byte
}

func (i *kvItem) Less(than btree.Item) bool {
	return bytes.Compare(i.Key, than.(*kvItem).Key) < 0
}

// BTreeMap is an in-process OrderedMap backed by github.com/google/btree
// (spec §4.1). It gives ordered iteration and O(log n) point/range
// operations without a hand-rolled balanced tree.
type BTreeMap struct {
	tree       *btree.BTree
	generation atomic.Uint64
}

func NewBTreeMap() *BTreeMap {
	return &BTreeMap{tree: btree.New(btreeDegree)}
}

func (m *BTreeMap) Get(key []byte) ([]byte, bool) {
	item := m.tree.Get(&kvItem{Key: key})
	if item == nil {
		return nil, false
	}
	return item.(*kvItem).Value, true
}

func (m *BTreeMap) Insert(key, value []byte) {
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)
	m.tree.ReplaceOrInsert(&kvItem{Key: k, Value: v})
	m.generation.Add(1)
}

func (m *BTreeMap) Remove(key []byte) bool {
	item := m.tree.Delete(&kvItem{Key: key})
	if item == nil {
		return false
	}
	m.generation.Add(1)
	return true
}

func (m *BTreeMap) Clear() {
	m.tree = btree.New(btreeDegree)
	m.generation.Add(1)
}

func (m *BTreeMap) Generation() uint64 {
	return m.generation.Load()
}

// Range walks ascending from lower, stopping the underlying btree walk as
// soon as upper is exceeded, so the cost of an abandoned or short scan is
// proportional to what was actually consumed rather than to the whole
// map (spec §4.1: iterators must be lazy and tolerate being dropped
// mid-scan). The btree library's Ascend callbacks only support stopping
// early, not suspending, so entries are staged into a bounded buffer
// refilled on demand rather than computed eagerly in full.
func (m *BTreeMap) Range(lower, upper Bound) RangeIter {
	it := &btreeRangeIter{tree: m.tree, upper: upper}
	switch lower.Kind {
	case Unbounded:
		it.startKey = nil
	case Included:
		it.startKey = lower.Key
	case Excluded:
		it.startKey = lower.Key
		it.skipStart = true
	}
	return it
}

const rangeBufferSize = 64

type btreeRangeIter struct {
	tree      *btree.BTree
	upper     Bound
	startKey  []byte
	skipStart bool

	buf     []Entry
	bufPos  int
	cursor  []byte
	started bool
	done    bool
	current Entry
}

func (it *btreeRangeIter) fill() {
	it.buf = it.buf[:0]
	it.bufPos = 0
	visited := 0
	from := it.startKey
	if it.started {
		from = it.cursor
	}
	visit := func(i btree.Item) bool {
		cand := i.(*kvItem)
		if it.started && bytes.Equal(cand.Key, it.cursor) {
			return true // re-anchor point, not a new entry
		}
		if !it.started && it.skipStart && bytes.Equal(cand.Key, it.startKey) {
			return true
		}
		if it.upper.Kind != Unbounded {
			cmp := bytes.Compare(cand.Key, it.upper.Key)
			if (it.upper.Kind == Excluded && cmp >= 0) || (it.upper.Kind == Included && cmp > 0) {
				return false
			}
		}
		it.buf = append(it.buf, Entry{Key: cand.Key, Value: cand.Value})
		visited++
		return visited < rangeBufferSize
	}
	if from == nil {
		it.tree.Ascend(visit)
	} else {
		it.tree.AscendGreaterOrEqual(&kvItem{Key: from}, visit)
	}
}

func (it *btreeRangeIter) Next() bool {
	if it.done {
		return false
	}
	if it.bufPos >= len(it.buf) {
		it.fill()
		if len(it.buf) == 0 {
			it.done = true
			return false
		}
	}
	it.current = it.buf[it.bufPos]
	it.bufPos++
	it.started = true
	it.cursor = it.current.Key
	return true
}

func (it *btreeRangeIter) Entry() Entry {
	return it.current
}
