package stream

import (
	"icydb/internal/key"
	"icydb/internal/store"
)

// RangeOrderedKeyStream streams a (lower,upper) range from an OrderedMap
// (spec §4.9). It drains the range into memory at construction in either
// direction; Descending streams then walk it backwards (the substrate has
// no native reverse cursor) — this is the "physical reverse" the route
// planner's desc_physical_reverse_supported flag gates on.
type RangeOrderedKeyStream struct {
	dir     Direction
	entries []store.Entry
	pos     int
}

func NewDataRangeStream(m store.OrderedMap, lower, upper store.Bound, dir Direction) *RangeOrderedKeyStream {
	return newRangeStream(m, lower, upper, dir, nil)
}

// newRangeStream drains m.Range(lower,upper) eagerly into entries. This
// trades the "lazy substrate iterator" for a simpler direction-agnostic
// implementation: RangeIter itself stays lazy and bounded (spec §4.1), but
// a RangeOrderedKeyStream has already read the full range, in either
// direction, by the time its first key is returned.
func newRangeStream(m store.OrderedMap, lower, upper store.Bound, dir Direction, resolve func(rawKey []byte) ([]byte, bool)) *RangeOrderedKeyStream {
	it := m.Range(lower, upper)
	var entries []store.Entry
	for it.Next() {
		e := it.Entry()
		if resolve != nil {
			resolvedKey, ok := resolve(e.Key)
			if !ok {
				continue
			}
			e = store.Entry{Key: resolvedKey, Value: e.Value}
		}
		entries = append(entries, e)
	}
	if dir == Descending {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
	return &RangeOrderedKeyStream{dir: dir, entries: entries}
}

func (s *RangeOrderedKeyStream) Next() ([]byte, bool) {
	if s.pos >= len(s.entries) {
		return nil, false
	}
	k := s.entries[s.pos].Key
	s.pos++
	return k, true
}

func (s *RangeOrderedKeyStream) Direction() Direction { return s.dir }

func (s *RangeOrderedKeyStream) ExactHint() (uint64, bool) {
	return uint64(len(s.entries) - s.pos), true
}

// IndexPredicateProgram evaluates a predicate against an index key's
// components only, without a data-row fetch (spec §4.9). It returns true
// when the entry should be kept.
type IndexPredicateProgram func(components [][]byte) bool

// IndexPrefixStream / IndexRangeStream specialize RangeOrderedKeyStream
// over an index store: each entry's index key is decoded to resolve the
// terminal PK component as the yielded data key, and an optional
// IndexPredicateProgram filters on index components alone (spec §4.9).
type IndexPrefixStream struct {
	inner        *RangeOrderedKeyStream
	rejected     uint64
}

func NewIndexPrefixStream(m store.OrderedMap, lower, upper store.Bound, dir Direction, program IndexPredicateProgram) *IndexPrefixStream {
	s := &IndexPrefixStream{}
	resolve := func(raw []byte) ([]byte, bool) {
		ik, err := key.FromRaw(raw)
		if err != nil || len(ik.Components) == 0 {
			return nil, false
		}
		if program != nil && !program(ik.Components) {
			s.rejected++
			return nil, false
		}
		return ik.Components[len(ik.Components)-1], true
	}
	s.inner = newRangeStream(m, lower, upper, dir, resolve)
	return s
}

func (s *IndexPrefixStream) Next() ([]byte, bool)        { return s.inner.Next() }
func (s *IndexPrefixStream) Direction() Direction        { return s.inner.Direction() }
func (s *IndexPrefixStream) ExactHint() (uint64, bool)   { return s.inner.ExactHint() }
func (s *IndexPrefixStream) RejectedCount() uint64       { return s.rejected }

// IndexRangeStream is the same shape as IndexPrefixStream; kept as a
// distinct type so callers (and tests) can tell the two access shapes
// apart without inspecting the plan that produced them.
type IndexRangeStream struct {
	*IndexPrefixStream
}

func NewIndexRangeStream(m store.OrderedMap, lower, upper store.Bound, dir Direction, program IndexPredicateProgram) *IndexRangeStream {
	inner := NewIndexPrefixStream(m, lower, upper, dir, program)
	return &IndexRangeStream{IndexPrefixStream: inner}
}
