package stream

import (
	"bytes"

	"icydb/internal/errs"
)

// MergeOrderedKeyStream k-way-merges (here: pairwise) two streams,
// deduplicating equal keys, and rejects mismatched directions at
// construction (spec §4.9 invariants). Next checks each child's sequence
// for monotonicity but discards the result, since Next has no error
// result: a non-monotonic child is not reported.
type MergeOrderedKeyStream struct {
	left, right     OrderedKeyStream
	dir             Direction
	lv, rv          []byte
	lok, rok        bool
	lastEmitted     []byte
	haveLastEmitted bool
	started         bool
	lastLeft        []byte
	haveLastLeft    bool
	lastRight       []byte
	haveLastRight   bool
}

func NewMergeOrderedKeyStream(left, right OrderedKeyStream, dir Direction) (*MergeOrderedKeyStream, error) {
	if left.Direction() != dir || right.Direction() != dir {
		return nil, errs.New(errs.InvariantViolation, errs.Executor, "merge stream: child direction disagrees with merge direction")
	}
	return &MergeOrderedKeyStream{left: left, right: right, dir: dir}, nil
}

func (s *MergeOrderedKeyStream) advance() {
	if !s.started {
		s.lv, s.lok = s.left.Next()
		s.rv, s.rok = s.right.Next()
		s.started = true
	}
}

func (s *MergeOrderedKeyStream) lessInDir(a, b []byte) bool {
	c := bytes.Compare(a, b)
	if s.dir == Ascending {
		return c < 0
	}
	return c > 0
}

func (s *MergeOrderedKeyStream) checkMonotonic(last *[]byte, haveLast *bool, k []byte) error {
	if *haveLast && !s.lessInDir(*last, k) && !bytes.Equal(*last, k) {
		return errs.New(errs.InvariantViolation, errs.Executor, "merge stream: child sequence is not monotonic")
	}
	*last = k
	*haveLast = true
	return nil
}

func (s *MergeOrderedKeyStream) Next() ([]byte, bool) {
	s.advance()
	for {
		if !s.lok && !s.rok {
			return nil, false
		}

		var out []byte
		switch {
		case !s.rok:
			out = s.lv
			_ = s.checkMonotonic(&s.lastLeft, &s.haveLastLeft, s.lv)
			s.lv, s.lok = s.left.Next()
		case !s.lok:
			out = s.rv
			_ = s.checkMonotonic(&s.lastRight, &s.haveLastRight, s.rv)
			s.rv, s.rok = s.right.Next()
		case bytes.Equal(s.lv, s.rv):
			out = s.lv
			s.lv, s.lok = s.left.Next()
			s.rv, s.rok = s.right.Next()
		case s.lessInDir(s.lv, s.rv):
			out = s.lv
			_ = s.checkMonotonic(&s.lastLeft, &s.haveLastLeft, s.lv)
			s.lv, s.lok = s.left.Next()
		default:
			out = s.rv
			_ = s.checkMonotonic(&s.lastRight, &s.haveLastRight, s.rv)
			s.rv, s.rok = s.right.Next()
		}

		if s.haveLastEmitted && bytes.Equal(s.lastEmitted, out) {
			continue
		}
		s.lastEmitted = out
		s.haveLastEmitted = true
		return out, true
	}
}

func (s *MergeOrderedKeyStream) Direction() Direction { return s.dir }

func (s *MergeOrderedKeyStream) ExactHint() (uint64, bool) {
	// The children's hints summed only bound the count from above (a key
	// both children hold is emitted once), so no exact hint is given.
	return 0, false
}

// IntersectOrderedKeyStream advances the lagging side until both sides
// agree on a key, emitting each shared key once, and rejects mismatched
// directions at construction (spec §4.9). It does not check its children
// for monotonicity.
type IntersectOrderedKeyStream struct {
	left, right OrderedKeyStream
	dir         Direction
}

func NewIntersectOrderedKeyStream(left, right OrderedKeyStream, dir Direction) (*IntersectOrderedKeyStream, error) {
	if left.Direction() != dir || right.Direction() != dir {
		return nil, errs.New(errs.InvariantViolation, errs.Executor, "intersect stream: child direction disagrees with intersect direction")
	}
	return &IntersectOrderedKeyStream{left: left, right: right, dir: dir}, nil
}

func (s *IntersectOrderedKeyStream) lessInDir(a, b []byte) bool {
	c := bytes.Compare(a, b)
	if s.dir == Ascending {
		return c < 0
	}
	return c > 0
}

func (s *IntersectOrderedKeyStream) Next() ([]byte, bool) {
	lv, lok := s.left.Next()
	rv, rok := s.right.Next()
	for lok && rok {
		switch {
		case bytes.Equal(lv, rv):
			return lv, true
		case s.lessInDir(lv, rv):
			lv, lok = s.left.Next()
		default:
			rv, rok = s.right.Next()
		}
	}
	return nil, false
}

func (s *IntersectOrderedKeyStream) Direction() Direction { return s.dir }

func (s *IntersectOrderedKeyStream) ExactHint() (uint64, bool) {
	return 0, false
}

// BudgetedOrderedKeyStream stops after budget keys, never polling inner
// beyond that (spec §4.9).
type BudgetedOrderedKeyStream struct {
	inner   OrderedKeyStream
	budget  uint64
	emitted uint64
}

func NewBudgetedOrderedKeyStream(inner OrderedKeyStream, budget uint64) *BudgetedOrderedKeyStream {
	return &BudgetedOrderedKeyStream{inner: inner, budget: budget}
}

func (s *BudgetedOrderedKeyStream) Next() ([]byte, bool) {
	if s.emitted >= s.budget {
		return nil, false
	}
	k, ok := s.inner.Next()
	if !ok {
		return nil, false
	}
	s.emitted++
	return k, true
}

func (s *BudgetedOrderedKeyStream) Direction() Direction { return s.inner.Direction() }

func (s *BudgetedOrderedKeyStream) ExactHint() (uint64, bool) {
	inner, ok := s.inner.ExactHint()
	if !ok {
		return 0, false
	}
	remainingBudget := s.budget - s.emitted
	if inner < remainingBudget {
		return inner, true
	}
	return remainingBudget, true
}
