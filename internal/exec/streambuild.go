package exec

import (
	"sort"

	"icydb/internal/errs"
	"icydb/internal/key"
	"icydb/internal/plan"
	"icydb/internal/store"
	"icydb/internal/stream"
	"icydb/internal/value"
)

// buildStream assembles an OrderedKeyStream bottom-up from a canonicalized
// AccessPlan: Path consumes one access spec directly, Union folds pairwise
// merges, Intersection folds pairwise intersections (spec §4.9: "Streams
// are assembled bottom-up from AccessPlan").
func (e *Engine) buildStream(b *EntityBinding, ap plan.AccessPlan, dir plan.OrderDirection) (stream.OrderedKeyStream, error) {
	sdir := streamDirection(dir)
	switch ap.Kind {
	case plan.CompositePath:
		return e.buildPathStream(b, ap.Path, sdir)
	case plan.CompositeUnion:
		return e.foldChildren(b, ap.Children, dir, sdir, func(left, right stream.OrderedKeyStream, d stream.Direction) (stream.OrderedKeyStream, error) {
			return stream.NewMergeOrderedKeyStream(left, right, d)
		})
	case plan.CompositeIntersection:
		return e.foldChildren(b, ap.Children, dir, sdir, func(left, right stream.OrderedKeyStream, d stream.Direction) (stream.OrderedKeyStream, error) {
			return stream.NewIntersectOrderedKeyStream(left, right, d)
		})
	default:
		return nil, errs.Newf(errs.InvariantViolation, errs.Executor, "exec: unknown composite kind %d", ap.Kind)
	}
}

type pairwiseCombinator func(left, right stream.OrderedKeyStream, dir stream.Direction) (stream.OrderedKeyStream, error)

func (e *Engine) foldChildren(b *EntityBinding, children []plan.AccessPlan, dir plan.OrderDirection, sdir stream.Direction, combine pairwiseCombinator) (stream.OrderedKeyStream, error) {
	if len(children) == 0 {
		return nil, errs.New(errs.InvariantViolation, errs.Executor, "exec: composite access plan with no children reached stream assembly")
	}
	acc, err := e.buildStream(b, children[0], dir)
	if err != nil {
		return nil, err
	}
	for _, c := range children[1:] {
		next, err := e.buildStream(b, c, dir)
		if err != nil {
			return nil, err
		}
		acc, err = combine(acc, next, sdir)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func (e *Engine) buildPathStream(b *EntityBinding, p plan.AccessPath, dir stream.Direction) (stream.OrderedKeyStream, error) {
	switch p.Kind {
	case plan.AccessByKey:
		raw, err := b.encodeDataKeyRaw(p.Key)
		if err != nil {
			return nil, err
		}
		return stream.NewVecOrderedKeyStream([][]byte{raw}, dir), nil

	case plan.AccessByKeys:
		raws := make([][]byte, 0, len(p.Keys))
		for _, k := range p.Keys {
			raw, err := b.encodeDataKeyRaw(k)
			if err != nil {
				return nil, err
			}
			raws = append(raws, raw)
		}
		sortRawKeys(raws, dir)
		return stream.NewVecOrderedKeyStream(raws, dir), nil

	case plan.AccessKeyRange:
		lower, upper, err := b.dataRangeBounds(p.Start, p.End)
		if err != nil {
			return nil, err
		}
		m := e.registry.DataStore(b.DataStoreID).Map
		return stream.NewDataRangeStream(m, lower, upper, dir), nil

	case plan.AccessIndexPrefix:
		ib, ok := b.indexBinding(p.IndexName)
		if !ok {
			return nil, errs.Newf(errs.InvariantViolation, errs.Executor, "exec: no binding for index %q", p.IndexName)
		}
		prefix, err := encodeComponents(p.PrefixVals)
		if err != nil {
			return nil, err
		}
		lower, upper := key.BoundsForPrefix(key.KindUser, ib.ID, prefix)
		m := e.registry.IndexStore(ib.StoreID).Map
		return stream.NewIndexPrefixStream(m, store.IncludedBound(lower), store.ExcludedBound(upper), dir, nil), nil

	case plan.AccessIndexRange:
		ib, ok := b.indexBinding(p.IndexName)
		if !ok {
			return nil, errs.Newf(errs.InvariantViolation, errs.Executor, "exec: no binding for index %q", p.IndexName)
		}
		prefix, err := encodeComponents(p.PrefixVals)
		if err != nil {
			return nil, err
		}
		lowerComp, err := rangeBoundToKeyBound(p.RangeLower)
		if err != nil {
			return nil, err
		}
		upperComp, err := rangeBoundToKeyBound(p.RangeUpper)
		if err != nil {
			return nil, err
		}
		lower, upper := key.RawBoundsForIndexComponentRange(key.KindUser, ib.ID, prefix, lowerComp, upperComp)
		m := e.registry.IndexStore(ib.StoreID).Map
		return stream.NewIndexRangeStream(m, store.IncludedBound(lower), store.ExcludedBound(upper), dir, nil), nil

	case plan.AccessFullScan:
		m := e.registry.DataStore(b.DataStoreID).Map
		return stream.NewDataRangeStream(m, store.UnboundedBound(), store.UnboundedBound(), dir), nil

	default:
		return nil, errs.Newf(errs.InvariantViolation, errs.Executor, "exec: unknown access kind %d", p.Kind)
	}
}

func streamDirection(dir plan.OrderDirection) stream.Direction {
	if dir == plan.Descending {
		return stream.Descending
	}
	return stream.Ascending
}

func sortRawKeys(raws [][]byte, dir stream.Direction) {
	sort.Slice(raws, func(i, j int) bool {
		less := compareBytesAsc(raws[i], raws[j]) < 0
		if dir == stream.Descending {
			return !less
		}
		return less
	})
}

func compareBytesAsc(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func encodeComponents(vals []value.Value) ([][]byte, error) {
	out := make([][]byte, len(vals))
	for i, v := range vals {
		raw, err := value.EncodeComponent(v, value.CoercionStrict)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}

func rangeBoundToKeyBound(rb plan.RangeBound) (key.Bound, error) {
	if rb.Unbounded {
		return key.UnboundedBound(), nil
	}
	raw, err := value.EncodeComponent(rb.Value, value.CoercionStrict)
	if err != nil {
		return key.Bound{}, err
	}
	if rb.Included {
		return key.IncludedBound(raw), nil
	}
	return key.ExcludedBound(raw), nil
}
