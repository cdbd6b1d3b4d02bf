package exec

import (
	"sort"

	"go.uber.org/zap"

	"icydb/internal/errs"
	"icydb/internal/metrics"
	"icydb/internal/plan"
	"icydb/internal/value"
)

// AggregateKind tags the terminal aggregate operation (spec §4.10
// Aggregate).
type AggregateKind byte

const (
	AggCount AggregateKind = iota
	AggExists
	AggMin
	AggMax
	AggFirst
	AggLast
	AggTopKBy
	AggBottomKBy
	AggMinMaxField
	AggNth
	AggMedian
	AggCountDistinct
)

// AggregateSpec describes one terminal aggregate call. Field names the
// target field for the field-scoped kinds (Min/Max/MinMaxField/Nth/
// Median/CountDistinct/TopKBy/BottomKBy); K and N parameterize
// TopKBy/BottomKBy and Nth respectively.
type AggregateSpec struct {
	Kind  AggregateKind
	Field string
	K     uint64
	N     uint64
}

// AggregateResult carries whichever of its fields Kind populates.
type AggregateResult struct {
	Count    uint64
	Exists   bool
	Value    value.Value
	HasValue bool
	Row      []byte
	HasRow   bool
	Rows     [][]byte

	// AggMinMaxField only: both extrema of the target field.
	MinValue value.Value
	MaxValue value.Value
	HasMin   bool
	HasMax   bool
}

// Aggregate runs lp's access plan (Mode must be plan.ModeLoad; Aggregate
// shares Load's planning/routing, only the terminal reduction differs) and
// reduces the matched rows per spec (spec §4.10 Aggregate). Grouped
// aggregates are handled separately by GroupedAggregate: ungrouped
// terminals always materialize here, since every kind needs either the
// full ordered set (top/bottom-k, median, nth) or a short-circuitable scan
// that the current access-shape fast paths do not yet implement; route's
// FastPathOrder / capability gates are reserved for a later optimization
// pass and do not change the result, only how cheaply it is reached.
func (e *Engine) Aggregate(entityPath string, lp plan.LogicalPlan, spec AggregateSpec) (*AggregateResult, error) {
	b, err := e.binding(entityPath)
	if err != nil {
		return nil, err
	}

	execSpan := e.metrics.StartSpan(metrics.ExecLoad, entityPath)

	ep, err := e.buildExecutablePlan(b, lp, "")
	if err != nil {
		return nil, err
	}

	e.log.Debug("aggregate fast path rejected, materializing",
		zap.String("entity", entityPath), zap.Int("kind", int(spec.Kind)))

	keys, rows, err := e.materializeOrderedRows(ep)
	if err != nil {
		return nil, err
	}

	res, err := reduceAggregate(b, rows, spec)
	if err != nil {
		return nil, err
	}

	execSpan.End(metrics.ExecLoad, entityPath, len(keys))
	return res, nil
}

func reduceAggregate(b *EntityBinding, rows [][]byte, spec AggregateSpec) (*AggregateResult, error) {
	switch spec.Kind {
	case AggCount:
		return &AggregateResult{Count: uint64(len(rows))}, nil
	case AggExists:
		return &AggregateResult{Exists: len(rows) > 0}, nil
	case AggFirst:
		if len(rows) == 0 {
			return &AggregateResult{}, nil
		}
		return &AggregateResult{Row: rows[0], HasRow: true}, nil
	case AggLast:
		if len(rows) == 0 {
			return &AggregateResult{}, nil
		}
		return &AggregateResult{Row: rows[len(rows)-1], HasRow: true}, nil
	case AggMin, AggMax:
		return reduceExtrema(b, rows, spec)
	case AggMinMaxField:
		return reduceMinMax(b, rows, spec)
	case AggNth:
		return reduceNth(b, rows, spec)
	case AggMedian:
		return reduceMedian(b, rows, spec)
	case AggCountDistinct:
		return reduceCountDistinct(b, rows, spec)
	case AggTopKBy, AggBottomKBy:
		return reduceTopBottomK(b, rows, spec)
	default:
		return nil, errs.Newf(errs.Unsupported, errs.Executor, "exec: unknown aggregate kind %d", spec.Kind)
	}
}

// projectField projects field out of every row, skipping rows where it is
// absent (spec §4.4's "unqueryable" fields never reach here because the
// planner rejects them earlier; a genuinely missing field on one row is
// simply excluded from the reduction).
func projectField(b *EntityBinding, rows [][]byte, field string) ([]value.Value, [][]byte, error) {
	vals := make([]value.Value, 0, len(rows))
	kept := make([][]byte, 0, len(rows))
	for _, row := range rows {
		if b.Codec == nil {
			continue
		}
		v, present, err := b.Codec.Field(row, field)
		if err != nil {
			return nil, nil, err
		}
		if !present {
			continue
		}
		vals = append(vals, v)
		kept = append(kept, row)
	}
	return vals, kept, nil
}

func reduceExtrema(b *EntityBinding, rows [][]byte, spec AggregateSpec) (*AggregateResult, error) {
	vals, kept, err := projectField(b, rows, spec.Field)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return &AggregateResult{}, nil
	}
	bestIdx := 0
	for i := 1; i < len(vals); i++ {
		cmp := value.CanonicalCmp(vals[i], vals[bestIdx])
		wantMax := spec.Kind == AggMax
		if (wantMax && cmp > 0) || (!wantMax && cmp < 0) {
			bestIdx = i
		}
	}
	return &AggregateResult{Row: kept[bestIdx], HasRow: true, Value: vals[bestIdx], HasValue: true}, nil
}

// reduceMinMax implements the min_max(field) terminal: both extrema of one
// field in a single pass over the materialized rows.
func reduceMinMax(b *EntityBinding, rows [][]byte, spec AggregateSpec) (*AggregateResult, error) {
	vals, _, err := projectField(b, rows, spec.Field)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return &AggregateResult{}, nil
	}
	minIdx, maxIdx := 0, 0
	for i := 1; i < len(vals); i++ {
		if value.CanonicalCmp(vals[i], vals[minIdx]) < 0 {
			minIdx = i
		}
		if value.CanonicalCmp(vals[i], vals[maxIdx]) > 0 {
			maxIdx = i
		}
	}
	return &AggregateResult{
		MinValue: vals[minIdx], HasMin: true,
		MaxValue: vals[maxIdx], HasMax: true,
	}, nil
}

func reduceNth(b *EntityBinding, rows [][]byte, spec AggregateSpec) (*AggregateResult, error) {
	vals, kept, err := projectField(b, rows, spec.Field)
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return value.CanonicalCmp(vals[idx[i]], vals[idx[j]]) < 0 })
	if spec.N >= uint64(len(idx)) {
		return &AggregateResult{}, nil
	}
	i := idx[spec.N]
	return &AggregateResult{Row: kept[i], HasRow: true, Value: vals[i], HasValue: true}, nil
}

func reduceMedian(b *EntityBinding, rows [][]byte, spec AggregateSpec) (*AggregateResult, error) {
	vals, kept, err := projectField(b, rows, spec.Field)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return &AggregateResult{}, nil
	}
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return value.CanonicalCmp(vals[idx[i]], vals[idx[j]]) < 0 })
	mid := idx[len(idx)/2]
	return &AggregateResult{Row: kept[mid], HasRow: true, Value: vals[mid], HasValue: true}, nil
}

func reduceCountDistinct(b *EntityBinding, rows [][]byte, spec AggregateSpec) (*AggregateResult, error) {
	vals, _, err := projectField(b, rows, spec.Field)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	for _, v := range vals {
		raw, err := value.EncodeComponent(v, value.CoercionStrict)
		if err != nil {
			return nil, err
		}
		seen[string(raw)] = struct{}{}
	}
	return &AggregateResult{Count: uint64(len(seen))}, nil
}

func reduceTopBottomK(b *EntityBinding, rows [][]byte, spec AggregateSpec) (*AggregateResult, error) {
	vals, kept, err := projectField(b, rows, spec.Field)
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	desc := spec.Kind == AggTopKBy
	sort.SliceStable(idx, func(i, j int) bool {
		cmp := value.CanonicalCmp(vals[idx[i]], vals[idx[j]])
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
	k := spec.K
	if k > uint64(len(idx)) {
		k = uint64(len(idx))
	}
	out := make([][]byte, 0, k)
	for i := uint64(0); i < k; i++ {
		out = append(out, kept[idx[i]])
	}
	return &AggregateResult{Rows: out}, nil
}

// GroupedResult is one group's key projection plus its terminal.
type GroupedResult struct {
	GroupKey []value.Value
	Result   AggregateResult
}

// GroupedAggregate runs lp (always materialized, spec §4.8: "grouped
// aggregate and mutations: empty [fast-path table] (always materialized)")
// and reduces each group_by bucket independently via spec, returning
// groups sorted by canonical group-key order (spec §4.10: "sorted by
// canonical group-key order").
func (e *Engine) GroupedAggregate(entityPath string, lp plan.LogicalPlan, groupBy []string, spec AggregateSpec) ([]GroupedResult, error) {
	b, err := e.binding(entityPath)
	if err != nil {
		return nil, err
	}
	if len(groupBy) == 0 {
		return nil, errs.New(errs.Validation, errs.Executor, "exec: GroupedAggregate requires at least one group_by field")
	}

	execSpan := e.metrics.StartSpan(metrics.ExecLoad, entityPath)

	ep, err := e.buildExecutablePlan(b, lp, "")
	if err != nil {
		return nil, err
	}
	_, rows, err := e.materializeOrderedRows(ep)
	if err != nil {
		return nil, err
	}

	groups := map[string][]byte{}
	groupRows := map[string][][]byte{}
	groupVals := map[string][]value.Value{}
	var order []string

	for _, row := range rows {
		keyVals := make([]value.Value, len(groupBy))
		var sig []byte
		ok := true
		for i, field := range groupBy {
			v, present, err := b.Codec.Field(row, field)
			if err != nil {
				return nil, err
			}
			if !present {
				ok = false
				break
			}
			raw, err := value.EncodeComponent(v, value.CoercionStrict)
			if err != nil {
				return nil, err
			}
			keyVals[i] = v
			sig = append(sig, raw...)
			sig = append(sig, 0)
		}
		if !ok {
			continue
		}
		sigStr := string(sig)
		if _, seen := groups[sigStr]; !seen {
			groups[sigStr] = sig
			groupVals[sigStr] = keyVals
			order = append(order, sigStr)
		}
		groupRows[sigStr] = append(groupRows[sigStr], row)
	}

	sort.Slice(order, func(i, j int) bool {
		a, b := groupVals[order[i]], groupVals[order[j]]
		for k := range a {
			if cmp := value.CanonicalCmp(a[k], b[k]); cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})

	out := make([]GroupedResult, 0, len(order))
	for _, sigStr := range order {
		res, err := reduceAggregate(b, groupRows[sigStr], spec)
		if err != nil {
			return nil, err
		}
		out = append(out, GroupedResult{GroupKey: groupVals[sigStr], Result: *res})
	}

	execSpan.End(metrics.ExecLoad, entityPath, len(rows))
	return out, nil
}
