package exec

import (
	"bytes"
	"sort"

	"go.uber.org/zap"

	"icydb/internal/cursor"
	"icydb/internal/errs"
	"icydb/internal/metrics"
	"icydb/internal/plan"
	"icydb/internal/predicate"
	"icydb/internal/route"
	"icydb/internal/stream"
	"icydb/internal/value"
)

// LoadResult is the materialized outcome of one Load call.
type LoadResult struct {
	Keys         [][]byte
	Rows         [][]byte
	Continuation *cursor.ContinuationToken
	HasMore      bool
}

// Load runs a planned LogicalPlan against entityPath, resuming from tok
// when non-nil (spec §4.10 Load).
func (e *Engine) Load(entityPath string, lp plan.LogicalPlan, tok *cursor.ContinuationToken) (*LoadResult, error) {
	b, err := e.binding(entityPath)
	if err != nil {
		return nil, err
	}

	span := e.metrics.StartSpan(metrics.ExecLoad, entityPath)

	ep, err := e.buildExecutablePlan(b, lp, "")
	if err != nil {
		return nil, err
	}

	continuation := route.ContinuationInitial
	if tok != nil {
		if err := cursor.ValidatePlannedCursor(b.Model, *tok, ep.cursorView()); err != nil {
			return nil, err
		}
		if tok.IndexRangeAnchor != nil {
			continuation = route.ContinuationIndexRangeAnchor
		} else {
			continuation = route.ContinuationCursorBoundary
		}
	}

	routePlan := ep.buildRoutePlan(continuation)

	// A nonzero offset has no defined streaming-budget semantics (the
	// fetch_count probe only distinguishes overflow past a limit); force
	// materialized mode so offset slicing stays well-defined.
	if lp.Page != nil && lp.Page.Offset > 0 {
		routePlan.Mode = route.ExecutionMaterialized
	}

	e.log.Debug("route decision",
		zap.String("entity", entityPath),
		zap.Bool("materialized", routePlan.Mode == route.ExecutionMaterialized),
		zap.Int("continuation_mode", int(routePlan.Continuation)),
	)

	var result *LoadResult
	if routePlan.Mode == route.ExecutionMaterialized {
		result, err = e.loadMaterialized(ep, routePlan, tok)
	} else {
		result, err = e.loadStreaming(ep, routePlan, tok)
	}
	if err != nil {
		return nil, err
	}

	span.End(metrics.ExecLoad, entityPath, len(result.Rows))
	return result, nil
}

// fetchRow resolves one data key to its row, honoring Strict/MissingOk
// read consistency (spec §4.10: "Strict surfaces NotFound when any
// resolved key has no row; MissingOk silently skips").
func (e *Engine) fetchRow(b *EntityBinding, rawKey []byte, consistency plan.Consistency) ([]byte, bool, error) {
	row, ok := e.registry.DataStore(b.DataStoreID).Map.Get(rawKey)
	if ok {
		return row, true, nil
	}
	if consistency == plan.ConsistencyStrict {
		return nil, false, errs.New(errs.NotFound, errs.Executor, "exec: resolved key has no row under Strict read consistency")
	}
	return nil, false, nil
}

func (e *Engine) loadMaterialized(ep *ExecutablePlan, rp route.ExecutionRoutePlan, tok *cursor.ContinuationToken) (*LoadResult, error) {
	b := ep.Binding
	s, err := e.buildStream(b, ep.Logical.Access, ep.Direction)
	if err != nil {
		return nil, err
	}

	var keys, rows [][]byte
	for {
		k, ok := s.Next()
		if !ok {
			break
		}
		row, present, err := e.fetchRow(b, k, ep.Logical.Consistency)
		if err != nil {
			return nil, err
		}
		if !present {
			continue
		}
		keep, err := evaluateResidual(b, row, ep.Logical.Predicate)
		if err != nil {
			return nil, err
		}
		if !keep {
			continue
		}
		keys = append(keys, k)
		rows = append(rows, row)
	}

	sortRowsByOrder(b, keys, rows, ep.Logical.Order)

	if ep.Logical.Distinct {
		keys, rows = distinctRows(keys, rows)
	}

	if tok != nil {
		keys, rows, err = skipPastBoundary(b, keys, rows, ep.Logical.Order, tok.Boundary)
		if err != nil {
			return nil, err
		}
	}

	offset := rp.Window.EffectiveOffset
	if offset > uint64(len(rows)) {
		offset = uint64(len(rows))
	}
	keys, rows = keys[offset:], rows[offset:]

	hasMore := false
	if rp.Window.Limit != nil && uint64(len(rows)) > *rp.Window.Limit {
		hasMore = true
		keys, rows = keys[:*rp.Window.Limit], rows[:*rp.Window.Limit]
	}

	cont, err := buildContinuation(ep, rows, hasMore)
	if err != nil {
		return nil, err
	}

	return &LoadResult{Keys: keys, Rows: rows, Continuation: cont, HasMore: hasMore}, nil
}

func (e *Engine) loadStreaming(ep *ExecutablePlan, rp route.ExecutionRoutePlan, tok *cursor.ContinuationToken) (*LoadResult, error) {
	b := ep.Binding
	s, err := e.buildStream(b, ep.Logical.Access, ep.Direction)
	if err != nil {
		return nil, err
	}

	var inner stream.OrderedKeyStream = s
	skipping := tok != nil
	fetchCount := rp.Window.FetchCount
	budgeted := fetchCount > 0

	var keys, rows [][]byte
	seen := map[string]struct{}{}
	for {
		if budgeted && uint64(len(rows)) >= fetchCount {
			break
		}
		k, ok := inner.Next()
		if !ok {
			break
		}
		row, present, err := e.fetchRow(b, k, ep.Logical.Consistency)
		if err != nil {
			return nil, err
		}
		if !present {
			continue
		}
		keep, err := evaluateResidual(b, row, ep.Logical.Predicate)
		if err != nil {
			return nil, err
		}
		if !keep {
			continue
		}

		if skipping {
			past, err := rowPastBoundary(b, row, ep.Logical.Order, tok.Boundary)
			if err != nil {
				return nil, err
			}
			if !past {
				continue
			}
			skipping = false
		}

		if ep.Logical.Distinct {
			sig := string(row)
			if _, dup := seen[sig]; dup {
				continue
			}
			seen[sig] = struct{}{}
		}

		keys = append(keys, k)
		rows = append(rows, row)
	}

	hasMore := false
	if rp.Window.Limit != nil && uint64(len(rows)) > *rp.Window.Limit {
		hasMore = true
		keys, rows = keys[:*rp.Window.Limit], rows[:*rp.Window.Limit]
	}

	cont, err := buildContinuation(ep, rows, hasMore)
	if err != nil {
		return nil, err
	}

	return &LoadResult{Keys: keys, Rows: rows, Continuation: cont, HasMore: hasMore}, nil
}

func evaluateResidual(b *EntityBinding, row []byte, pred predicate.Predicate) (bool, error) {
	if pred.Kind == predicate.KindTrue {
		return true, nil
	}
	lookup := func(field string) (value.Value, bool) {
		if b.Codec == nil {
			return value.Value{}, false
		}
		v, present, err := b.Codec.Field(row, field)
		if err != nil || !present {
			return value.Value{}, false
		}
		return v, true
	}
	return predicate.Evaluate(pred, lookup)
}

// sortRowsByOrder stable-sorts keys/rows in place per the canonical order
// spec (field..., PK tie-break), each field honoring its own direction
// (spec §4.10 step 3: "stable sort under (field..., PK tie-break)").
func sortRowsByOrder(b *EntityBinding, keys, rows [][]byte, order []plan.OrderField) {
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return compareRowsByOrder(b, rows[idx[i]], rows[idx[j]], order) < 0
	})
	sortedKeys := make([][]byte, len(keys))
	sortedRows := make([][]byte, len(rows))
	for i, j := range idx {
		sortedKeys[i] = keys[j]
		sortedRows[i] = rows[j]
	}
	copy(keys, sortedKeys)
	copy(rows, sortedRows)
}

func compareRowsByOrder(b *EntityBinding, a, c []byte, order []plan.OrderField) int {
	for _, o := range order {
		av, aok := fieldOf(b, a, o.Field)
		cv, cok := fieldOf(b, c, o.Field)
		cmp := compareOptionalComponents(av, aok, cv, cok)
		if o.Direction == plan.Descending {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp
		}
	}
	return 0
}

func fieldOf(b *EntityBinding, row []byte, field string) ([]byte, bool) {
	if b.Codec == nil {
		return nil, false
	}
	v, present, err := b.Codec.Field(row, field)
	if err != nil || !present {
		return nil, false
	}
	raw, err := value.EncodeComponent(v, value.CoercionStrict)
	if err != nil {
		return nil, false
	}
	return raw, true
}

func compareOptionalComponents(a []byte, aok bool, c []byte, cok bool) int {
	switch {
	case !aok && !cok:
		return 0
	case !aok:
		return -1
	case !cok:
		return 1
	default:
		return bytes.Compare(a, c)
	}
}

func distinctRows(keys, rows [][]byte) ([][]byte, [][]byte) {
	var outKeys, outRows [][]byte
	seen := map[string]struct{}{}
	for i, row := range rows {
		sig := string(row)
		if _, dup := seen[sig]; dup {
			continue
		}
		seen[sig] = struct{}{}
		outKeys = append(outKeys, keys[i])
		outRows = append(outRows, rows[i])
	}
	return outKeys, outRows
}

// skipPastBoundary drops every materialized row at or before the cursor
// boundary, in traversal order.
func skipPastBoundary(b *EntityBinding, keys, rows [][]byte, order []plan.OrderField, boundary cursor.CursorBoundary) ([][]byte, [][]byte, error) {
	start := 0
	for ; start < len(rows); start++ {
		past, err := rowPastBoundary(b, rows[start], order, boundary)
		if err != nil {
			return nil, nil, err
		}
		if past {
			break
		}
	}
	return keys[start:], rows[start:], nil
}

// rowPastBoundary reports whether row sorts strictly after the cursor
// boundary under order, honoring each field's declared direction, and
// treating a SlotMissing boundary component as always-tied (defer to the
// next field) rather than comparable.
func rowPastBoundary(b *EntityBinding, row []byte, order []plan.OrderField, boundary cursor.CursorBoundary) (bool, error) {
	if len(boundary.Slots) != len(order) {
		return false, errs.Newf(errs.InvariantViolation, errs.Executor, "exec: cursor boundary arity %d does not match order arity %d", len(boundary.Slots), len(order))
	}
	for i, o := range order {
		slot := boundary.Slots[i]
		if slot.Kind == cursor.SlotMissing {
			continue
		}
		rv, ok := fieldOf(b, row, o.Field)
		cmp := compareOptionalComponents(rv, ok, slot.Raw, true)
		if o.Direction == plan.Descending {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp > 0, nil
		}
	}
	return false, nil
}

// buildContinuation projects the last emitted row's order-field values
// into a fresh ContinuationToken when the page was cut short (spec §4.10
// step 3/4: "build a continuation boundary from the last emitted row's
// order-field projection").
func buildContinuation(ep *ExecutablePlan, rows [][]byte, hasMore bool) (*cursor.ContinuationToken, error) {
	if !hasMore || len(rows) == 0 {
		return nil, nil
	}
	last := rows[len(rows)-1]
	slots := make([]cursor.Slot, len(ep.Logical.Order))
	for i, o := range ep.Logical.Order {
		if ep.Binding.Codec == nil {
			slots[i] = cursor.MissingSlot()
			continue
		}
		v, present, err := ep.Binding.Codec.Field(last, o.Field)
		if err != nil {
			return nil, err
		}
		if !present {
			slots[i] = cursor.MissingSlot()
			continue
		}
		slot, err := cursor.PresentSlot(v)
		if err != nil {
			return nil, err
		}
		slots[i] = slot
	}

	return &cursor.ContinuationToken{
		Version:   1,
		Signature: ep.Signature,
		Boundary:  cursor.CursorBoundary{Slots: slots},
		Direction: ep.Direction,
	}, nil
}
