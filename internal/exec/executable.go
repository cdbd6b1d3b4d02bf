package exec

import (
	"icydb/internal/cursor"
	"icydb/internal/errs"
	"icydb/internal/key"
	"icydb/internal/plan"
	"icydb/internal/route"
)

func notFoundBindingErr(indexName string) error {
	return errs.Newf(errs.InvariantViolation, errs.Executor, "exec: no binding for index %q", indexName)
}

// ExecutablePlan binds a validated LogicalPlan to one entity, precomputing
// the continuation signature and (for IndexRange access) the raw bounds
// cursor validation anchors against (spec §4.7, §4.11).
type ExecutablePlan struct {
	Binding   *EntityBinding
	Logical   plan.LogicalPlan
	Signature [32]byte
	Direction plan.OrderDirection

	// IndexRange-only: the binding's IndexID and the raw envelope the
	// access path resolves to, used by cursor.ValidatePlannedCursor.
	IndexID  key.IndexID
	RawLower []byte
	RawUpper []byte
}

func planDirection(order []plan.OrderField) plan.OrderDirection {
	if len(order) == 0 {
		return plan.Ascending
	}
	return order[0].Direction
}

// buildExecutablePlan binds a LogicalPlan to b, computing its continuation
// signature and (for IndexRange access) the raw bound envelope a cursor's
// index_range_anchor must fall within.
func (e *Engine) buildExecutablePlan(b *EntityBinding, lp plan.LogicalPlan, projection string) (*ExecutablePlan, error) {
	dir := planDirection(lp.Order)
	sig := cursor.Signature(cursor.SignatureInput{
		EntityPath: b.Model.Path,
		Mode:       lp.Mode,
		Access:     lp.Access,
		Predicate:  lp.Predicate,
		Order:      lp.Order,
		Distinct:   lp.Distinct,
		Projection: projection,
	})

	ep := &ExecutablePlan{Binding: b, Logical: lp, Signature: sig, Direction: dir}

	if lp.Access.Kind == plan.CompositePath && lp.Access.Path.Kind == plan.AccessIndexRange {
		ib, ok := b.indexBinding(lp.Access.Path.IndexName)
		if !ok {
			return nil, notFoundBindingErr(lp.Access.Path.IndexName)
		}
		prefix, err := encodeComponents(lp.Access.Path.PrefixVals)
		if err != nil {
			return nil, err
		}
		lowerComp, err := rangeBoundToKeyBound(lp.Access.Path.RangeLower)
		if err != nil {
			return nil, err
		}
		upperComp, err := rangeBoundToKeyBound(lp.Access.Path.RangeUpper)
		if err != nil {
			return nil, err
		}
		lower, upper := key.RawBoundsForIndexComponentRange(key.KindUser, ib.ID, prefix, lowerComp, upperComp)
		ep.IndexID = ib.ID
		ep.RawLower = lower
		ep.RawUpper = upper
	}

	return ep, nil
}

func (ep *ExecutablePlan) cursorView() cursor.ExecutablePlanView {
	return cursor.ExecutablePlanView{
		Signature: ep.Signature,
		Direction: ep.Direction,
		Order:     ep.Logical.Order,
		Access:    ep.Logical.Access,
		RawLower:  ep.RawLower,
		RawUpper:  ep.RawUpper,
		IndexID:   ep.IndexID,
	}
}

func (ep *ExecutablePlan) routeDirection() route.Direction {
	if ep.Direction == plan.Descending {
		return route.DirectionDesc
	}
	return route.DirectionAsc
}

// buildRoutePlan derives the RouteCapabilities snapshot and the resulting
// ExecutionRoutePlan for one Load (spec §4.8). continuation reflects
// whether this call resumes from a prior cursor.
func (ep *ExecutablePlan) buildRoutePlan(continuation route.ContinuationMode) route.ExecutionRoutePlan {
	caps := route.DeriveCapabilities(ep.Logical.Access, ep.routeDirection(), route.IntentLoad, route.AggregateCount, false)

	window := route.WindowPlan{}
	if ep.Logical.Page != nil {
		window.EffectiveOffset = ep.Logical.Page.Offset
		window.Limit = ep.Logical.Page.Limit
		if ep.Logical.Page.Limit != nil {
			window.KeepCount = *ep.Logical.Page.Limit
			window.FetchCount = window.KeepCount + 1
		}
	}

	indexRangeEligible := ep.Logical.Access.Kind == plan.CompositePath && ep.Logical.Access.Path.Kind == plan.AccessIndexRange

	return route.PlanRoute(caps, route.CaseLoad, ep.routeDirection(), continuation, window, indexRangeEligible)
}
