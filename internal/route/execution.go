package route

// ContinuationMode tags how a route resumes traversal.
type ContinuationMode byte

const (
	ContinuationInitial ContinuationMode = iota
	ContinuationCursorBoundary
	ContinuationIndexRangeAnchor
)

// ExecutionMode tags whether the executor streams or materializes.
type ExecutionMode byte

const (
	ExecutionStreaming ExecutionMode = iota
	ExecutionMaterialized
)

// ExecutionModeRouteCase tags the route's purpose, gating which fast-path
// precedence table applies.
type ExecutionModeRouteCase byte

const (
	CaseLoad ExecutionModeRouteCase = iota
	CaseAggregateCount
	CaseAggregateNonCount
	CaseAggregateGrouped
)

// FastPathKind tags one entry in a fast-path precedence table (spec §4.8).
type FastPathKind byte

const (
	FastPathPrimaryKey FastPathKind = iota
	FastPathSecondaryPrefix
	FastPathPrimaryScan
	FastPathIndexRange
	FastPathComposite
)

// loadPrecedence and aggregatePrecedence are the stability-boundary
// fast-path precedence tables (spec §4.8): callers iterate in this order
// and take the first eligible entry.
var loadPrecedence = []FastPathKind{FastPathPrimaryKey, FastPathSecondaryPrefix, FastPathIndexRange}
var aggregatePrecedence = []FastPathKind{FastPathPrimaryKey, FastPathSecondaryPrefix, FastPathPrimaryScan, FastPathIndexRange, FastPathComposite}

// FastPathOrder returns the precedence table for a route case. Grouped
// aggregates and mutations always return an empty table (always
// materialized, per spec §4.8).
func FastPathOrder(routeCase ExecutionModeRouteCase) []FastPathKind {
	switch routeCase {
	case CaseLoad:
		return loadPrecedence
	case CaseAggregateCount, CaseAggregateNonCount:
		return aggregatePrecedence
	default:
		return nil
	}
}

// WindowPlan is the resolved pagination window for one route (spec §4.8).
type WindowPlan struct {
	EffectiveOffset uint64
	Limit           *uint64
	KeepCount       uint64
	FetchCount      uint64
}

// IndexRangeLimitSpec carries a pushed-down limit for an IndexRange access
// path, when route capabilities permit it.
type IndexRangeLimitSpec struct {
	Limit uint64
}

// ExecutionRoutePlan is the output of route planning (spec §4.8).
type ExecutionRoutePlan struct {
	Direction          Direction
	Continuation       ContinuationMode
	Window             WindowPlan
	Mode               ExecutionMode
	RouteCase          ExecutionModeRouteCase
	IndexRangeLimit    *IndexRangeLimitSpec
	FastPath           []FastPathKind
	BoundedProbeHint   bool
}

// PlanRoute derives an ExecutionRoutePlan from capabilities and intent
// (spec §4.8). Grouped aggregates and non-streaming-safe access shapes get
// a Materialized execution mode; the window is carried through without
// affecting the mode (Load itself forces Materialized for a nonzero offset).
func PlanRoute(caps Capabilities, routeCase ExecutionModeRouteCase, direction Direction, continuation ContinuationMode, window WindowPlan, indexRangeEligible bool) ExecutionRoutePlan {
	mode := ExecutionStreaming
	if routeCase == CaseAggregateGrouped || !caps.StreamingAccessShapeSafe {
		mode = ExecutionMaterialized
	}

	var limitSpec *IndexRangeLimitSpec
	if indexRangeEligible && caps.IndexRangeLimitPushdownEligible && window.Limit != nil {
		limitSpec = &IndexRangeLimitSpec{Limit: *window.Limit}
	}

	return ExecutionRoutePlan{
		Direction:        direction,
		Continuation:     continuation,
		Window:           window,
		Mode:             mode,
		RouteCase:        routeCase,
		IndexRangeLimit:  limitSpec,
		FastPath:         FastPathOrder(routeCase),
		BoundedProbeHint: caps.BoundedProbeHintSafe,
	}
}
