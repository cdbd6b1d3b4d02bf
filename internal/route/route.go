// Package route derives route capabilities and an execution route plan
// from a bound plan shape (spec §4.8).
package route

import (
	"icydb/internal/plan"
)

// RejectionReason explains why a field-extrema fast path is unavailable.
type RejectionReason byte

const (
	RejectionNone RejectionReason = iota
	SpecMissing
	AggregateKindMismatch
	UnsupportedFieldType
	DescReverseTraversalNotSupported
)

// Capabilities is the snapshot derived once per plan (spec §4.8).
type Capabilities struct {
	StreamingAccessShapeSafe          bool
	PKOrderFastPathEligible           bool
	DescPhysicalReverseSupported      bool
	CountPushdownAccessShapeSupported bool
	IndexRangeLimitPushdownEligible   bool
	CompositeAggregateFastPathEligible bool
	BoundedProbeHintSafe              bool
	FieldExtremaEligible              bool
	FieldExtremaRejection             RejectionReason
}

// Intent tags what the route is being derived for.
type Intent byte

const (
	IntentLoad Intent = iota
	IntentAggregate
	IntentAggregateGrouped
)

// AggregateKind tags the terminal aggregate operation, when Intent is
// IntentAggregate.
type AggregateKind byte

const (
	AggregateCount AggregateKind = iota
	AggregateExists
	AggregateExtremaField // min/max/nth/median/top_k/bottom_k style over one field
	AggregateFirstLast
	AggregateCountDistinct
)

// Direction is the physical traversal direction of the assembled stream.
type Direction byte

const (
	DirectionAsc Direction = iota
	DirectionDesc
)

// accessShape is classifyAccess's verdict on the top-level AccessPlan
// shape: primary-key-only, secondary-prefix, primary-scan, index-range, or a
// general composite (spec §4.8's "plan shape" input).
type accessShape byte

const (
	shapePrimaryKey accessShape = iota
	shapeSecondaryPrefix
	shapePrimaryScan
	shapeIndexRange
	shapeComposite
)

func classifyAccess(a plan.AccessPlan) accessShape {
	if a.Kind != plan.CompositePath {
		return shapeComposite
	}
	switch a.Path.Kind {
	case plan.AccessByKey, plan.AccessByKeys, plan.AccessKeyRange:
		return shapePrimaryKey
	case plan.AccessIndexPrefix:
		return shapeSecondaryPrefix
	case plan.AccessIndexRange:
		return shapeIndexRange
	case plan.AccessFullScan:
		return shapePrimaryScan
	default:
		return shapeComposite
	}
}

// DeriveCapabilities computes the RouteCapabilities snapshot from a plan's
// access shape, direction, and (for Aggregate intents) the aggregate kind
// and whether it targets an orderable field type.
func DeriveCapabilities(access plan.AccessPlan, direction Direction, intent Intent, aggKind AggregateKind, fieldOrderable bool) Capabilities {
	shape := classifyAccess(access)

	c := Capabilities{
		StreamingAccessShapeSafe:          shape != shapeComposite || isSafeComposite(access),
		PKOrderFastPathEligible:           shape == shapePrimaryKey,
		DescPhysicalReverseSupported:      shape == shapePrimaryKey || shape == shapeSecondaryPrefix || shape == shapeIndexRange,
		CountPushdownAccessShapeSupported: shape != shapeComposite,
		IndexRangeLimitPushdownEligible:   shape == shapeIndexRange,
		CompositeAggregateFastPathEligible: shape == shapeComposite && isSafeComposite(access),
		BoundedProbeHintSafe:              shape == shapePrimaryKey || shape == shapeSecondaryPrefix,
	}

	if intent == IntentAggregate && aggKind == AggregateExtremaField {
		switch {
		case direction == DirectionDesc && shape == shapePrimaryScan:
			c.FieldExtremaRejection = DescReverseTraversalNotSupported
		case !fieldOrderable:
			c.FieldExtremaRejection = UnsupportedFieldType
		default:
			c.FieldExtremaEligible = true
		}
	} else if intent == IntentAggregate && aggKind != AggregateExtremaField {
		c.FieldExtremaRejection = AggregateKindMismatch
	} else {
		c.FieldExtremaRejection = SpecMissing
	}

	return c
}

// isSafeComposite reports whether an access plan has no FullScan leaf at
// any depth: a Path is safe unless it is FullScan, and a Union or
// Intersection is safe when every child, nested composites included, is
// safe (spec §4.8's composite_aggregate_fast_path_eligible).
func isSafeComposite(a plan.AccessPlan) bool {
	if a.Kind == plan.CompositePath {
		return a.Path.Kind != plan.AccessFullScan
	}
	for _, c := range a.Children {
		if !isSafeComposite(c) {
			return false
		}
	}
	return true
}
