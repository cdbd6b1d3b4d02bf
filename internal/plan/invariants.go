package plan

import (
	"icydb/internal/errs"
	"icydb/internal/schema"
	"icydb/internal/value"
)

// CheckAccessPlanInvariants re-validates the shape guarantees
// NormalizeAccessPlan is supposed to produce (spec §4.5, "checked in debug
// and on every plan emit"): FullScan never nested in a composite, children
// canonically sorted, ByKey/ByKeys/KeyRange target the PK only,
// IndexPrefix length bounds, IndexRange prefix-then-single-range shape
// with lower <= upper and no empty exclusive interval.
func CheckAccessPlanInvariants(model *schema.EntityModel, p AccessPlan) error {
	return checkNode(model, p, true)
}

func checkNode(model *schema.EntityModel, p AccessPlan, top bool) error {
	switch p.Kind {
	case CompositePath:
		return checkPath(model, p.Path)
	case CompositeUnion, CompositeIntersection:
		if len(p.Children) < 2 && !top {
			return errs.New(errs.InvariantViolation, errs.Query, "access plan: composite node must have at least two children after normalization")
		}
		for i, c := range p.Children {
			if c.Kind == CompositePath && c.Path.Kind == AccessFullScan {
				return errs.New(errs.InvariantViolation, errs.Query, "access plan: FullScan must never appear inside a composite")
			}
			if err := checkNode(model, c, false); err != nil {
				return err
			}
			if i > 0 && !lessAccessPlan(p.Children[i-1], c) {
				return errs.New(errs.InvariantViolation, errs.Query, "access plan: composite children are not canonically sorted")
			}
		}
		return nil
	default:
		return errs.Newf(errs.InvariantViolation, errs.Query, "access plan: unknown composite kind %d", p.Kind)
	}
}

func checkPath(model *schema.EntityModel, path AccessPath) error {
	switch path.Kind {
	case AccessByKey, AccessByKeys:
		return nil // PK-typed by construction; planner never emits these for a non-PK field.
	case AccessKeyRange:
		return checkRangeOrder(path.Start, path.End)
	case AccessIndexPrefix:
		idx := model.FindIndex(path.IndexName)
		if idx == nil {
			return errs.Newf(errs.InvariantViolation, errs.Index, "access plan: index %q not declared on entity %q", path.IndexName, model.Path)
		}
		if len(path.PrefixVals) < 1 || len(path.PrefixVals) > len(idx.Fields) {
			return errs.Newf(errs.InvariantViolation, errs.Index, "access plan: IndexPrefix length %d out of bounds [1,%d] for index %q", len(path.PrefixVals), len(idx.Fields), path.IndexName)
		}
		return nil
	case AccessIndexRange:
		idx := model.FindIndex(path.IndexName)
		if idx == nil {
			return errs.Newf(errs.InvariantViolation, errs.Index, "access plan: index %q not declared on entity %q", path.IndexName, model.Path)
		}
		if len(path.PrefixVals) >= len(idx.Fields) {
			return errs.Newf(errs.InvariantViolation, errs.Index, "access plan: IndexRange prefix leaves no room for a range field on index %q", path.IndexName)
		}
		if idx.Fields[len(path.PrefixVals)] != path.RangeField {
			return errs.Newf(errs.InvariantViolation, errs.Index, "access plan: IndexRange range field %q is not the field following the equality prefix on index %q", path.RangeField, path.IndexName)
		}
		return checkRangeOrder(path.RangeLower, path.RangeUpper)
	case AccessFullScan:
		return nil
	default:
		return errs.Newf(errs.InvariantViolation, errs.Query, "access plan: unknown access kind %d", path.Kind)
	}
}

func checkRangeOrder(lower, upper RangeBound) error {
	if lower.Unbounded || upper.Unbounded {
		return nil
	}
	c := value.CanonicalCmp(lower.Value, upper.Value)
	if c > 0 {
		return errs.New(errs.InvariantViolation, errs.Query, "access plan: range lower bound is greater than upper bound")
	}
	if c == 0 && !(lower.Included && upper.Included) {
		return errs.New(errs.InvariantViolation, errs.Query, "access plan: range bounds form an empty exclusive interval")
	}
	return nil
}
