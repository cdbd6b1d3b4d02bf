package plan

import (
	"sort"

	"icydb/internal/predicate"
	"icydb/internal/schema"
	"icydb/internal/value"
)

// PlanAccess derives an AccessPlan from a normalized predicate against an
// entity model, following the planner algorithm (spec §4.5 steps 1-7).
// The predicate MUST already be predicate.Normalize-d; PlanAccess does not
// re-normalize.
func PlanAccess(model *schema.EntityModel, pred predicate.Predicate) AccessPlan {
	return NormalizeAccessPlan(planNode(model, pred))
}

func planNode(model *schema.EntityModel, pred predicate.Predicate) AccessPlan {
	switch pred.Kind {
	case predicate.KindTrue:
		return Path(FullScan())
	case predicate.KindAnd:
		return planAnd(model, pred)
	case predicate.KindOr:
		children := make([]AccessPlan, 0, len(pred.Children))
		for _, c := range pred.Children {
			children = append(children, planNode(model, c))
		}
		return Union(children...)
	case predicate.KindCompare:
		if p, ok := planSingleCompare(model, pred); ok {
			return p
		}
		return Path(FullScan())
	default:
		// False, Not, IsNull/Missing/Empty, TextContains*: step 5 degrade.
		return Path(FullScan())
	}
}

// planSingleCompare implements steps 2-3: a lone Compare against the PK or
// against the leading field of some index.
func planSingleCompare(model *schema.EntityModel, p predicate.Predicate) (AccessPlan, bool) {
	if p.Field == model.PrimaryKey && p.Coercion == value.CoercionStrict {
		switch p.Op {
		case predicate.Eq:
			return Path(ByKey(p.Literals[0])), true
		case predicate.In:
			return Path(ByKeys(p.Literals)), true
		case predicate.Lt:
			return Path(KeyRange(Unbounded(), Exclusive(p.Literals[0]))), true
		case predicate.Lte:
			return Path(KeyRange(Unbounded(), Inclusive(p.Literals[0]))), true
		case predicate.Gt:
			return Path(KeyRange(Exclusive(p.Literals[0]), Unbounded())), true
		case predicate.Gte:
			return Path(KeyRange(Inclusive(p.Literals[0]), Unbounded())), true
		}
		return AccessPlan{}, false
	}

	if (p.Op == predicate.Eq || p.Op == predicate.In) && p.Coercion == value.CoercionStrict {
		var matches []schema.IndexModel
		for _, idx := range model.Indexes {
			if len(idx.Fields) > 0 && idx.Fields[0] == p.Field {
				matches = append(matches, idx)
			}
		}
		if len(matches) == 0 {
			return AccessPlan{}, false
		}
		sort.Slice(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })
		paths := make([]AccessPlan, 0, len(matches))
		for _, idx := range matches {
			if p.Op == predicate.Eq {
				paths = append(paths, Path(IndexPrefix(idx.Name, []value.Value{p.Literals[0]})))
			} else {
				for _, lit := range p.Literals {
					paths = append(paths, Path(IndexPrefix(idx.Name, []value.Value{lit})))
				}
			}
		}
		if len(paths) == 1 {
			return paths[0], true
		}
		return Union(paths...), true
	}

	return AccessPlan{}, false
}

// planAnd implements step 4: finding the best index whose field list is a
// prefix of the conjunction's strict equalities, optionally followed by a
// single strict range on the next field.
func planAnd(model *schema.EntityModel, pred predicate.Predicate) AccessPlan {
	equalities := map[string]value.Value{}
	ranges := map[string]predicate.Predicate{}
	var rest []predicate.Predicate

	for _, c := range pred.Children {
		if c.Kind == predicate.KindCompare && c.Coercion == value.CoercionStrict && c.Op == predicate.Eq && len(c.Literals) == 1 {
			equalities[c.Field] = c.Literals[0]
			continue
		}
		if c.Kind == predicate.KindCompare && c.Coercion == value.CoercionStrict &&
			(c.Op == predicate.Lt || c.Op == predicate.Lte || c.Op == predicate.Gt || c.Op == predicate.Gte) {
			ranges[c.Field] = c
			continue
		}
		rest = append(rest, c)
	}

	best, ok := bestIndexFor(model, equalities, ranges)
	var accessChildren []AccessPlan
	if ok {
		accessChildren = append(accessChildren, best)
		consumed := indexFieldsConsumed(model, best)
		for f := range equalities {
			if !consumed[f] {
				rest = append(rest, predicate.Compare(f, predicate.Eq, value.CoercionStrict, equalities[f]))
			}
		}
		for f, r := range ranges {
			if !consumed[f] {
				rest = append(rest, r)
			}
		}
	} else {
		for f, v := range equalities {
			rest = append(rest, predicate.Compare(f, predicate.Eq, value.CoercionStrict, v))
		}
		for _, r := range ranges {
			rest = append(rest, r)
		}
	}

	for _, c := range rest {
		accessChildren = append(accessChildren, planNode(model, c))
	}
	if len(accessChildren) == 0 {
		return Path(FullScan())
	}
	return Intersection(accessChildren...)
}

// bestIndexFor finds the index whose declared field prefix is best
// satisfied by the available strict equalities, optionally extended by one
// strict range on the field immediately following the equality prefix.
// "Better" prefers longer prefix, then exact full-index match, then
// lexicographic index name (spec §4.5 step 4).
func bestIndexFor(model *schema.EntityModel, equalities map[string]value.Value, ranges map[string]predicate.Predicate) (AccessPlan, bool) {
	type candidate struct {
		idx        schema.IndexModel
		prefixLen  int
		exactMatch bool
		withRange  *predicate.Predicate
	}
	var best *candidate

	for _, idx := range model.Indexes {
		prefixLen := 0
		for _, f := range idx.Fields {
			if _, ok := equalities[f]; !ok {
				break
			}
			prefixLen++
		}
		if prefixLen == 0 {
			continue
		}

		var withRange *predicate.Predicate
		if prefixLen < len(idx.Fields) {
			if r, ok := ranges[idx.Fields[prefixLen]]; ok {
				rr := r
				withRange = &rr
			}
		}

		cand := candidate{idx: idx, prefixLen: prefixLen, exactMatch: prefixLen == len(idx.Fields), withRange: withRange}
		if best == nil || better(cand, *best) {
			best = &cand
		}
	}

	if best == nil {
		return AccessPlan{}, false
	}

	prefixVals := make([]value.Value, best.prefixLen)
	for i, f := range best.idx.Fields[:best.prefixLen] {
		prefixVals[i] = equalities[f]
	}

	if best.withRange != nil {
		field := best.idx.Fields[best.prefixLen]
		lower, upper := rangeBoundsFromCompare(*best.withRange)
		return Path(IndexRange(best.idx.Name, prefixVals, field, lower, upper)), true
	}
	return Path(IndexPrefix(best.idx.Name, prefixVals)), true
}

func better(a, b struct {
	idx        schema.IndexModel
	prefixLen  int
	exactMatch bool
	withRange  *predicate.Predicate
}) bool {
	if a.prefixLen != b.prefixLen {
		return a.prefixLen > b.prefixLen
	}
	if a.exactMatch != b.exactMatch {
		return a.exactMatch
	}
	return a.idx.Name < b.idx.Name
}

func rangeBoundsFromCompare(p predicate.Predicate) (lower, upper RangeBound) {
	lower, upper = Unbounded(), Unbounded()
	v := p.Literals[0]
	switch p.Op {
	case predicate.Gt:
		lower = Exclusive(v)
	case predicate.Gte:
		lower = Inclusive(v)
	case predicate.Lt:
		upper = Exclusive(v)
	case predicate.Lte:
		upper = Inclusive(v)
	}
	return lower, upper
}

func indexFieldsConsumed(model *schema.EntityModel, plan AccessPlan) map[string]bool {
	out := map[string]bool{}
	if plan.Kind != CompositePath {
		return out
	}
	switch plan.Path.Kind {
	case AccessIndexPrefix:
		idx := model.FindIndex(plan.Path.IndexName)
		for _, f := range idx.Fields[:len(plan.Path.PrefixVals)] {
			out[f] = true
		}
	case AccessIndexRange:
		idx := model.FindIndex(plan.Path.IndexName)
		for _, f := range idx.Fields[:len(plan.Path.PrefixVals)] {
			out[f] = true
		}
		out[plan.Path.RangeField] = true
	}
	return out
}
