package plan

import (
	"sort"

	"icydb/internal/value"
)

// NormalizeAccessPlan canonicalizes an AccessPlan (spec §4.5): flattens
// nested Union/Intersection, absorbs FullScan (Union collapses entirely to
// FullScan; Intersection drops it), unwraps singleton composites, sorts
// children into a total order, deduplicates, and collapses an empty
// composite to FullScan.
func NormalizeAccessPlan(p AccessPlan) AccessPlan {
	switch p.Kind {
	case CompositePath:
		return p
	case CompositeUnion:
		return normalizeComposite(p.Children, CompositeUnion)
	case CompositeIntersection:
		return normalizeComposite(p.Children, CompositeIntersection)
	default:
		return p
	}
}

func normalizeComposite(children []AccessPlan, kind CompositeKind) AccessPlan {
	var flat []AccessPlan
	for _, c := range children {
		nc := NormalizeAccessPlan(c)
		if nc.Kind == kind {
			flat = append(flat, nc.Children...)
			continue
		}
		if nc.Kind == CompositePath && nc.Path.Kind == AccessFullScan {
			if kind == CompositeUnion {
				return Path(FullScan())
			}
			continue // Intersection drops FullScan
		}
		flat = append(flat, nc)
	}

	flat = dedupeAccessPlans(flat)
	if len(flat) == 0 {
		return Path(FullScan())
	}
	if len(flat) == 1 {
		return flat[0]
	}

	sort.Slice(flat, func(i, j int) bool { return lessAccessPlan(flat[i], flat[j]) })
	return AccessPlan{Kind: kind, Children: flat}
}

func dedupeAccessPlans(plans []AccessPlan) []AccessPlan {
	sort.Slice(plans, func(i, j int) bool { return lessAccessPlan(plans[i], plans[j]) })
	out := plans[:0:0]
	for i, p := range plans {
		if i > 0 && equalAccessPlan(plans[i-1], p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// accessTier orders AccessKind into the total order spec §4.5 names:
// primary key < index < full scan.
func accessTier(k AccessKind) int {
	switch k {
	case AccessByKey, AccessByKeys, AccessKeyRange:
		return 0
	case AccessIndexPrefix, AccessIndexRange:
		return 1
	default:
		return 2
	}
}

func lessAccessPlan(a, b AccessPlan) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if a.Kind != CompositePath {
		if len(a.Children) != len(b.Children) {
			return len(a.Children) < len(b.Children)
		}
		for i := range a.Children {
			if lessAccessPlan(a.Children[i], b.Children[i]) {
				return true
			}
			if lessAccessPlan(b.Children[i], a.Children[i]) {
				return false
			}
		}
		return false
	}
	return lessAccessPath(a.Path, b.Path)
}

func lessAccessPath(a, b AccessPath) bool {
	ta, tb := accessTier(a.Kind), accessTier(b.Kind)
	if ta != tb {
		return ta < tb
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if a.IndexName != b.IndexName {
		return a.IndexName < b.IndexName
	}
	if c := compareValueSlices(a.PrefixVals, b.PrefixVals); c != 0 {
		return c < 0
	}
	if c := value.CanonicalCmp(a.Key, b.Key); a.Kind == AccessByKey && c != 0 {
		return c < 0
	}
	if c := compareValueSlices(a.Keys, b.Keys); c != 0 {
		return c < 0
	}
	if a.RangeField != b.RangeField {
		return a.RangeField < b.RangeField
	}
	bounds := [][2]RangeBound{{a.Start, b.Start}, {a.End, b.End}, {a.RangeLower, b.RangeLower}, {a.RangeUpper, b.RangeUpper}}
	for _, p := range bounds {
		if p[0].Unbounded != p[1].Unbounded {
			return p[0].Unbounded
		}
		if c := value.CanonicalCmp(p[0].Value, p[1].Value); c != 0 {
			return c < 0
		}
		if p[0].Included != p[1].Included {
			return p[0].Included
		}
	}
	return false
}

func compareValueSlices(a, b []value.Value) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := value.CanonicalCmp(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

func equalAccessPlan(a, b AccessPlan) bool {
	return !lessAccessPlan(a, b) && !lessAccessPlan(b, a)
}
