package predicate

import (
	"sort"

	"icydb/internal/value"
)

// Normalize recursively normalizes a predicate tree to the canonical shape
// the planner assumes (spec §4.4): Not(Not(x)) collapses to x; And/Or
// children are normalized, flattened one level, sorted into canonical
// order, and deduplicated; an empty And becomes True, an empty Or becomes
// False; a singleton And/Or unwraps to its sole child. Normalize is
// idempotent: Normalize(Normalize(p)) == Normalize(p).
func Normalize(p Predicate) Predicate {
	switch p.Kind {
	case KindAnd:
		return normalizeConjunction(p.Children, KindAnd, True())
	case KindOr:
		return normalizeConjunction(p.Children, KindOr, False())
	case KindNot:
		child := Normalize(*p.Child)
		if child.Kind == KindNot {
			return *child.Child
		}
		return Predicate{Kind: KindNot, Child: &child}
	default:
		return p
	}
}

func normalizeConjunction(children []Predicate, kind Kind, identity Predicate) Predicate {
	var flat []Predicate
	for _, c := range children {
		nc := Normalize(c)
		if nc.Kind == kind {
			flat = append(flat, nc.Children...)
		} else {
			flat = append(flat, nc)
		}
	}

	flat = dedupe(flat)
	if len(flat) == 0 {
		return identity
	}
	if len(flat) == 1 {
		return flat[0]
	}

	sort.Slice(flat, func(i, j int) bool { return lessPredicate(flat[i], flat[j]) })
	return Predicate{Kind: kind, Children: flat}
}

func dedupe(preds []Predicate) []Predicate {
	sort.Slice(preds, func(i, j int) bool { return lessPredicate(preds[i], preds[j]) })
	out := preds[:0:0]
	for i, p := range preds {
		if i > 0 && equalPredicate(preds[i-1], p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// lessPredicate is the canonical sort order over normalized predicates:
// by Kind, then Field, then Op, then Coercion, then literal values in
// order via value.CanonicalCmp, then children recursively.
func lessPredicate(a, b Predicate) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if a.Field != b.Field {
		return a.Field < b.Field
	}
	if a.Op != b.Op {
		return a.Op < b.Op
	}
	if a.Coercion != b.Coercion {
		return a.Coercion < b.Coercion
	}
	if c := compareLiterals(a.Literals, b.Literals); c != 0 {
		return c < 0
	}
	if len(a.Children) != len(b.Children) {
		return len(a.Children) < len(b.Children)
	}
	for i := range a.Children {
		if lessPredicate(a.Children[i], b.Children[i]) {
			return true
		}
		if lessPredicate(b.Children[i], a.Children[i]) {
			return false
		}
	}
	if a.Child != nil && b.Child != nil {
		return lessPredicate(*a.Child, *b.Child)
	}
	return false
}

func compareLiterals(a, b []value.Value) int {
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

func equalPredicate(a, b Predicate) bool {
	return !lessPredicate(a, b) && !lessPredicate(b, a)
}
