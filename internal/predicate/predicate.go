// Package predicate implements the query predicate AST, its
// normalization, and coercion-aware literal validation (spec §4.4).
package predicate

import (
	"icydb/internal/value"
)

// Op is a comparison operator usable inside a Compare predicate.
type Op byte

const (
	Eq Op = iota
	Ne
	Lt
	Lte
	Gt
	Gte
	In
	NotIn
	Contains
	StartsWith
	EndsWith
)

func (o Op) String() string {
	switch o {
	case Eq:
		return "Eq"
	case Ne:
		return "Ne"
	case Lt:
		return "Lt"
	case Lte:
		return "Lte"
	case Gt:
		return "Gt"
	case Gte:
		return "Gte"
	case In:
		return "In"
	case NotIn:
		return "NotIn"
	case Contains:
		return "Contains"
	case StartsWith:
		return "StartsWith"
	case EndsWith:
		return "EndsWith"
	default:
		return "Unknown"
	}
}

// Kind tags the Predicate variant (spec §4.4).
type Kind byte

const (
	KindTrue Kind = iota
	KindFalse
	KindAnd
	KindOr
	KindNot
	KindCompare
	KindIsNull
	KindIsMissing
	KindIsEmpty
	KindIsNotEmpty
	KindTextContains
	KindTextContainsCi
)

// Predicate is the closed predicate AST. Exactly the fields relevant to
// Kind are populated; callers switch on Kind.
type Predicate struct {
	Kind Kind

	// And/Or
	Children []Predicate
	// Not
	Child *Predicate

	// Compare, IsNull, IsMissing, IsEmpty, IsNotEmpty, TextContains[Ci]
	Field    string
	Op       Op
	Literals []value.Value // one element except In/NotIn
	Coercion value.CoercionID
}

func True() Predicate  { return Predicate{Kind: KindTrue} }
func False() Predicate { return Predicate{Kind: KindFalse} }

func And(children ...Predicate) Predicate { return Predicate{Kind: KindAnd, Children: children} }
func Or(children ...Predicate) Predicate  { return Predicate{Kind: KindOr, Children: children} }
func Not(p Predicate) Predicate           { return Predicate{Kind: KindNot, Child: &p} }

func Compare(field string, op Op, coercion value.CoercionID, literal value.Value) Predicate {
	return Predicate{Kind: KindCompare, Field: field, Op: op, Coercion: coercion, Literals: []value.Value{literal}}
}

func CompareIn(field string, op Op, coercion value.CoercionID, literals []value.Value) Predicate {
	return Predicate{Kind: KindCompare, Field: field, Op: op, Coercion: coercion, Literals: literals}
}

func IsNull(field string) Predicate     { return Predicate{Kind: KindIsNull, Field: field} }
func IsMissing(field string) Predicate  { return Predicate{Kind: KindIsMissing, Field: field} }
func IsEmpty(field string) Predicate    { return Predicate{Kind: KindIsEmpty, Field: field} }
func IsNotEmpty(field string) Predicate { return Predicate{Kind: KindIsNotEmpty, Field: field} }

func TextContains(field string, literal value.Value) Predicate {
	return Predicate{Kind: KindTextContains, Field: field, Literals: []value.Value{literal}}
}

func TextContainsCi(field string, literal value.Value) Predicate {
	return Predicate{Kind: KindTextContainsCi, Field: field, Literals: []value.Value{literal}}
}

// IsStrictEquality reports whether p is a strict-coercion equality compare on
// the given field, the shape the planner looks for to drive ByKey/
// IndexPrefix derivation (spec §4.5 step 2/3).
func (p Predicate) IsStrictEquality(field string) (value.Value, bool) {
	if p.Kind != KindCompare || p.Op != Eq || p.Coercion != value.CoercionStrict || p.Field != field {
		return value.Value{}, false
	}
	if len(p.Literals) != 1 {
		return value.Value{}, false
	}
	return p.Literals[0], true
}
