package predicate

import (
	"strings"
	"unicode"

	"icydb/internal/value"
)

// FieldLookup resolves one field of a decoded row. present=false means the
// field is entirely absent from the row (not merely null); row encodings
// that never omit fields can always report present=true.
type FieldLookup func(field string) (v value.Value, present bool)

// Evaluate applies a normalized predicate against a decoded row, matching
// the residual in-memory filter Load runs over materialized or streamed rows
// whose access path could not fully encode the predicate into the scan
// bounds (spec §4.10 Load step 3/4: "apply in-memory filter for non-strict
// predicate residuals").
func Evaluate(p Predicate, lookup FieldLookup) (bool, error) {
	switch p.Kind {
	case KindTrue:
		return true, nil
	case KindFalse:
		return false, nil
	case KindAnd:
		for _, c := range p.Children {
			ok, err := Evaluate(c, lookup)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case KindOr:
		for _, c := range p.Children {
			ok, err := Evaluate(c, lookup)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case KindNot:
		ok, err := Evaluate(*p.Child, lookup)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case KindIsNull:
		v, present := lookup(p.Field)
		return present && v.Kind == value.KindNull, nil
	case KindIsMissing:
		_, present := lookup(p.Field)
		return !present, nil
	case KindIsEmpty:
		return evaluateEmptiness(p, lookup, true)
	case KindIsNotEmpty:
		return evaluateEmptiness(p, lookup, false)
	case KindTextContains, KindTextContainsCi:
		v, present := lookup(p.Field)
		if !present || len(p.Literals) != 1 {
			return false, nil
		}
		return evaluateTextContains(p, v), nil
	case KindCompare:
		v, present := lookup(p.Field)
		if !present {
			return false, nil
		}
		return evaluateCompare(p, v)
	default:
		return false, nil
	}
}

func evaluateEmptiness(p Predicate, lookup FieldLookup, wantEmpty bool) (bool, error) {
	v, present := lookup(p.Field)
	if !present {
		return false, nil
	}
	var empty bool
	switch v.Kind {
	case value.KindText:
		empty = v.Text == ""
	case value.KindBlob:
		empty = len(v.Blob) == 0
	case value.KindList:
		empty = len(v.List) == 0
	case value.KindMap:
		empty = len(v.Map) == 0
	default:
		empty = false
	}
	return empty == wantEmpty, nil
}

func evaluateTextContains(p Predicate, v value.Value) bool {
	haystack := textOf(v)
	needle := textOf(p.Literals[0])
	if p.Kind == KindTextContainsCi {
		haystack = strings.Map(unicode.ToLower, haystack)
		needle = strings.Map(unicode.ToLower, needle)
	}
	return strings.Contains(haystack, needle)
}

func textOf(v value.Value) string {
	if v.Kind == value.KindBlob {
		return string(v.Blob)
	}
	return v.Text
}

func evaluateCompare(p Predicate, v value.Value) (bool, error) {
	switch p.Op {
	case Eq:
		return anyMatches(v, p.Literals, p.Coercion, func(c int) bool { return c == 0 }), nil
	case Ne:
		return !anyMatches(v, p.Literals, p.Coercion, func(c int) bool { return c == 0 }), nil
	case Lt:
		return len(p.Literals) == 1 && cmpCoerced(v, p.Literals[0], p.Coercion) < 0, nil
	case Lte:
		return len(p.Literals) == 1 && cmpCoerced(v, p.Literals[0], p.Coercion) <= 0, nil
	case Gt:
		return len(p.Literals) == 1 && cmpCoerced(v, p.Literals[0], p.Coercion) > 0, nil
	case Gte:
		return len(p.Literals) == 1 && cmpCoerced(v, p.Literals[0], p.Coercion) >= 0, nil
	case In:
		return anyMatches(v, p.Literals, p.Coercion, func(c int) bool { return c == 0 }), nil
	case NotIn:
		return !anyMatches(v, p.Literals, p.Coercion, func(c int) bool { return c == 0 }), nil
	case Contains, StartsWith, EndsWith:
		if len(p.Literals) != 1 {
			return false, nil
		}
		return evaluateTextOp(p.Op, v, p.Literals[0]), nil
	default:
		return false, nil
	}
}

func evaluateTextOp(op Op, v, lit value.Value) bool {
	haystack := textOf(v)
	needle := textOf(lit)
	switch op {
	case StartsWith:
		return strings.HasPrefix(haystack, needle)
	case EndsWith:
		return strings.HasSuffix(haystack, needle)
	default:
		return strings.Contains(haystack, needle)
	}
}

func anyMatches(v value.Value, literals []value.Value, coercion value.CoercionID, ok func(int) bool) bool {
	for _, lit := range literals {
		if ok(cmpCoerced(v, lit, coercion)) {
			return true
		}
	}
	return false
}

// cmpCoerced compares v against lit the same way a strict-equality check
// does (value.CanonicalCmp), except CoercionTextCasefold lower-cases both
// sides first when comparing text, matching value.EncodeComponent's own
// casefold behavior for index bytes so residual filtering agrees with what
// an index-backed access path would already have selected.
func cmpCoerced(v, lit value.Value, coercion value.CoercionID) int {
	if coercion == value.CoercionTextCasefold && v.Kind == value.KindText && lit.Kind == value.KindText {
		return value.CanonicalCmp(value.Text(strings.Map(unicode.ToLower, v.Text)), value.Text(strings.Map(unicode.ToLower, lit.Text)))
	}
	return value.CanonicalCmp(v, lit)
}
