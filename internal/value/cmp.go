package value

import (
	"bytes"
	"math/big"
)

// CanonicalCmp gives a total ordering over Values consistent with the
// canonical byte encoding used by index components (spec §3.1 invariant,
// testable property 2). Values of different Kind order first by Kind's
// numeric tag. The codec writes no type tag (a component's type is fixed
// by its declared field), so the two only need to agree within one Kind;
// keeping Kind as the outer sort key makes CanonicalCmp a total order
// over the full Value domain (needed for plan/predicate
// canonicalization, which compares literals across a normalized AST without
// a field-type context).
func CanonicalCmp(a, b Value) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	switch a.Kind {
	case KindNull, KindUnit:
		return 0
	case KindBool:
		return cmpBool(a.Bool, b.Bool)
	case KindUint:
		return cmpUint64(a.Uint, b.Uint)
	case KindInt:
		return cmpInt64(a.Int, b.Int)
	case KindUint128, KindUintBig, KindInt128, KindIntBig:
		return cmpBig(a.Big, b.Big)
	case KindFloat32:
		return cmpFloat64(float64(a.Float32), float64(b.Float32))
	case KindFloat64:
		return cmpFloat64(a.Float64, b.Float64)
	case KindDecimal:
		return cmpDecimal(a.Decimal, b.Decimal)
	case KindText:
		return bytes.Compare([]byte(a.Text), []byte(b.Text))
	case KindBlob:
		return bytes.Compare(a.Blob, b.Blob)
	case KindPrincipal:
		return bytes.Compare(a.Principal, b.Principal)
	case KindAccount:
		return cmpAccount(a.Account, b.Account)
	case KindSubaccount:
		return bytes.Compare(a.Subaccount[:], b.Subaccount[:])
	case KindUlid:
		return bytes.Compare(a.Ulid[:], b.Ulid[:])
	case KindDate:
		return cmpInt64(int64(a.Date), int64(b.Date))
	case KindTimestamp:
		return cmpUint64(a.Timestamp, b.Timestamp)
	case KindDuration:
		return cmpUint64(a.Duration, b.Duration)
	case KindEnum:
		return cmpEnum(a.Enum, b.Enum)
	case KindList:
		return cmpList(a.List, b.List)
	case KindMap:
		return cmpMap(a.Map, b.Map)
	default:
		return 0
	}
}

func Equal(a, b Value) bool { return CanonicalCmp(a, b) == 0 }
func Less(a, b Value) bool  { return CanonicalCmp(a, b) < 0 }

func cmpBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

func cmpUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpBig(a, b *big.Int) int {
	if a == nil {
		a = big.NewInt(0)
	}
	if b == nil {
		b = big.NewInt(0)
	}
	return a.Cmp(b)
}

// cmpDecimal compares by normalized numeric value (sign * mantissa *
// 10^-scale), not by the syntactic (scale, mantissa) pair, so "1.0" and
// "1.00" compare equal - spec §3.1: "equivalent values (e.g. normalized
// decimals ...) hash identically", and CanonicalCmp must agree with
// HashValue's equality classes (spec testable property 4).
func cmpDecimal(a, b Decimal) int {
	am := a.Mantissa
	bm := b.Mantissa
	if am == nil {
		am = big.NewInt(0)
	}
	if bm == nil {
		bm = big.NewInt(0)
	}
	// bring both to the larger scale before comparing mantissas.
	scale := a.Scale
	if b.Scale > scale {
		scale = b.Scale
	}
	av := scaleMantissa(am, a.Sign, a.Scale, scale)
	bv := scaleMantissa(bm, b.Sign, b.Scale, scale)
	return av.Cmp(bv)
}

func scaleMantissa(m *big.Int, sign int8, scale, target int32) *big.Int {
	v := new(big.Int).Set(m)
	if sign < 0 {
		v.Neg(v)
	}
	diff := target - scale
	if diff > 0 {
		factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(diff)), nil)
		v.Mul(v, factor)
	}
	return v
}

func cmpAccount(a, b Account) int {
	if c := bytes.Compare(a.Owner, b.Owner); c != 0 {
		return c
	}
	aHas, bHas := a.Subaccount != nil, b.Subaccount != nil
	if aHas != bHas {
		if !aHas {
			return -1
		}
		return 1
	}
	if !aHas {
		return 0
	}
	return bytes.Compare(a.Subaccount[:], b.Subaccount[:])
}

func cmpEnum(a, b EnumValue) int {
	if c := bytes.Compare([]byte(a.Variant), []byte(b.Variant)); c != 0 {
		return c
	}
	aHas, bHas := a.Payload != nil, b.Payload != nil
	if aHas != bHas {
		if !aHas {
			return -1
		}
		return 1
	}
	if !aHas {
		return 0
	}
	return CanonicalCmp(*a.Payload, *b.Payload)
}

func cmpList(a, b []Value) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := CanonicalCmp(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmpInt64(int64(len(a)), int64(len(b)))
}

// sortedMapEntries returns m's entries sorted by canonical key order,
// leaving m untouched. Used by both CanonicalCmp and HashValue so
// construction order is never observable (spec §3.1).
func sortedMapEntries(m []MapEntry) []MapEntry {
	out := make([]MapEntry, len(m))
	copy(out, m)
	// simple insertion sort: map field counts are small in practice and
	// this keeps the comparator-based sort stable without importing
	// sort.Slice's closure overhead in a hot path.
	for i := 1; i < len(out); i++ {
		j := i
		for j > 0 && CanonicalCmp(out[j-1].Key, out[j].Key) > 0 {
			out[j-1], out[j] = out[j], out[j-1]
			j--
		}
	}
	return out
}

func cmpMap(a, b []MapEntry) int {
	as := sortedMapEntries(a)
	bs := sortedMapEntries(b)
	n := len(as)
	if len(bs) < n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		if c := CanonicalCmp(as[i].Key, bs[i].Key); c != 0 {
			return c
		}
		if c := CanonicalCmp(as[i].Value, bs[i].Value); c != 0 {
			return c
		}
	}
	return cmpInt64(int64(len(as)), int64(len(bs)))
}
