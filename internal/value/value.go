// Package value implements IcyDB's tagged Value sum type: canonical
// ordering, canonical byte encoding for index components, and deterministic
// hashing (spec §3.1, §4.3, §4.12).
package value

import (
	"fmt"
	"math/big"
)

// Kind is the 1-byte canonical tag for a Value variant (spec §3.1).
type Kind byte

const (
	KindNull Kind = iota
	KindUnit
	KindBool
	KindUint
	KindInt
	KindUint128
	KindInt128
	KindUintBig
	KindIntBig
	KindFloat32
	KindFloat64
	KindDecimal
	KindText
	KindBlob
	KindPrincipal
	KindAccount
	KindSubaccount
	KindUlid
	KindDate
	KindTimestamp
	KindDuration
	KindEnum
	KindList
	KindMap
)

func (k Kind) String() string {
	names := [...]string{
		"Null", "Unit", "Bool", "Uint", "Int", "Uint128", "Int128", "UintBig",
		"IntBig", "Float32", "Float64", "Decimal", "Text", "Blob", "Principal",
		"Account", "Subaccount", "Ulid", "Date", "Timestamp", "Duration",
		"Enum", "List", "Map",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Account is a principal owner plus an optional 32-byte subaccount
// discriminator (spec §3.1).
type Account struct {
	Owner      []byte
	Subaccount *[32]byte
}

// EnumValue is a named variant with an optional payload Value. Path is
// descriptive metadata only; it never participates in ordering or hashing
// (spec §4.3: "enum encodes variant_name_bytes only (path not in ordering)").
type EnumValue struct {
	Path    *string
	Variant string
	Payload *Value
}

// Decimal is a sign-scale-mantissa fixed-point number (spec §3.1).
// Sign is +1 or -1 (0 mantissa is always stored with Sign=+1).
type Decimal struct {
	Sign     int8
	Scale    int32
	Mantissa *big.Int
}

// MapEntry is one key/value pair of a Map value. Construction order is not
// observable: both CanonicalCmp and HashValue re-sort entries by the
// canonical order of Key before using them (spec §3.1).
type MapEntry struct {
	Key   Value
	Value Value
}

// Value is IcyDB's tagged sum type. Exactly one payload field is meaningful
// for a given Kind; all others are zero. This mirrors a Rust-style closed
// enum using a discriminant field, the idiomatic Go substitute for a sum
// type without interface-boxing every scalar.
type Value struct {
	Kind Kind

	Bool       bool
	Uint       uint64
	Int        int64
	Big        *big.Int // Uint128, Int128, UintBig, IntBig
	Float32    float32
	Float64    float64
	Decimal    Decimal
	Text       string
	Blob       []byte
	Principal  []byte
	Account    Account
	Subaccount [32]byte
	Ulid       [16]byte
	Date       int32
	Timestamp  uint64
	Duration   uint64
	Enum       EnumValue
	List       []Value
	Map        []MapEntry
}

func Null() Value { return Value{Kind: KindNull} }
func Unit() Value { return Value{Kind: KindUnit} }

func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }
func Uint(u uint64) Value { return Value{Kind: KindUint, Uint: u} }
func Int(i int64) Value { return Value{Kind: KindInt, Int: i} }

func Uint128(v *big.Int) Value { return Value{Kind: KindUint128, Big: v} }
func Int128(v *big.Int) Value  { return Value{Kind: KindInt128, Big: v} }
func UintBig(v *big.Int) Value { return Value{Kind: KindUintBig, Big: v} }
func IntBig(v *big.Int) Value  { return Value{Kind: KindIntBig, Big: v} }

func Float32V(f float32) Value { return Value{Kind: KindFloat32, Float32: f} }
func Float64V(f float64) Value { return Value{Kind: KindFloat64, Float64: f} }

// NewDecimal normalizes sign (0 mantissa always normalizes to Sign=+1) so
// that two logically equal decimals always compare and hash identically.
func NewDecimal(sign int8, scale int32, mantissa *big.Int) Value {
	d := Decimal{Sign: sign, Scale: scale, Mantissa: mantissa}
	if mantissa == nil || mantissa.Sign() == 0 {
		d.Sign = 1
		d.Mantissa = big.NewInt(0)
	} else if sign < 0 {
		d.Sign = -1
	} else {
		d.Sign = 1
	}
	return Value{Kind: KindDecimal, Decimal: d}
}

func Text(s string) Value { return Value{Kind: KindText, Text: s} }
func Blob(b []byte) Value { return Value{Kind: KindBlob, Blob: b} }

func Principal(b []byte) Value { return Value{Kind: KindPrincipal, Principal: b} }

func NewAccount(owner []byte, sub *[32]byte) Value {
	return Value{Kind: KindAccount, Account: Account{Owner: owner, Subaccount: sub}}
}

func SubaccountV(b [32]byte) Value { return Value{Kind: KindSubaccount, Subaccount: b} }
func Ulid(b [16]byte) Value        { return Value{Kind: KindUlid, Ulid: b} }
func Date(days int32) Value        { return Value{Kind: KindDate, Date: days} }
func Timestamp(ns uint64) Value    { return Value{Kind: KindTimestamp, Timestamp: ns} }
func Duration(ns uint64) Value     { return Value{Kind: KindDuration, Duration: ns} }

func Enum(path *string, variant string, payload *Value) Value {
	return Value{Kind: KindEnum, Enum: EnumValue{Path: path, Variant: variant, Payload: payload}}
}

func List(items []Value) Value { return Value{Kind: KindList, List: items} }

// NewMap builds a Map value. Entry order as passed is not observable -
// CanonicalCmp and HashValue always operate on a canonically-sorted copy.
func NewMap(entries []MapEntry) Value { return Value{Kind: KindMap, Map: entries} }

// Type reports the value's scalar type name, used in error messages and
// predicate validation diagnostics.
func (v Value) Type() string { return v.Kind.String() }
