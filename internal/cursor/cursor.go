// Package cursor implements continuation tokens: the opaque,
// signature-protected boundary state that lets a paged Load resume a
// stopped traversal (spec §3.6, §4.11).
package cursor

import (
	"crypto/sha256"
	"encoding/binary"

	"icydb/internal/key"
	"icydb/internal/plan"
	"icydb/internal/predicate"
	"icydb/internal/value"
)

const tokenVersion = 1

// SlotKind tags a CursorBoundary slot.
type SlotKind byte

const (
	SlotMissing SlotKind = iota
	SlotPresent
)

// Slot is one value in the cursor boundary, one per canonical order field.
// The value travels as its canonical component encoding (the same bytes
// the index codec would produce) plus its declared Kind tag, rather than
// a decoded value.Value: the boundary is compared bytewise against the
// same encoding of each candidate row's order fields, or type-checked
// against the schema, and is never reconstructed into a live Value.
type Slot struct {
	Kind      SlotKind
	ValueKind value.Kind
	Raw       []byte
}

func MissingSlot() Slot { return Slot{Kind: SlotMissing} }

func PresentSlot(v value.Value) (Slot, error) {
	raw, err := value.EncodeComponent(v, value.CoercionStrict)
	if err != nil {
		return Slot{}, err
	}
	return Slot{Kind: SlotPresent, ValueKind: v.Kind, Raw: raw}, nil
}

// CursorBoundary is the ordered tuple of last-yielded field values.
type CursorBoundary struct {
	Slots []Slot
}

// ContinuationToken is the full cursor payload (spec §3.6).
type ContinuationToken struct {
	Version          uint32
	Signature        [32]byte
	Boundary         CursorBoundary
	Direction        plan.OrderDirection
	InitialOffset    uint64
	IndexRangeAnchor []byte // raw IndexKey bytes, nil when not applicable
}

// SignatureInput is everything the continuation signature covers (spec
// §4.11): entity path, mode, canonicalized access, normalized predicate,
// order spec, distinct flag, and a projection marker. Pagination window,
// delete limit, and boundary state are explicitly excluded so windowing
// never invalidates a cursor.
type SignatureInput struct {
	EntityPath string
	Mode       plan.Mode
	Access     plan.AccessPlan
	Predicate  predicate.Predicate
	Order      []plan.OrderField
	Distinct   bool
	Projection string
}

// Signature computes the SHA-256 continuation signature over a
// SignatureInput (spec §4.11, §4.12: "used for ... continuation
// signatures").
func Signature(in SignatureInput) [32]byte {
	h := sha256.New()
	writeString(h, in.EntityPath)
	h.Write([]byte{byte(in.Mode)})
	writeAccessPlan(h, in.Access)
	writePredicate(h, in.Predicate)
	for _, o := range in.Order {
		writeString(h, o.Field)
		h.Write([]byte{byte(o.Direction)})
	}
	if in.Distinct {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	writeString(h, in.Projection)

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func writeString(h interface{ Write([]byte) (int, error) }, s string) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	h.Write(lenBuf[:])
	h.Write([]byte(s))
}

func writeValue(h interface{ Write([]byte) (int, error) }, v value.Value) {
	hv := value.HashValue(v)
	h.Write(hv[:])
}

func writeAccessPlan(h interface{ Write([]byte) (int, error) }, a plan.AccessPlan) {
	h.Write([]byte{byte(a.Kind)})
	switch a.Kind {
	case plan.CompositePath:
		writeAccessPath(h, a.Path)
	default:
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(a.Children)))
		h.Write(lenBuf[:])
		for _, c := range a.Children {
			writeAccessPlan(h, c)
		}
	}
}

func writeAccessPath(h interface{ Write([]byte) (int, error) }, p plan.AccessPath) {
	h.Write([]byte{byte(p.Kind)})
	writeString(h, p.IndexName)
	writeString(h, p.RangeField)
	writeValue(h, p.Key)
	for _, k := range p.Keys {
		writeValue(h, k)
	}
	for _, v := range p.PrefixVals {
		writeValue(h, v)
	}
	writeBound(h, p.Start)
	writeBound(h, p.End)
	writeBound(h, p.RangeLower)
	writeBound(h, p.RangeUpper)
}

func writeBound(h interface{ Write([]byte) (int, error) }, b plan.RangeBound) {
	switch {
	case b.Unbounded:
		h.Write([]byte{0})
	case b.Included:
		h.Write([]byte{1})
		writeValue(h, b.Value)
	default:
		h.Write([]byte{2})
		writeValue(h, b.Value)
	}
}

func writePredicate(h interface{ Write([]byte) (int, error) }, p predicate.Predicate) {
	h.Write([]byte{byte(p.Kind)})
	writeString(h, p.Field)
	h.Write([]byte{byte(p.Op), byte(p.Coercion)})
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(p.Literals)))
	h.Write(lenBuf[:])
	for _, lit := range p.Literals {
		writeValue(h, lit)
	}
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(p.Children)))
	h.Write(lenBuf[:])
	for _, c := range p.Children {
		writePredicate(h, c)
	}
	if p.Child != nil {
		h.Write([]byte{1})
		writePredicate(h, *p.Child)
	} else {
		h.Write([]byte{0})
	}
}

// ResumeBounds computes cursor_resume_bounds (spec §4.11): ASC excludes
// the anchor from the lower bound, DESC excludes it from the upper bound.
func ResumeBounds(lower, upper key.Bound, anchorRaw []byte, dir plan.OrderDirection) (key.Bound, key.Bound) {
	if dir == plan.Ascending {
		return key.ExcludedBound(anchorRaw), upper
	}
	return lower, key.ExcludedBound(anchorRaw)
}

// EnvelopeIsEmpty re-exports key.EnvelopeIsEmpty under the name spec §4.11
// uses (cursor_envelope_is_empty): both bounds present and exclusively
// contradictory short-circuits downstream traversal.
func EnvelopeIsEmpty(lower, upper []byte) bool {
	return key.EnvelopeIsEmpty(lower, upper)
}
