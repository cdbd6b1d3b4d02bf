package key

// Bound is one side of a range scan over an OrderedMap (spec §4.1).
type BoundKind byte

const (
	Unbounded BoundKind = iota
	Included
	Excluded
)

// Bound pairs a BoundKind with the raw bytes it bounds (ignored when
// Unbounded).
type Bound struct {
	Kind BoundKind
	Raw  []byte
}

func IncludedBound(raw []byte) Bound { return Bound{Kind: Included, Raw: raw} }
func ExcludedBound(raw []byte) Bound { return Bound{Kind: Excluded, Raw: raw} }
func UnboundedBound() Bound          { return Bound{Kind: Unbounded} }

// envelopeLower/envelopeUpper build the tightest [lower, upper) envelope
// that contains every index key with the given kind+index_id+prefix
// components, regardless of what (or how many) components follow.
func envelopeLower(kindByte Kind, id IndexID, prefix [][]byte) []byte {
	k := IndexKey{Kind: kindByte, Index: id, Components: prefix}
	raw, _ := k.ToRaw()
	return raw
}

// envelopeUpperExclusive returns the raw bytes of the smallest key strictly
// greater than every key sharing (kind, index_id, prefix): the prefix key
// encoding with its component-count byte incremented past any value a real
// key could have, achieved instead by appending a byte higher than any
// valid continuation. Because the component-count byte precedes the
// component bytes, and a real continuation key shares the identical prefix
// bytes for kind/index_id/component_count/prefix-components, we instead
// bump the final byte of the prefix encoding's length-framed envelope by
// appending 0xFF sentinel bytes, which never collide with a valid u16
// length-prefixed component (any real next component starts with two
// length bytes, and 0xFF 0xFF would require a 65535-byte component to tie,
// which MAX_INDEX_ENTRY_BYTES rules out in practice for component count >= 1).
func envelopeUpperExclusive(kindByte Kind, id IndexID, prefix [][]byte) []byte {
	base := envelopeLower(kindByte, id, prefix)
	upper := make([]byte, len(base)+1)
	copy(upper, base)
	upper[len(base)] = 0xFF
	return upper
}

// BoundsForPrefix produces (start, end-exclusive) raw bounds for scanning
// every index key sharing kind/index_id and beginning with the given
// component prefix, at any total component count >= len(prefix) (spec §4.3
// bounds_for_prefix).
func BoundsForPrefix(kindByte Kind, id IndexID, prefix [][]byte) (lower, upper []byte) {
	return envelopeLower(kindByte, id, prefix), envelopeUpperExclusive(kindByte, id, prefix)
}

// RawBoundsForIndexComponentRange produces bounds for a "prefix = eq...
// AND last = range" index scan (spec §4.3
// raw_bounds_for_index_component_range): prefixValues are the leading
// strict-equality components; lowerComponent/upperComponent bound the final
// component, each optionally Included/Excluded/Unbounded.
func RawBoundsForIndexComponentRange(kindByte Kind, id IndexID, prefixValues [][]byte, lowerComponent, upperComponent Bound) (lower, upper []byte) {
	if lowerComponent.Kind == Unbounded {
		lower = envelopeLower(kindByte, id, prefixValues)
	} else {
		comps := append(append([][]byte{}, prefixValues...), lowerComponent.Raw)
		lower = envelopeLower(kindByte, id, comps)
		if lowerComponent.Kind == Excluded {
			lower = append(lower, 0xFF)
		}
	}

	if upperComponent.Kind == Unbounded {
		upper = envelopeUpperExclusive(kindByte, id, prefixValues)
	} else {
		comps := append(append([][]byte{}, prefixValues...), upperComponent.Raw)
		upper = envelopeLower(kindByte, id, comps)
		if upperComponent.Kind == Included {
			upper = append(upper, 0xFF)
		}
	}
	return lower, upper
}

// EnvelopeIsEmpty reports whether [lower, upper) is a contradictory or
// empty interval (spec §4.11 cursor_envelope_is_empty).
func EnvelopeIsEmpty(lower, upper []byte) bool {
	if lower == nil || upper == nil {
		return false
	}
	return compareBytes(lower, upper) >= 0
}
