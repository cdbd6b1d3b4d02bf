package cursor

import (
	"encoding/binary"

	"icydb/internal/errs"
	"icydb/internal/plan"
	"icydb/internal/value"
)

// Encode serializes a ContinuationToken to its opaque wire form:
// [version:u32 BE][signature:32][slot_count:u32 BE]{slot}*[direction:1]
// [initial_offset:u64 BE][anchor_present:1]{[anchor_len:u32 BE][anchor]}?
// where each slot is [kind:1], followed for a present slot by
// [value_kind:1][raw_len:u32 BE][raw].
func (t ContinuationToken) Encode() ([]byte, error) {
	var out []byte
	out = appendUint32(out, tokenVersion)
	out = append(out, t.Signature[:]...)
	out = appendUint32(out, uint32(len(t.Boundary.Slots)))
	for _, slot := range t.Boundary.Slots {
		out = append(out, byte(slot.Kind))
		if slot.Kind == SlotPresent {
			out = append(out, byte(slot.ValueKind))
			out = appendUint32(out, uint32(len(slot.Raw)))
			out = append(out, slot.Raw...)
		}
	}
	out = append(out, byte(t.Direction))
	out = appendUint64(out, t.InitialOffset)
	if t.IndexRangeAnchor != nil {
		out = append(out, 1)
		out = appendUint32(out, uint32(len(t.IndexRangeAnchor)))
		out = append(out, t.IndexRangeAnchor...)
	} else {
		out = append(out, 0)
	}
	return out, nil
}

// DecodeToken reverses Encode, failing closed on malformed bytes or an
// unknown version (spec §4.11 step 1).
func DecodeToken(raw []byte) (ContinuationToken, error) {
	pos := 0
	version, err := readUint32(raw, &pos)
	if err != nil {
		return ContinuationToken{}, errs.Wrap(errs.Corruption, errs.Query, "cursor: truncated version", err)
	}
	if version != tokenVersion {
		return ContinuationToken{}, errs.Newf(errs.Corruption, errs.Query, "cursor: unsupported version %d", version)
	}
	if pos+32 > len(raw) {
		return ContinuationToken{}, errs.New(errs.Corruption, errs.Query, "cursor: truncated signature")
	}
	var sig [32]byte
	copy(sig[:], raw[pos:pos+32])
	pos += 32

	slotCount, err := readUint32(raw, &pos)
	if err != nil {
		return ContinuationToken{}, errs.Wrap(errs.Corruption, errs.Query, "cursor: truncated slot count", err)
	}
	slots := make([]Slot, 0, slotCount)
	for i := uint32(0); i < slotCount; i++ {
		if pos >= len(raw) {
			return ContinuationToken{}, errs.New(errs.Corruption, errs.Query, "cursor: truncated slot kind")
		}
		kind := SlotKind(raw[pos])
		pos++
		if kind == SlotPresent {
			if pos >= len(raw) {
				return ContinuationToken{}, errs.New(errs.Corruption, errs.Query, "cursor: truncated slot value kind")
			}
			valueKind := raw[pos]
			pos++
			l, err := readUint32(raw, &pos)
			if err != nil {
				return ContinuationToken{}, errs.Wrap(errs.Corruption, errs.Query, "cursor: truncated slot value length", err)
			}
			if pos+int(l) > len(raw) {
				return ContinuationToken{}, errs.New(errs.Corruption, errs.Query, "cursor: truncated slot value bytes")
			}
			rawVal := append([]byte(nil), raw[pos:pos+int(l)]...)
			pos += int(l)
			slots = append(slots, slotFromRaw(valueKind, rawVal))
		} else {
			slots = append(slots, MissingSlot())
		}
	}

	if pos >= len(raw) {
		return ContinuationToken{}, errs.New(errs.Corruption, errs.Query, "cursor: truncated direction")
	}
	dir := raw[pos]
	pos++

	offset, err := readUint64(raw, &pos)
	if err != nil {
		return ContinuationToken{}, errs.Wrap(errs.Corruption, errs.Query, "cursor: truncated initial_offset", err)
	}

	if pos >= len(raw) {
		return ContinuationToken{}, errs.New(errs.Corruption, errs.Query, "cursor: truncated anchor presence byte")
	}
	present := raw[pos]
	pos++
	var anchor []byte
	if present == 1 {
		l, err := readUint32(raw, &pos)
		if err != nil {
			return ContinuationToken{}, errs.Wrap(errs.Corruption, errs.Query, "cursor: truncated anchor length", err)
		}
		if pos+int(l) > len(raw) {
			return ContinuationToken{}, errs.New(errs.Corruption, errs.Query, "cursor: truncated anchor bytes")
		}
		anchor = append([]byte(nil), raw[pos:pos+int(l)]...)
		pos += int(l)
	}

	if pos != len(raw) {
		return ContinuationToken{}, errs.New(errs.Corruption, errs.Query, "cursor: trailing bytes after token envelope")
	}

	return ContinuationToken{
		Version:          version,
		Signature:        sig,
		Boundary:         CursorBoundary{Slots: slots},
		Direction:        plan.OrderDirection(dir),
		InitialOffset:    offset,
		IndexRangeAnchor: anchor,
	}, nil
}

func appendUint32(b []byte, v uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return append(b, buf[:]...)
}

func appendUint64(b []byte, v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(b, buf[:]...)
}

func readUint32(raw []byte, pos *int) (uint32, error) {
	if *pos+4 > len(raw) {
		return 0, errs.New(errs.Corruption, errs.Query, "cursor: truncated u32 field")
	}
	v := binary.BigEndian.Uint32(raw[*pos : *pos+4])
	*pos += 4
	return v, nil
}

func readUint64(raw []byte, pos *int) (uint64, error) {
	if *pos+8 > len(raw) {
		return 0, errs.New(errs.Corruption, errs.Query, "cursor: truncated u64 field")
	}
	v := binary.BigEndian.Uint64(raw[*pos : *pos+8])
	*pos += 8
	return v, nil
}

func slotFromRaw(valueKind byte, raw []byte) Slot {
	return Slot{Kind: SlotPresent, ValueKind: value.Kind(valueKind), Raw: raw}
}
