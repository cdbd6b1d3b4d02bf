package key

import (
	"encoding/binary"

	"icydb/internal/errs"
)

// Kind distinguishes user indexes from system (internal) indexes sharing
// the same index_id namespace. System keys strictly sort after user keys
// for the same index (spec §3.2).
type Kind byte

const (
	KindUser Kind = 0
	KindSystem Kind = 1
)

// MaxIndexFields bounds the number of components an index key may carry
// (spec §3.2).
const MaxIndexFields = 8

// IndexID is an opaque 16-byte identifier for one index, derived outside
// the core (spec §3.2).
type IndexID [16]byte

// IndexKey is the variable-width, order-preserving index key:
// [kind:1][index_id:16][component_count:1]{[len:u16 BE][bytes]}* (spec §3.2,
// §6.2). The final component is always the primary storage key.
type IndexKey struct {
	Kind       Kind
	Index      IndexID
	Components [][]byte
}

// ToRaw encodes the index key to its canonical on-disk bytes.
func (k IndexKey) ToRaw() ([]byte, error) {
	if len(k.Components) > MaxIndexFields {
		return nil, errs.Newf(errs.Validation, errs.Index, "index key has %d components, max %d", len(k.Components), MaxIndexFields)
	}
	size := 1 + 16 + 1
	for _, c := range k.Components {
		if len(c) > 0xFFFF {
			return nil, errs.Newf(errs.Validation, errs.Index, "index component of %d bytes exceeds u16 length frame", len(c))
		}
		size += 2 + len(c)
	}
	out := make([]byte, 0, size)
	out = append(out, byte(k.Kind))
	out = append(out, k.Index[:]...)
	out = append(out, byte(len(k.Components)))
	for _, c := range k.Components {
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(c)))
		out = append(out, lenBuf[:]...)
		out = append(out, c...)
	}
	return out, nil
}

// FromRaw decodes an IndexKey, validating the envelope and component
// framing, and returns a Corruption error on malformed bytes rather than
// panicking. Used by cursor anchor validation (spec §4.11 cursor spine
// validation), unique-index checks and index stream decoding.
func FromRaw(raw []byte) (IndexKey, error) {
	if len(raw) < 1+16+1 {
		return IndexKey{}, errs.New(errs.Corruption, errs.Index, "index key shorter than envelope")
	}
	k := IndexKey{Kind: Kind(raw[0])}
	copy(k.Index[:], raw[1:17])
	count := int(raw[17])
	if count > MaxIndexFields {
		return IndexKey{}, errs.Newf(errs.Corruption, errs.Index, "index key declares %d components, max %d", count, MaxIndexFields)
	}
	pos := 18
	comps := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		if pos+2 > len(raw) {
			return IndexKey{}, errs.New(errs.Corruption, errs.Index, "truncated component length")
		}
		l := int(binary.BigEndian.Uint16(raw[pos : pos+2]))
		pos += 2
		if pos+l > len(raw) {
			return IndexKey{}, errs.New(errs.Corruption, errs.Index, "truncated component bytes")
		}
		comp := make([]byte, l)
		copy(comp, raw[pos:pos+l])
		comps = append(comps, comp)
		pos += l
	}
	if pos != len(raw) {
		return IndexKey{}, errs.New(errs.Corruption, errs.Index, "trailing bytes after last component")
	}
	k.Components = comps
	return k, nil
}

// Compare orders two index keys by their raw encodings, byte for byte:
// kind, then index_id, then the component-count byte, then each
// component's u16 length prefix followed by its bytes. A key with fewer
// components therefore sorts before one with more whatever their values,
// and at equal count, components of different lengths order by length
// before content.
func Compare(a, b IndexKey) int {
	ab, _ := a.ToRaw()
	bb, _ := b.ToRaw()
	return compareBytes(ab, bb)
}
