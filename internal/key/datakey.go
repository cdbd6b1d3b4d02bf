// Package key implements IcyDB's binary key layouts: the fixed-width
// primary (data) key and the variable-width, order-preserving index key
// (spec §3.2, §4.3, §6.2).
package key

import (
	"fmt"

	"icydb/internal/errs"
)

// entityNameWidth is the fixed width of the entity-name portion of a data
// key: a 1-byte length prefix plus 15 zero-padded ASCII bytes (spec §3.2).
const (
	entityNameMaxLen = 15
	entityNameWidth  = 1 + entityNameMaxLen
)

// DataKey is the fixed-width primary key: entity_name (16B) + storage_key
// (PK-width, fixed per entity at schema-build time). Lexicographic order on
// the raw bytes matches logical PK order within one entity because
// storage_key is itself a canonical, fixed-width encoding (spec §3.2).
type DataKey struct {
	Entity  string
	Storage []byte // fixed width per entity, chosen by the caller's schema
}

// EncodeEntityName packs entity into the 16-byte [len][name] envelope.
func EncodeEntityName(entity string) ([]byte, error) {
	if len(entity) > entityNameMaxLen {
		return nil, errs.Newf(errs.Validation, errs.Serialize, "entity name %q exceeds %d bytes", entity, entityNameMaxLen)
	}
	out := make([]byte, entityNameWidth)
	out[0] = byte(len(entity))
	copy(out[1:], entity)
	return out, nil
}

// DecodeEntityName reverses EncodeEntityName, validating the declared
// length fits the fixed envelope.
func DecodeEntityName(b []byte) (string, error) {
	if len(b) != entityNameWidth {
		return "", errs.Newf(errs.Corruption, errs.Serialize, "entity name envelope must be %d bytes, got %d", entityNameWidth, len(b))
	}
	n := int(b[0])
	if n > entityNameMaxLen {
		return "", errs.Newf(errs.Corruption, errs.Serialize, "entity name length %d exceeds %d", n, entityNameMaxLen)
	}
	return string(b[1 : 1+n]), nil
}

// ToRaw encodes a DataKey to its fixed-width on-disk bytes.
func (k DataKey) ToRaw() ([]byte, error) {
	name, err := EncodeEntityName(k.Entity)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, entityNameWidth+len(k.Storage))
	out = append(out, name...)
	out = append(out, k.Storage...)
	return out, nil
}

// FromRaw decodes a DataKey given the expected storage-key width for the
// entity (fixed per entity per spec §3.2; the caller, which knows the
// entity's schema, supplies it).
func FromRaw(raw []byte, storageWidth int) (DataKey, error) {
	if len(raw) != entityNameWidth+storageWidth {
		return DataKey{}, errs.Newf(errs.Corruption, errs.Serialize,
			"data key must be %d bytes, got %d", entityNameWidth+storageWidth, len(raw))
	}
	entity, err := DecodeEntityName(raw[:entityNameWidth])
	if err != nil {
		return DataKey{}, err
	}
	storage := make([]byte, storageWidth)
	copy(storage, raw[entityNameWidth:])
	return DataKey{Entity: entity, Storage: storage}, nil
}

// Compare orders two data keys lexicographically on their raw encoding,
// without forcing the caller to encode first.
func Compare(a, b DataKey) int {
	ab, _ := a.ToRaw()
	bb, _ := b.ToRaw()
	return compareBytes(ab, bb)
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func (k DataKey) String() string {
	return fmt.Sprintf("DataKey{%s, %x}", k.Entity, k.Storage)
}
