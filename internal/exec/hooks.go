package exec

import (
	"bytes"

	"icydb/internal/commit"
	"icydb/internal/errs"
	"icydb/internal/key"
	"icydb/internal/schema"
	"icydb/internal/value"
)

// DeriveOps implements commit.RuntimeHooks for one entity: it re-derives
// the index ops and the data op from a row's before/after bytes, the same
// derivation PrepareRowCommit runs at write time and recovery re-runs from
// a persisted marker (spec §4.2, §9 "EntityRuntimeHooks").
func (b *EntityBinding) DeriveOps(before, after []byte) ([]commit.IndexOp, commit.DataOp, error) {
	dataOp, err := b.deriveDataOp(before, after)
	if err != nil {
		return nil, commit.DataOp{}, err
	}

	var ops []commit.IndexOp
	for name, ib := range b.Indexes {
		im := b.Model.FindIndex(name)
		if im == nil {
			continue
		}
		oldRaw, oldOk, err := b.encodeIndexEntry(ib, im, before)
		if err != nil {
			return nil, commit.DataOp{}, err
		}
		newRaw, newOk, err := b.encodeIndexEntry(ib, im, after)
		if err != nil {
			return nil, commit.DataOp{}, err
		}
		if oldOk && (!newOk || !bytes.Equal(oldRaw, newRaw)) {
			ops = append(ops, commit.IndexOp{Kind: commit.IndexRemove, StoreID: ib.StoreID, RawKey: oldRaw})
		}
		if newOk && (!oldOk || !bytes.Equal(oldRaw, newRaw)) {
			ops = append(ops, commit.IndexOp{Kind: commit.IndexInsert, StoreID: ib.StoreID, RawKey: newRaw})
		}
	}
	return ops, dataOp, nil
}

func (b *EntityBinding) deriveDataOp(before, after []byte) (commit.DataOp, error) {
	row := after
	if row == nil {
		row = before
	}
	if row == nil {
		return commit.DataOp{}, errs.New(errs.InvariantViolation, errs.Executor, "exec: DeriveOps called with both before and after nil")
	}
	pk, present, err := b.Codec.Field(row, b.Model.PrimaryKey)
	if err != nil {
		return commit.DataOp{}, err
	}
	if !present {
		return commit.DataOp{}, errs.Newf(errs.Corruption, errs.Executor, "entity %q: row missing primary key field %q", b.Model.Path, b.Model.PrimaryKey)
	}
	rawKey, err := b.encodeDataKeyRaw(pk)
	if err != nil {
		return commit.DataOp{}, err
	}
	return commit.DataOp{StoreID: b.DataStoreID, RawKey: rawKey, Row: after, Remove: after == nil}, nil
}

// encodeIndexEntry projects row's declared index fields plus the trailing
// primary-key component into one canonical IndexKey (spec §3.2: "the final
// component is always the primary storage key"). ok is false when row is
// nil or any participating field is absent (the row does not participate
// in this index, e.g. a nullable leading field left unset).
func (b *EntityBinding) encodeIndexEntry(ib IndexBinding, im *schema.IndexModel, row []byte) ([]byte, bool, error) {
	if row == nil {
		return nil, false, nil
	}
	components := make([][]byte, 0, len(im.Fields)+1)
	for _, field := range im.Fields {
		v, present, err := b.Codec.Field(row, field)
		if err != nil {
			return nil, false, err
		}
		if !present {
			return nil, false, nil
		}
		raw, err := value.EncodeComponent(v, value.CoercionStrict)
		if err != nil {
			return nil, false, err
		}
		components = append(components, raw)
	}
	pk, present, err := b.Codec.Field(row, b.Model.PrimaryKey)
	if err != nil {
		return nil, false, err
	}
	if !present {
		return nil, false, nil
	}
	pkRaw, err := value.EncodeComponent(pk, value.CoercionStrict)
	if err != nil {
		return nil, false, err
	}
	components = append(components, pkRaw)

	ik := key.IndexKey{Kind: key.KindUser, Index: ib.ID, Components: components}
	raw, err := ik.ToRaw()
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}
