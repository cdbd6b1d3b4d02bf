// Package exec implements the four operations every query ultimately
// compiles down to: Load, Delete, Save, and Aggregate (spec §4.10). It sits
// directly on top of internal/plan, internal/route, internal/stream,
// internal/cursor, and internal/commit, translating a validated
// LogicalPlan into key-stream traversal and commit-engine calls.
package exec

import (
	"icydb/internal/errs"
	"icydb/internal/key"
	"icydb/internal/plan"
	"icydb/internal/schema"
	"icydb/internal/store"
	"icydb/internal/value"
)

// IndexBinding locates one declared index's backing store and the
// IndexID its encoded keys carry.
type IndexBinding struct {
	ID      key.IndexID
	StoreID store.MemoryID
}

// EntityBinding is the runtime wiring for one entity: its schema model plus
// where its rows and each of its indexes physically live. Db assembles one
// of these per entity at construction time, the same "assembled once, not
// per call" discipline commit.HookRegistry follows.
type EntityBinding struct {
	Model        *schema.EntityModel
	DataStoreID  store.MemoryID
	CommitCellID store.MemoryID
	Indexes      map[string]IndexBinding
	// StorageWidth is the fixed encoded width of the primary key's
	// canonical component bytes (spec §3.2: "storage_key ... fixed width
	// per entity, chosen by the caller's schema").
	StorageWidth int
	Codec        RowCodec
}

func (b *EntityBinding) indexBinding(name string) (IndexBinding, bool) {
	ib, ok := b.Indexes[name]
	return ib, ok
}

// encodeDataKeyRaw canonically encodes a primary-key value and frames it
// into this entity's full data-key bytes, rejecting any value whose
// encoding does not match the entity's fixed storage width.
func (b *EntityBinding) encodeDataKeyRaw(pk value.Value) ([]byte, error) {
	storage, err := value.EncodeComponent(pk, value.CoercionStrict)
	if err != nil {
		return nil, err
	}
	if len(storage) != b.StorageWidth {
		return nil, errs.Newf(errs.Validation, errs.Executor,
			"entity %q: primary key encodes to %d bytes, want fixed width %d", b.Model.Path, len(storage), b.StorageWidth)
	}
	dk := key.DataKey{Entity: b.Model.Path, Storage: storage}
	return dk.ToRaw()
}

// dataRangeBounds converts a logical primary-key range into the
// entity-scoped store.Bound pair the DataStore's OrderedMap expects; the
// Included/Excluded distinction is enforced by Range itself, so no byte
// arithmetic beyond the normal key encoding is needed here.
func (b *EntityBinding) dataRangeBounds(start, end plan.RangeBound) (store.Bound, store.Bound, error) {
	lower, err := b.rangeBoundToDataBound(start)
	if err != nil {
		return store.Bound{}, store.Bound{}, err
	}
	upper, err := b.rangeBoundToDataBound(end)
	if err != nil {
		return store.Bound{}, store.Bound{}, err
	}
	return lower, upper, nil
}

func (b *EntityBinding) rangeBoundToDataBound(rb plan.RangeBound) (store.Bound, error) {
	if rb.Unbounded {
		return store.UnboundedBound(), nil
	}
	raw, err := b.encodeDataKeyRaw(rb.Value)
	if err != nil {
		return store.Bound{}, err
	}
	if rb.Included {
		return store.IncludedBound(raw), nil
	}
	return store.ExcludedBound(raw), nil
}
