package exec

import (
	"bytes"

	"go.uber.org/zap"

	"icydb/internal/errs"
	"icydb/internal/key"
	"icydb/internal/schema"
	"icydb/internal/store"
	"icydb/internal/value"
)

// checkUniqueConstraints validates row against every unique index b
// declares, scanning the index's field-value prefix (excluding the
// trailing PK component) for an entry belonging to a different row (spec
// §4.2 step 1: "Validate uniqueness constraints against current index
// state"). pkRaw is row's own encoded primary-key component, used to
// recognize (and ignore) the row's own pre-existing entry.
func (e *Engine) checkUniqueConstraints(b *EntityBinding, row, pkRaw []byte) error {
	for name, ib := range b.Indexes {
		im := b.Model.FindIndex(name)
		if im == nil || !im.Unique {
			continue
		}
		if err := e.checkUniqueIndex(b, ib, im, row, pkRaw); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) checkUniqueIndex(b *EntityBinding, ib IndexBinding, im *schema.IndexModel, row, pkRaw []byte) error {
	prefix := make([][]byte, 0, len(im.Fields))
	for _, field := range im.Fields {
		v, present, err := b.Codec.Field(row, field)
		if err != nil {
			return err
		}
		if !present {
			// A row that doesn't carry every field of this index does not
			// participate in it, so it cannot collide under it.
			return nil
		}
		raw, err := value.EncodeComponent(v, value.CoercionStrict)
		if err != nil {
			return err
		}
		prefix = append(prefix, raw)
	}

	lower, upper := key.BoundsForPrefix(key.KindUser, ib.ID, prefix)
	it := e.registry.IndexStore(ib.StoreID).Range(store.IncludedBound(lower), store.ExcludedBound(upper))
	for it.Next() {
		entry := it.Entry()
		existing, err := key.FromRaw(entry.Key)
		if err != nil {
			return err
		}
		if len(existing.Components) == 0 {
			continue
		}
		if bytes.Equal(existing.Components[len(existing.Components)-1], pkRaw) {
			continue // this row's own current entry, not a collision
		}
		e.log.Warn("unique index violation",
			zap.String("entity", b.Model.Path), zap.String("index", im.Name))
		return errs.Newf(errs.Validation, errs.Index,
			"entity %q: unique index %q already has an entry for this value", b.Model.Path, im.Name)
	}
	return nil
}
