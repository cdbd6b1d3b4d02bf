// Package schemadiff compares two entity model snapshots, narrowed from
// full SQL schema diffing (renames, constraint rebuilds, table options) to
// one question: did a field or index that an in-flight commit marker
// references disappear? No engine path calls it; recovery replays markers
// without a schema comparison.
package schemadiff

import "icydb/internal/schema"

// EntityDiff lists what changed between an old and a new EntityModel
// snapshot of the same entity path.
type EntityDiff struct {
	AddedFields    []schema.FieldModel
	RemovedFields  []schema.FieldModel
	AddedIndexes   []schema.IndexModel
	RemovedIndexes []schema.IndexModel
}

// IsEmpty reports whether the two snapshots are identical in field and
// index shape.
func (d *EntityDiff) IsEmpty() bool {
	return len(d.AddedFields) == 0 && len(d.RemovedFields) == 0 &&
		len(d.AddedIndexes) == 0 && len(d.RemovedIndexes) == 0
}

// Diff compares old and new entity model snapshots by value. Fields and
// indexes are matched by name; a name present in both but differing in
// shape (type, nullability, unique/system flag, field list) counts as a
// removal in old plus an addition in new, so the diff answers "is
// everything the marker relies on still here, unchanged".
func Diff(old, newModel *schema.EntityModel) *EntityDiff {
	d := &EntityDiff{}

	oldFields := fieldsByName(old)
	newFields := fieldsByName(newModel)
	for name, nf := range newFields {
		if of, ok := oldFields[name]; !ok || of != nf {
			d.AddedFields = append(d.AddedFields, nf)
		}
	}
	for name, of := range oldFields {
		if nf, ok := newFields[name]; !ok || nf != of {
			d.RemovedFields = append(d.RemovedFields, of)
		}
	}

	oldIndexes := indexesByName(old)
	newIndexes := indexesByName(newModel)
	for name, ni := range newIndexes {
		if oi, ok := oldIndexes[name]; !ok || !sameIndex(oi, ni) {
			d.AddedIndexes = append(d.AddedIndexes, ni)
		}
	}
	for name, oi := range oldIndexes {
		if ni, ok := newIndexes[name]; !ok || !sameIndex(oi, ni) {
			d.RemovedIndexes = append(d.RemovedIndexes, oi)
		}
	}

	return d
}

func fieldsByName(e *schema.EntityModel) map[string]schema.FieldModel {
	out := make(map[string]schema.FieldModel, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Name] = f
	}
	return out
}

func indexesByName(e *schema.EntityModel) map[string]schema.IndexModel {
	out := make(map[string]schema.IndexModel, len(e.Indexes))
	for _, idx := range e.Indexes {
		out[idx.Name] = idx
	}
	return out
}

func sameIndex(a, b schema.IndexModel) bool {
	if a.Name != b.Name || a.Unique != b.Unique || a.System != b.System {
		return false
	}
	if len(a.Fields) != len(b.Fields) {
		return false
	}
	for i := range a.Fields {
		if a.Fields[i] != b.Fields[i] {
			return false
		}
	}
	return true
}

// RemovesAnythingReferencedBy reports whether this diff removed a field
// or index whose name appears in referencedFields/referencedIndexes,
// i.e. whether a crash-persisted commit marker built against old could
// still be replayed against new. Recovery does not call it.
func (d *EntityDiff) RemovesAnythingReferencedBy(referencedFields, referencedIndexes []string) bool {
	removedFields := make(map[string]bool, len(d.RemovedFields))
	for _, f := range d.RemovedFields {
		removedFields[f.Name] = true
	}
	removedIndexes := make(map[string]bool, len(d.RemovedIndexes))
	for _, idx := range d.RemovedIndexes {
		removedIndexes[idx.Name] = true
	}
	for _, f := range referencedFields {
		if removedFields[f] {
			return true
		}
	}
	for _, idx := range referencedIndexes {
		if removedIndexes[idx] {
			return true
		}
	}
	return false
}
