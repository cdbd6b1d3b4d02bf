package schema

import (
	"sort"

	"icydb/internal/value"
)

// Fingerprint returns a 16-byte digest over the entity's shape (fields and
// indexes, not their declaration order), via the same value.HashValue used
// everywhere else values are fingerprinted. A CommitRowOp stamps this at
// write time (spec §3.8); recovery replays a marker without comparing the
// stamp against the current model.
func (e *EntityModel) Fingerprint() [16]byte {
	sortedFields := append([]FieldModel(nil), e.Fields...)
	sort.Slice(sortedFields, func(i, j int) bool { return sortedFields[i].Name < sortedFields[j].Name })
	fields := make([]value.Value, len(sortedFields))
	for i, f := range sortedFields {
		fields[i] = value.NewMap([]value.MapEntry{
			{Key: value.Text("name"), Value: value.Text(f.Name)},
			{Key: value.Text("type"), Value: value.Uint(uint64(f.Type))},
			{Key: value.Text("nullable"), Value: value.Bool(f.Nullable)},
		})
	}
	sortedIndexes := append([]IndexModel(nil), e.Indexes...)
	sort.Slice(sortedIndexes, func(i, j int) bool { return sortedIndexes[i].Name < sortedIndexes[j].Name })
	indexes := make([]value.Value, len(sortedIndexes))
	for i, idx := range sortedIndexes {
		fieldList := make([]value.Value, len(idx.Fields))
		for j, fname := range idx.Fields {
			fieldList[j] = value.Text(fname)
		}
		indexes[i] = value.NewMap([]value.MapEntry{
			{Key: value.Text("name"), Value: value.Text(idx.Name)},
			{Key: value.Text("fields"), Value: value.List(fieldList)},
			{Key: value.Text("unique"), Value: value.Bool(idx.Unique)},
			{Key: value.Text("system"), Value: value.Bool(idx.System)},
		})
	}
	shape := value.NewMap([]value.MapEntry{
		{Key: value.Text("path"), Value: value.Text(e.Path)},
		{Key: value.Text("primary_key"), Value: value.Text(e.PrimaryKey)},
		{Key: value.Text("fields"), Value: value.List(fields)},
		{Key: value.Text("indexes"), Value: value.List(indexes)},
	})
	return value.HashValue(shape)
}
