// Package schema is the single source of truth for an entity's shape:
// its fields, their value types, its primary key, and the indexes
// declared over it. The planner, predicate validator, and index codec
// all read from it rather than rediscovering structure ad hoc.
package schema

import (
	"fmt"

	"icydb/internal/value"
)

// FieldModel describes one field of an entity.
type FieldModel struct {
	Name     string
	Type     value.Kind
	Nullable bool
}

// IndexModel describes one secondary index over an entity. Fields lists
// the component order; the primary key is implicitly appended last by
// the key codec and must not also appear explicitly here.
type IndexModel struct {
	Name   string
	Fields []string
	Unique bool
	System bool
}

// EntityModel is the static description of one entity: its path, primary
// key field, fields, and indexes.
type EntityModel struct {
	Path       string
	PrimaryKey string
	Fields     []FieldModel
	Indexes    []IndexModel
}

// FindField looks for a field by name inside an entity.
func (e *EntityModel) FindField(name string) *FieldModel {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			return &e.Fields[i]
		}
	}
	return nil
}

// FindIndex looks for an index by name inside an entity.
func (e *EntityModel) FindIndex(name string) *IndexModel {
	for i := range e.Indexes {
		if e.Indexes[i].Name == name {
			return &e.Indexes[i]
		}
	}
	return nil
}

func (e *EntityModel) String() string {
	return fmt.Sprintf("EntityModel: %s (%d fields, %d indexes)", e.Path, len(e.Fields), len(e.Indexes))
}

// indexableKinds lists the value.Kind variants that the key codec can
// turn into an ordered component (value.EncodeComponent), i.e. scalar,
// comparable kinds suitable for a primary key or index field.
var indexableKinds = map[value.Kind]bool{
	value.KindBool:       true,
	value.KindUint:       true,
	value.KindInt:        true,
	value.KindUint128:    true,
	value.KindInt128:     true,
	value.KindUintBig:    true,
	value.KindIntBig:     true,
	value.KindFloat32:    true,
	value.KindFloat64:    true,
	value.KindDecimal:    true,
	value.KindText:       true,
	value.KindBlob:       true,
	value.KindPrincipal:  true,
	value.KindAccount:    true,
	value.KindSubaccount: true,
	value.KindUlid:       true,
	value.KindDate:       true,
	value.KindTimestamp:  true,
	value.KindDuration:   true,
	value.KindEnum:       true,
}

// IsIndexable reports whether k can be used as a primary key or index
// component. KindList and KindMap have no stable total order and are
// excluded (spec §4.3/§4.4: "do not introduce ... ordering for container
// types").
func IsIndexable(k value.Kind) bool {
	return indexableKinds[k]
}
