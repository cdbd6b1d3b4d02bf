// Package plan implements the query planner: turning a normalized
// predicate over an entity model into a canonicalized AccessPlan, and
// validating the resulting LogicalPlan against the schema (spec §3.5,
// §4.5, §4.6).
package plan

import (
	"icydb/internal/predicate"
	"icydb/internal/value"
)

// AccessKind tags the AccessPath variant.
type AccessKind byte

const (
	AccessByKey AccessKind = iota
	AccessByKeys
	AccessKeyRange
	AccessIndexPrefix
	AccessIndexRange
	AccessFullScan
)

// RangeBound mirrors key.Bound at the Value level: the planner reasons
// about literal values, not yet encoded bytes (those are produced later
// by the executable-plan binding step in internal/exec).
type RangeBound struct {
	Included bool // ignored when Unbounded
	Unbounded bool
	Value    value.Value
}

func Unbounded() RangeBound         { return RangeBound{Unbounded: true} }
func Inclusive(v value.Value) RangeBound { return RangeBound{Included: true, Value: v} }
func Exclusive(v value.Value) RangeBound { return RangeBound{Included: false, Value: v} }

// AccessPath is one leaf access strategy (spec §3.5).
type AccessPath struct {
	Kind AccessKind

	// ByKey
	Key value.Value
	// ByKeys
	Keys []value.Value
	// KeyRange
	Start, End RangeBound

	// IndexPrefix / IndexRange
	IndexName   string
	PrefixVals  []value.Value
	RangeField  string
	RangeLower  RangeBound
	RangeUpper  RangeBound
}

func ByKey(k value.Value) AccessPath { return AccessPath{Kind: AccessByKey, Key: k} }
func ByKeys(ks []value.Value) AccessPath {
	return AccessPath{Kind: AccessByKeys, Keys: ks}
}
func KeyRange(start, end RangeBound) AccessPath {
	return AccessPath{Kind: AccessKeyRange, Start: start, End: end}
}
func IndexPrefix(indexName string, vals []value.Value) AccessPath {
	return AccessPath{Kind: AccessIndexPrefix, IndexName: indexName, PrefixVals: vals}
}
func IndexRange(indexName string, prefixVals []value.Value, field string, lower, upper RangeBound) AccessPath {
	return AccessPath{Kind: AccessIndexRange, IndexName: indexName, PrefixVals: prefixVals, RangeField: field, RangeLower: lower, RangeUpper: upper}
}
func FullScan() AccessPath { return AccessPath{Kind: AccessFullScan} }

// CompositeKind tags an AccessPlan composite node.
type CompositeKind byte

const (
	CompositePath CompositeKind = iota
	CompositeUnion
	CompositeIntersection
)

// AccessPlan is either a single AccessPath (Path) or a boolean composite
// of child AccessPlans (Union/Intersection) (spec §3.5).
type AccessPlan struct {
	Kind     CompositeKind
	Path     AccessPath
	Children []AccessPlan
}

func Path(p AccessPath) AccessPlan { return AccessPlan{Kind: CompositePath, Path: p} }
func Union(children ...AccessPlan) AccessPlan {
	return AccessPlan{Kind: CompositeUnion, Children: children}
}
func Intersection(children ...AccessPlan) AccessPlan {
	return AccessPlan{Kind: CompositeIntersection, Children: children}
}

// Mode tags whether a LogicalPlan will read or delete.
type Mode byte

const (
	ModeLoad Mode = iota
	ModeDelete
)

// Consistency tags the read-consistency requested for a Load (spec §4.10).
type Consistency byte

const (
	ConsistencyStrict Consistency = iota
	ConsistencyMissingOk
)

// OrderDirection is the logical traversal direction for one order field.
type OrderDirection byte

const (
	Ascending OrderDirection = iota
	Descending
)

// OrderField is one field in a canonical order spec.
type OrderField struct {
	Field     string
	Direction OrderDirection
}

// Page describes an offset/limit pagination window.
type Page struct {
	Offset uint64
	Limit  *uint64
}

// LogicalPlan is the top-level planned query (spec §3.5).
type LogicalPlan struct {
	Mode        Mode
	Access      AccessPlan
	Predicate   predicate.Predicate
	Order       []OrderField
	Distinct    bool
	Page        *Page
	DeleteLimit *uint64
	Consistency Consistency
}
