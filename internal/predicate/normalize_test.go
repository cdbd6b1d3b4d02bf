package predicate

import (
	"testing"

	"icydb/internal/value"

	"github.com/stretchr/testify/assert"
)

func eqP(field string, v value.Value) Predicate {
	return Compare(field, Eq, value.CoercionStrict, v)
}

func TestNormalizeFlattensNestedAnd(t *testing.T) {
	p := And(eqP("a", value.Uint(1)), And(eqP("b", value.Uint(2)), eqP("c", value.Uint(3))))
	got := Normalize(p)
	require := assert.New(t)
	require.Equal(KindAnd, got.Kind)
	require.Len(got.Children, 3)
}

func TestNormalizeCollapsesDoubleNot(t *testing.T) {
	p := Not(Not(eqP("a", value.Uint(1))))
	got := Normalize(p)
	assert.Equal(t, KindCompare, got.Kind)
}

func TestNormalizeEmptyAndBecomesTrue(t *testing.T) {
	got := Normalize(And())
	assert.Equal(t, KindTrue, got.Kind)
}

func TestNormalizeEmptyOrBecomesFalse(t *testing.T) {
	got := Normalize(Or())
	assert.Equal(t, KindFalse, got.Kind)
}

func TestNormalizeSingletonAndUnwraps(t *testing.T) {
	got := Normalize(And(eqP("a", value.Uint(1))))
	assert.Equal(t, KindCompare, got.Kind)
}

func TestNormalizeDedupesIdenticalChildren(t *testing.T) {
	p := And(eqP("a", value.Uint(1)), eqP("a", value.Uint(1)), eqP("b", value.Uint(2)))
	got := Normalize(p)
	assert.Len(t, got.Children, 2)
}

func TestNormalizeIsOrderIndependent(t *testing.T) {
	p1 := And(eqP("b", value.Uint(2)), eqP("a", value.Uint(1)))
	p2 := And(eqP("a", value.Uint(1)), eqP("b", value.Uint(2)))
	assert.Equal(t, Normalize(p1), Normalize(p2))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	p := Or(And(eqP("a", value.Uint(1)), eqP("b", value.Uint(2))), Not(Not(eqP("c", value.Uint(3)))))
	once := Normalize(p)
	twice := Normalize(once)
	assert.Equal(t, once, twice)
}
