package predicate

import (
	"testing"

	"icydb/internal/value"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(row map[string]value.Value) FieldLookup {
	return func(field string) (value.Value, bool) {
		v, ok := row[field]
		return v, ok
	}
}

func TestEvaluateCompareEq(t *testing.T) {
	p := Compare("status", Eq, value.CoercionStrict, value.Text("active"))
	ok, err := Evaluate(p, lookupFrom(map[string]value.Value{"status": value.Text("active")}))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate(p, lookupFrom(map[string]value.Value{"status": value.Text("closed")}))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateMissingFieldIsFalse(t *testing.T) {
	p := Compare("status", Eq, value.CoercionStrict, value.Text("active"))
	ok, err := Evaluate(p, lookupFrom(map[string]value.Value{}))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateAndOrNot(t *testing.T) {
	row := lookupFrom(map[string]value.Value{"a": value.Uint(1), "b": value.Uint(2)})
	and := And(
		Compare("a", Eq, value.CoercionStrict, value.Uint(1)),
		Compare("b", Eq, value.CoercionStrict, value.Uint(2)),
	)
	ok, err := Evaluate(and, row)
	require.NoError(t, err)
	assert.True(t, ok)

	not := Not(Compare("a", Eq, value.CoercionStrict, value.Uint(9)))
	ok, err = Evaluate(not, row)
	require.NoError(t, err)
	assert.True(t, ok)

	or := Or(
		Compare("a", Eq, value.CoercionStrict, value.Uint(9)),
		Compare("b", Eq, value.CoercionStrict, value.Uint(2)),
	)
	ok, err = Evaluate(or, row)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateRangeOps(t *testing.T) {
	row := lookupFrom(map[string]value.Value{"amount": value.Uint(50)})
	ok, err := Evaluate(Compare("amount", Gte, value.CoercionStrict, value.Uint(50)), row)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate(Compare("amount", Lt, value.CoercionStrict, value.Uint(50)), row)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateTextContainsCaseInsensitive(t *testing.T) {
	row := lookupFrom(map[string]value.Value{"name": value.Text("Checking Account")})
	ok, err := Evaluate(TextContainsCi("name", value.Text("checking")), row)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateCompareStartsWith(t *testing.T) {
	row := lookupFrom(map[string]value.Value{"name": value.Text("Checking Account")})
	ok, err := Evaluate(Compare("name", StartsWith, value.CoercionStrict, value.Text("Checking")), row)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateIsEmptyAndIsMissing(t *testing.T) {
	row := lookupFrom(map[string]value.Value{"tags": value.List(nil)})
	ok, err := Evaluate(IsEmpty("tags"), row)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate(IsMissing("ghost"), row)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateInAndNotIn(t *testing.T) {
	row := lookupFrom(map[string]value.Value{"status": value.Text("pending")})
	in := CompareIn("status", In, value.CoercionStrict, []value.Value{value.Text("pending"), value.Text("active")})
	ok, err := Evaluate(in, row)
	require.NoError(t, err)
	assert.True(t, ok)

	notIn := CompareIn("status", NotIn, value.CoercionStrict, []value.Value{value.Text("closed")})
	ok, err = Evaluate(notIn, row)
	require.NoError(t, err)
	assert.True(t, ok)
}
