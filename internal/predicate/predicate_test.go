package predicate

import (
	"testing"

	"icydb/internal/value"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsStrictEqualityMatchesShape(t *testing.T) {
	p := Compare("id", Eq, value.CoercionStrict, value.Uint(7))
	lit, ok := p.IsStrictEquality("id")
	require.True(t, ok)
	assert.Equal(t, value.Uint(7), lit)
}

func TestIsStrictEqualityRejectsWrongField(t *testing.T) {
	p := Compare("id", Eq, value.CoercionStrict, value.Uint(7))
	_, ok := p.IsStrictEquality("owner")
	assert.False(t, ok)
}

func TestIsStrictEqualityRejectsNonStrictCoercion(t *testing.T) {
	p := Compare("id", Eq, value.CoercionNumericWiden, value.Uint(7))
	_, ok := p.IsStrictEquality("id")
	assert.False(t, ok)
}

func TestIsStrictEqualityRejectsWrongOp(t *testing.T) {
	p := Compare("id", Gt, value.CoercionStrict, value.Uint(7))
	_, ok := p.IsStrictEquality("id")
	assert.False(t, ok)
}
