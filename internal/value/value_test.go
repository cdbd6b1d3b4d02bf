package value

import (
	"bytes"
	"math/big"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalCmpTotalOrderAndEncodingAgree(t *testing.T) {
	vals := []Value{
		Int(-100), Int(-1), Int(0), Int(1), Int(100),
		Uint(0), Uint(1), Uint(1000),
		Text("a"), Text("ab"), Text("b"), Text(""),
		Float64V(-1.5), Float64V(0), Float64V(1.5), Float64V(2),
	}
	for i := range vals {
		for j := range vals {
			if vals[i].Kind != vals[j].Kind {
				continue
			}
			want := CanonicalCmp(vals[i], vals[j])
			bi, err := EncodeComponent(vals[i], CoercionStrict)
			require.NoError(t, err)
			bj, err := EncodeComponent(vals[j], CoercionStrict)
			require.NoError(t, err)
			got := bytes.Compare(bi, bj)
			assert.Equalf(t, sign(want), sign(got), "cmp(%v,%v)=%d but bytes.Compare=%d", vals[i], vals[j], want, got)
		}
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

func TestEncodeComponentOrderMatchesLogicalOrderRandomized(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	ints := make([]int64, 200)
	for i := range ints {
		ints[i] = int64(r.Int63()) - int64(r.Int63())
	}
	sort.Slice(ints, func(i, j int) bool { return ints[i] < ints[j] })

	var encoded [][]byte
	for _, v := range ints {
		b, err := EncodeComponent(Int(v), CoercionStrict)
		require.NoError(t, err)
		encoded = append(encoded, b)
	}
	for i := 1; i < len(encoded); i++ {
		assert.LessOrEqualf(t, bytes.Compare(encoded[i-1], encoded[i]), 0,
			"encoded[%d]=%x should sort <= encoded[%d]=%x (values %d, %d)", i-1, encoded[i-1], i, encoded[i], ints[i-1], ints[i])
	}
}

func TestDecimalNormalizationEquality(t *testing.T) {
	a := NewDecimal(1, 2, big.NewInt(150)) // 1.50
	b := NewDecimal(1, 1, big.NewInt(15))  // 1.5
	assert.True(t, Equal(a, b))
	assert.Equal(t, HashValue(a), HashValue(b))

	ea, err := EncodeComponent(a, CoercionStrict)
	require.NoError(t, err)
	eb, err := EncodeComponent(b, CoercionStrict)
	require.NoError(t, err)
	assert.Equal(t, ea, eb)
}

func TestDecimalOrdering(t *testing.T) {
	one5 := NewDecimal(1, 1, big.NewInt(15))  // 1.5
	two := NewDecimal(1, 0, big.NewInt(2))    // 2
	negOne := NewDecimal(-1, 0, big.NewInt(1)) // -1
	zero := NewDecimal(1, 0, big.NewInt(0))

	assert.True(t, Less(negOne, zero))
	assert.True(t, Less(zero, one5))
	assert.True(t, Less(one5, two))

	e1, _ := EncodeComponent(negOne, CoercionStrict)
	e2, _ := EncodeComponent(zero, CoercionStrict)
	e3, _ := EncodeComponent(one5, CoercionStrict)
	e4, _ := EncodeComponent(two, CoercionStrict)
	assert.True(t, bytes.Compare(e1, e2) < 0)
	assert.True(t, bytes.Compare(e2, e3) < 0)
	assert.True(t, bytes.Compare(e3, e4) < 0)
}

func TestHashValueDeterministicAndOrderIndependentForMaps(t *testing.T) {
	m1 := NewMap([]MapEntry{
		{Key: Text("a"), Value: Int(1)},
		{Key: Text("b"), Value: Int(2)},
	})
	m2 := NewMap([]MapEntry{
		{Key: Text("b"), Value: Int(2)},
		{Key: Text("a"), Value: Int(1)},
	})
	assert.Equal(t, HashValue(m1), HashValue(m2))
	assert.True(t, Equal(m1, m2))
}

func TestHashValueDiffersForDifferentValues(t *testing.T) {
	assert.NotEqual(t, HashValue(Int(1)), HashValue(Int(2)))
	assert.NotEqual(t, HashValue(Text("a")), HashValue(Uint(97)))
}

func TestEnumPathNotInOrderingOrHashing(t *testing.T) {
	p1 := "path.one"
	p2 := "path.two"
	e1 := Enum(&p1, "Variant", nil)
	e2 := Enum(&p2, "Variant", nil)
	assert.True(t, Equal(e1, e2))
	assert.Equal(t, HashValue(e1), HashValue(e2))
}

func TestFloatOrderingAcrossSign(t *testing.T) {
	vals := []Value{Float64V(-100), Float64V(-0.5), Float64V(0), Float64V(0.5), Float64V(100)}
	for i := 1; i < len(vals); i++ {
		assert.True(t, Less(vals[i-1], vals[i]))
		a, _ := EncodeComponent(vals[i-1], CoercionStrict)
		b, _ := EncodeComponent(vals[i], CoercionStrict)
		assert.True(t, bytes.Compare(a, b) < 0)
	}
}

func TestTextCasefoldCoercion(t *testing.T) {
	upper, err := EncodeComponent(Text("Hello"), CoercionTextCasefold)
	require.NoError(t, err)
	lower, err := EncodeComponent(Text("hello"), CoercionTextCasefold)
	require.NoError(t, err)
	assert.Equal(t, lower, upper)

	strict, err := EncodeComponent(Text("Hello"), CoercionStrict)
	require.NoError(t, err)
	assert.NotEqual(t, strict, lower)
}
