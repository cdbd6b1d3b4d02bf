package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keys(bs ...byte) [][]byte {
	out := make([][]byte, len(bs))
	for i, b := range bs {
		out[i] = []byte{b}
	}
	return out
}

func drain(s OrderedKeyStream) [][]byte {
	var out [][]byte
	for {
		k, ok := s.Next()
		if !ok {
			break
		}
		out = append(out, append([]byte(nil), k...))
	}
	return out
}

func TestVecStreamYieldsInOrderWithExactHint(t *testing.T) {
	s := NewVecOrderedKeyStream(keys(1, 2, 3), Ascending)
	hint, ok := s.ExactHint()
	require.True(t, ok)
	assert.Equal(t, uint64(3), hint)
	assert.Equal(t, keys(1, 2, 3), drain(s))
}

func TestMergeDedupesAndOrders(t *testing.T) {
	left := NewVecOrderedKeyStream(keys(1, 3, 5), Ascending)
	right := NewVecOrderedKeyStream(keys(2, 3, 4), Ascending)
	m, err := NewMergeOrderedKeyStream(left, right, Ascending)
	require.NoError(t, err)
	assert.Equal(t, keys(1, 2, 3, 4, 5), drain(m))
}

func TestMergeRejectsMismatchedDirection(t *testing.T) {
	left := NewVecOrderedKeyStream(keys(1), Ascending)
	right := NewVecOrderedKeyStream(keys(1), Descending)
	_, err := NewMergeOrderedKeyStream(left, right, Ascending)
	require.Error(t, err)
}

func TestIntersectKeepsSharedKeysOnly(t *testing.T) {
	left := NewVecOrderedKeyStream(keys(1, 2, 3, 4), Ascending)
	right := NewVecOrderedKeyStream(keys(2, 4, 6), Ascending)
	in, err := NewIntersectOrderedKeyStream(left, right, Ascending)
	require.NoError(t, err)
	assert.Equal(t, keys(2, 4), drain(in))
}

func TestBudgetedStopsAtBudget(t *testing.T) {
	inner := NewVecOrderedKeyStream(keys(1, 2, 3, 4, 5), Ascending)
	b := NewBudgetedOrderedKeyStream(inner, 2)
	assert.Equal(t, keys(1, 2), drain(b))
}

func TestBudgetedExactHintIsMinOfInnerAndBudget(t *testing.T) {
	inner := NewVecOrderedKeyStream(keys(1, 2, 3), Ascending)
	b := NewBudgetedOrderedKeyStream(inner, 10)
	hint, ok := b.ExactHint()
	require.True(t, ok)
	assert.Equal(t, uint64(3), hint)
}

func TestMergeDescendingOrder(t *testing.T) {
	left := NewVecOrderedKeyStream(keys(5, 3, 1), Descending)
	right := NewVecOrderedKeyStream(keys(4, 2), Descending)
	m, err := NewMergeOrderedKeyStream(left, right, Descending)
	require.NoError(t, err)
	assert.Equal(t, keys(5, 4, 3, 2, 1), drain(m))
}
