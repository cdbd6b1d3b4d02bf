package key

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundsForPrefixIsolatesMatchingKeys(t *testing.T) {
	id := testIndexID(9)
	lower, upper := BoundsForPrefix(KindUser, id, [][]byte{[]byte("alice")})

	inside := []IndexKey{
		{Kind: KindUser, Index: id, Components: [][]byte{[]byte("alice")}},
		{Kind: KindUser, Index: id, Components: [][]byte{[]byte("alice"), []byte("x")}},
		{Kind: KindUser, Index: id, Components: [][]byte{[]byte("alice"), []byte("\xff\xff")}},
	}
	for _, k := range inside {
		raw, _ := k.ToRaw()
		assert.True(t, compareBytes(lower, raw) <= 0, "expected %x >= lower %x", raw, lower)
		assert.True(t, compareBytes(raw, upper) < 0, "expected %x < upper %x", raw, upper)
	}

	outside := []IndexKey{
		{Kind: KindUser, Index: id, Components: [][]byte{[]byte("alicf")}},
		{Kind: KindUser, Index: id, Components: [][]byte{[]byte("alic")}},
		{Kind: KindSystem, Index: id, Components: [][]byte{[]byte("alice")}},
	}
	for _, k := range outside {
		raw, _ := k.ToRaw()
		inRange := compareBytes(lower, raw) <= 0 && compareBytes(raw, upper) < 0
		assert.False(t, inRange, "expected %x to fall outside [%x, %x)", raw, lower, upper)
	}
}

func TestRawBoundsForIndexComponentRangeUnbounded(t *testing.T) {
	id := testIndexID(2)
	lower, upper := RawBoundsForIndexComponentRange(KindUser, id, nil, UnboundedBound(), UnboundedBound())
	pLower, pUpper := BoundsForPrefix(KindUser, id, nil)
	assert.Equal(t, pLower, lower)
	assert.Equal(t, pUpper, upper)
}

func TestRawBoundsForIndexComponentRangeIncludedExcluded(t *testing.T) {
	id := testIndexID(4)
	prefix := [][]byte{[]byte("org1")}

	lowerIncl, upperExcl := RawBoundsForIndexComponentRange(KindUser, id, prefix,
		IncludedBound([]byte{0, 0, 0, 5}), ExcludedBound([]byte{0, 0, 0, 10}))

	within := IndexKey{Kind: KindUser, Index: id, Components: [][]byte{[]byte("org1"), {0, 0, 0, 7}}}
	atLower := IndexKey{Kind: KindUser, Index: id, Components: [][]byte{[]byte("org1"), {0, 0, 0, 5}}}
	atUpperExcluded := IndexKey{Kind: KindUser, Index: id, Components: [][]byte{[]byte("org1"), {0, 0, 0, 10}}}
	belowLower := IndexKey{Kind: KindUser, Index: id, Components: [][]byte{[]byte("org1"), {0, 0, 0, 4}}}

	for _, tc := range []struct {
		k    IndexKey
		want bool
	}{
		{within, true},
		{atLower, true},
		{atUpperExcluded, false},
		{belowLower, false},
	} {
		raw, _ := tc.k.ToRaw()
		inRange := compareBytes(lowerIncl, raw) <= 0 && compareBytes(raw, upperExcl) < 0
		assert.Equal(t, tc.want, inRange, "key %v", tc.k)
	}
}

func TestEnvelopeIsEmpty(t *testing.T) {
	assert.True(t, EnvelopeIsEmpty([]byte{5}, []byte{5}))
	assert.True(t, EnvelopeIsEmpty([]byte{5}, []byte{4}))
	assert.False(t, EnvelopeIsEmpty([]byte{4}, []byte{5}))
	assert.False(t, EnvelopeIsEmpty(nil, []byte{5}))
}
