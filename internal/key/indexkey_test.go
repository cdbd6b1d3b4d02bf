package key

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndexID(b byte) IndexID {
	var id IndexID
	id[0] = b
	return id
}

func TestIndexKeyRoundTrip(t *testing.T) {
	k := IndexKey{
		Kind:       KindUser,
		Index:      testIndexID(7),
		Components: [][]byte{[]byte("alice"), {0, 0, 0, 1}},
	}
	raw, err := k.ToRaw()
	require.NoError(t, err)

	got, err := FromRaw(raw)
	require.NoError(t, err)
	assert.Equal(t, k, got)
}

func TestIndexKeyShorterPrefixSortsBeforeLongerKey(t *testing.T) {
	prefix := IndexKey{Kind: KindUser, Index: testIndexID(1), Components: [][]byte{[]byte("alice")}}
	longer := IndexKey{Kind: KindUser, Index: testIndexID(1), Components: [][]byte{[]byte("alice"), []byte("x")}}
	assert.True(t, Compare(prefix, longer) < 0)
}

func TestIndexKeyUserSortsBeforeSystemForSameIndex(t *testing.T) {
	user := IndexKey{Kind: KindUser, Index: testIndexID(3), Components: [][]byte{[]byte("z")}}
	system := IndexKey{Kind: KindSystem, Index: testIndexID(3), Components: [][]byte{[]byte("a")}}
	assert.True(t, Compare(user, system) < 0)
}

func TestIndexKeyTooManyComponentsRejected(t *testing.T) {
	comps := make([][]byte, MaxIndexFields+1)
	for i := range comps {
		comps[i] = []byte{byte(i)}
	}
	k := IndexKey{Kind: KindUser, Index: testIndexID(0), Components: comps}
	_, err := k.ToRaw()
	require.Error(t, err)
}

func TestIndexKeyFromRawRejectsTruncatedEnvelope(t *testing.T) {
	_, err := FromRaw([]byte{0, 1, 2})
	require.Error(t, err)
}

func TestIndexKeyFromRawRejectsTruncatedComponent(t *testing.T) {
	k := IndexKey{Kind: KindUser, Index: testIndexID(1), Components: [][]byte{[]byte("hello")}}
	raw, err := k.ToRaw()
	require.NoError(t, err)
	truncated := raw[:len(raw)-2]
	_, err = FromRaw(truncated)
	require.Error(t, err)
}

func TestIndexKeyFromRawRejectsTrailingBytes(t *testing.T) {
	k := IndexKey{Kind: KindUser, Index: testIndexID(1), Components: [][]byte{[]byte("hi")}}
	raw, err := k.ToRaw()
	require.NoError(t, err)
	raw = append(raw, 0xAB)
	_, err = FromRaw(raw)
	require.Error(t, err)
}

func TestIndexKeyComponentOrderMatchesByteOrder(t *testing.T) {
	a := IndexKey{Kind: KindUser, Index: testIndexID(5), Components: [][]byte{[]byte("a")}}
	b := IndexKey{Kind: KindUser, Index: testIndexID(5), Components: [][]byte{[]byte("b")}}
	rawA, _ := a.ToRaw()
	rawB, _ := b.ToRaw()
	assert.True(t, bytes.Compare(rawA, rawB) < 0)
	assert.True(t, Compare(a, b) < 0)
}
