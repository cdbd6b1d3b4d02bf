package key

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataKeyRoundTrip(t *testing.T) {
	k := DataKey{Entity: "accounts", Storage: []byte{0, 0, 0, 0, 0, 0, 0, 42}}
	raw, err := k.ToRaw()
	require.NoError(t, err)
	assert.Len(t, raw, entityNameWidth+8)

	got, err := FromRaw(raw, 8)
	require.NoError(t, err)
	assert.Equal(t, k, got)
}

func TestDataKeyEntityNameTooLong(t *testing.T) {
	k := DataKey{Entity: "this-entity-name-is-way-too-long", Storage: []byte{1}}
	_, err := k.ToRaw()
	require.Error(t, err)
}

func TestDataKeyCompareMatchesStorageOrder(t *testing.T) {
	a := DataKey{Entity: "accounts", Storage: []byte{0, 1}}
	b := DataKey{Entity: "accounts", Storage: []byte{0, 2}}
	assert.True(t, Compare(a, b) < 0)
	assert.True(t, Compare(b, a) > 0)
	assert.Equal(t, 0, Compare(a, a))
}

func TestDataKeyCompareOrdersByEntityFirst(t *testing.T) {
	a := DataKey{Entity: "accounts", Storage: []byte{0x00}}
	b := DataKey{Entity: "ledger", Storage: []byte{0xFF}}
	assert.True(t, Compare(a, b) > 0, "the name's length byte leads: ledger (6) sorts before accounts (8) regardless of storage bytes")
}

func TestDataKeyFromRawRejectsWrongWidth(t *testing.T) {
	k := DataKey{Entity: "accounts", Storage: []byte{1, 2, 3, 4}}
	raw, err := k.ToRaw()
	require.NoError(t, err)
	_, err = FromRaw(raw, 8)
	require.Error(t, err)
}

func TestEncodeEntityNamePadsToFixedWidth(t *testing.T) {
	raw, err := EncodeEntityName("x")
	require.NoError(t, err)
	assert.Len(t, raw, entityNameWidth)
	assert.True(t, bytes.HasPrefix(raw, []byte{1, 'x'}))

	name, err := DecodeEntityName(raw)
	require.NoError(t, err)
	assert.Equal(t, "x", name)
}
