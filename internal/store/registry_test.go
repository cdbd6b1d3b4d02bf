package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInProcessRegistryLazilyAllocatesAndCaches(t *testing.T) {
	r := NewInProcessRegistry()
	d1 := r.DataStore("accounts")
	d2 := r.DataStore("accounts")
	assert.Same(t, d1, d2)

	d3 := r.DataStore("ledger")
	assert.NotSame(t, d1, d3)

	ix1 := r.IndexStore("accounts.by_owner")
	ix2 := r.IndexStore("accounts.by_owner")
	assert.Same(t, ix1, ix2)
}

func TestCommitCellSetClearGet(t *testing.T) {
	c := &CommitCell{}
	_, present, err := c.Get()
	require.NoError(t, err)
	assert.False(t, present)

	c.Set([]byte{1, 2, 3})
	b, present, err := c.Get()
	require.NoError(t, err)
	assert.True(t, present)
	assert.Equal(t, []byte{1, 2, 3}, b)

	c.Clear()
	_, present, err = c.Get()
	require.NoError(t, err)
	assert.False(t, present)
}

func TestInProcessRegistryCommitCellIsolatedPerID(t *testing.T) {
	r := NewInProcessRegistry()
	a := r.CommitCell("accounts")
	b := r.CommitCell("ledger")
	a.Set([]byte{1})
	_, present, err := b.Get()
	require.NoError(t, err)
	assert.False(t, present)
	assert.Same(t, a, r.CommitCell("accounts"))
}
