package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataStoreRoundTrip(t *testing.T) {
	s := NewDataStore(NewBTreeMap())
	s.Insert([]byte("key1"), []byte("row-bytes"))
	v, ok := s.Get([]byte("key1"))
	require.True(t, ok)
	assert.Equal(t, []byte("row-bytes"), v)
	assert.True(t, s.Remove([]byte("key1")))
}

func TestIndexStoreHasInsertRemove(t *testing.T) {
	s := NewIndexStore(NewBTreeMap())
	assert.False(t, s.Has([]byte("idx1")))
	s.Insert([]byte("idx1"))
	assert.True(t, s.Has([]byte("idx1")))
	assert.True(t, s.Remove([]byte("idx1")))
	assert.False(t, s.Has([]byte("idx1")))
}

func TestIndexStoreGenerationTracksMutation(t *testing.T) {
	s := NewIndexStore(NewBTreeMap())
	g0 := s.Generation()
	s.Insert([]byte("idx1"))
	assert.Greater(t, s.Generation(), g0)
}
