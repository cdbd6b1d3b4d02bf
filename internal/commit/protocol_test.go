package commit

import (
	"testing"

	"icydb/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHooks derives one index op that mirrors the row's after-state
// presence: inserts the data key into an index on put, removes it on
// delete.
type fakeHooks struct {
	indexStoreID store.MemoryID
	dataStoreID  store.MemoryID
	dataKey      []byte
}

func (h fakeHooks) DeriveOps(before, after []byte) ([]IndexOp, DataOp, error) {
	var idxOp IndexOp
	if after != nil {
		idxOp = IndexOp{Kind: IndexInsert, StoreID: h.indexStoreID, RawKey: h.dataKey}
	} else {
		idxOp = IndexOp{Kind: IndexRemove, StoreID: h.indexStoreID, RawKey: h.dataKey}
	}
	dataOp := DataOp{StoreID: h.dataStoreID, RawKey: h.dataKey, Row: after, Remove: after == nil}
	return []IndexOp{idxOp}, dataOp, nil
}

func newTestEngine() (*Engine, *store.InProcessRegistry, *HookRegistry) {
	registry := store.NewInProcessRegistry()
	hooks := NewHookRegistry()
	hooks.Register("accounts", fakeHooks{indexStoreID: "accounts.by_owner", dataStoreID: "accounts.data", dataKey: []byte{1, 2, 3}})
	engine := NewEngine(registry, hooks, "accounts.commit")
	return engine, registry, hooks
}

func TestCommitBatchAppliesIndexAndDataOpsAndClearsMarker(t *testing.T) {
	engine, registry, _ := newTestEngine()

	rowOp, indexOps, dataOp, err := engine.PrepareRowCommit("accounts", []byte{1, 2, 3}, nil, []byte("row"), [16]byte{1})
	require.NoError(t, err)

	err = engine.CommitBatch(PreparedBatch{
		RowOps:   []CommitRowOp{rowOp},
		IndexOps: [][]IndexOp{indexOps},
		DataOps:  []DataOp{dataOp},
	})
	require.NoError(t, err)

	v, ok := registry.DataStore("accounts.data").Get([]byte{1, 2, 3})
	require.True(t, ok)
	assert.Equal(t, []byte("row"), v)
	assert.True(t, registry.IndexStore("accounts.by_owner").Has([]byte{1, 2, 3}))

	_, present, err := registry.CommitCell("accounts.commit").Get()
	require.NoError(t, err)
	assert.False(t, present)
}

func TestBeginCommitRejectsPreexistingMarker(t *testing.T) {
	engine, registry, _ := newTestEngine()
	registry.CommitCell("accounts.commit").Set([]byte{1})

	err := engine.BeginCommit(CommitMarker{ID: [16]byte{2}})
	require.Error(t, err)
}

func TestEnsureRecoveredReplaysMarkerAndClearsIt(t *testing.T) {
	engine, registry, _ := newTestEngine()

	rowOp, _, _, err := engine.PrepareRowCommit("accounts", []byte{1, 2, 3}, nil, []byte("recovered-row"), [16]byte{1})
	require.NoError(t, err)
	marker := CommitMarker{ID: [16]byte{9}, RowOps: []CommitRowOp{rowOp}}
	encoded, err := marker.Encode()
	require.NoError(t, err)
	registry.CommitCell("accounts.commit").Set(encoded)

	require.NoError(t, engine.EnsureRecovered())

	v, ok := registry.DataStore("accounts.data").Get([]byte{1, 2, 3})
	require.True(t, ok)
	assert.Equal(t, []byte("recovered-row"), v)

	_, present, err := registry.CommitCell("accounts.commit").Get()
	require.NoError(t, err)
	assert.False(t, present)
}

func TestEnsureRecoveredIsNoOpWhenNoMarker(t *testing.T) {
	engine, _, _ := newTestEngine()
	require.NoError(t, engine.EnsureRecovered())
	require.NoError(t, engine.EnsureRecovered())
}

func TestPrepareRowCommitFailsForUnknownEntity(t *testing.T) {
	engine, _, _ := newTestEngine()
	_, _, _, err := engine.PrepareRowCommit("unknown", []byte{1}, nil, []byte("x"), [16]byte{1})
	require.Error(t, err)
}
