package icydb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icydb/internal/config"
	"icydb/internal/predicate"
	"icydb/internal/store"
)

type widget struct {
	ID    uint64 `json:"id"`
	Owner string `json:"owner"`
	Qty   int64  `json:"qty"`
}

func newTestSession(t *testing.T) *DbSession {
	t.Helper()
	db := NewDb(config.DefaultEngineConfig(), store.NewInProcessRegistry())
	require.NoError(t, Register[widget](db, EntitySpec{
		Path:       "widgets",
		PrimaryKey: "id",
		Indexes: []IndexSpec{
			{Name: "by_owner", Fields: []string{"owner"}},
		},
	}))
	return db.Session()
}

func TestInsertThenLoadByKeyRoundTrips(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Insert(widget{ID: 1, Owner: "alice", Qty: 3}))

	q := Load[widget](s).Where("id", predicate.Eq, uint64(1))
	resp, err := ExecuteQuery(s, q)
	require.NoError(t, err)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "alice", resp.Rows[0].Owner)
}

func TestInsertRejectsDuplicatePrimaryKey(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Insert(widget{ID: 1, Owner: "alice"}))
	err := s.Insert(widget{ID: 1, Owner: "bob"})
	require.Error(t, err)
}

func TestInsertManyAtomicRejectsMixedTypes(t *testing.T) {
	s := newTestSession(t)
	err := s.InsertManyAtomic([]any{widget{ID: 1, Owner: "a"}, "not a widget"})
	require.Error(t, err)
}

func TestLoadFiltersByIndexedField(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.InsertManyAtomic([]any{
		widget{ID: 1, Owner: "alice", Qty: 1},
		widget{ID: 2, Owner: "bob", Qty: 2},
		widget{ID: 3, Owner: "alice", Qty: 3},
	}))

	q := Load[widget](s).Where("owner", predicate.Eq, "alice").OrderBy("id", false)
	resp, err := ExecuteQuery(s, q)
	require.NoError(t, err)
	require.Len(t, resp.Rows, 2)
	assert.Equal(t, uint64(1), resp.Rows[0].ID)
	assert.Equal(t, uint64(3), resp.Rows[1].ID)
}

func TestLoadPaginationReturnsContinuationToken(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.InsertManyAtomic([]any{
		widget{ID: 1, Owner: "a"},
		widget{ID: 2, Owner: "b"},
		widget{ID: 3, Owner: "c"},
	}))

	q := Load[widget](s).OrderBy("id", false).Limit(2)
	first, token, err := ExecuteLoadQueryPaged(s, q, nil)
	require.NoError(t, err)
	require.Len(t, first.Rows, 2)
	require.NotNil(t, token)

	q2 := Load[widget](s).OrderBy("id", false).Limit(2)
	second, _, err := ExecuteLoadQueryPaged(s, q2, token)
	require.NoError(t, err)
	require.Len(t, second.Rows, 1)
	assert.Equal(t, uint64(3), second.Rows[0].ID)
}

func TestDeleteRemovesMatchedRows(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Insert(widget{ID: 1, Owner: "alice"}))

	q := ForDelete[widget](s).Where("id", predicate.Eq, uint64(1))
	n, err := Delete(s, q)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	resp, err := ExecuteQuery(s, Load[widget](s).MissingOk())
	require.NoError(t, err)
	assert.Empty(t, resp.Rows)
}

func TestWhereRejectsUnknownField(t *testing.T) {
	s := newTestSession(t)
	q := Load[widget](s).Where("nonexistent", predicate.Eq, 1)
	_, err := ExecuteQuery(s, q)
	require.Error(t, err)
}
