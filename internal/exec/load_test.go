package exec

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icydb/internal/errs"
	"icydb/internal/plan"
	"icydb/internal/predicate"
	"icydb/internal/store"
	"icydb/internal/value"
)

// widgetCodec is a minimal fixture RowCodec for tests: rows are
// [8-byte BE id][1-byte owner length][owner bytes].
type widgetCodec struct{}

func encodeWidgetRow(id uint64, owner string) []byte {
	row := make([]byte, 8+1+len(owner))
	binary.BigEndian.PutUint64(row[:8], id)
	row[8] = byte(len(owner))
	copy(row[9:], owner)
	return row
}

func (widgetCodec) Field(row []byte, field string) (value.Value, bool, error) {
	switch field {
	case "id":
		return value.Uint(binary.BigEndian.Uint64(row[:8])), true, nil
	case "owner":
		n := int(row[8])
		return value.Text(string(row[9 : 9+n])), true, nil
	default:
		return value.Value{}, false, nil
	}
}

func newLoadEngine(t *testing.T) (*Engine, *EntityBinding) {
	t.Helper()
	registry := store.NewInProcessRegistry()
	b := widgetBinding(t, registry)
	b.Codec = widgetCodec{}
	e := NewEngine(registry, nil, nil)
	e.RegisterEntity(b)
	return e, b
}

func seedWidgets(t *testing.T, e *Engine, b *EntityBinding, rows map[uint64]string) {
	t.Helper()
	for id, owner := range rows {
		raw, err := b.encodeDataKeyRaw(value.Uint(id))
		require.NoError(t, err)
		e.registry.DataStore(b.DataStoreID).Map.Insert(raw, encodeWidgetRow(id, owner))
	}
}

func TestLoadByKeyReturnsRow(t *testing.T) {
	e, b := newLoadEngine(t)
	seedWidgets(t, e, b, map[uint64]string{1: "alice"})

	lp := plan.LogicalPlan{
		Mode:   plan.ModeLoad,
		Access: plan.Path(plan.ByKey(value.Uint(1))),
		Order:  []plan.OrderField{{Field: "id", Direction: plan.Ascending}},
	}
	res, err := e.Load("widgets", lp, nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, encodeWidgetRow(1, "alice"), res.Rows[0])
}

func TestLoadStrictConsistencyNotFoundWhenMissing(t *testing.T) {
	e, _ := newLoadEngine(t)

	lp := plan.LogicalPlan{
		Mode:        plan.ModeLoad,
		Access:      plan.Path(plan.ByKey(value.Uint(99))),
		Order:       []plan.OrderField{{Field: "id", Direction: plan.Ascending}},
		Consistency: plan.ConsistencyStrict,
	}
	_, err := e.Load("widgets", lp, nil)
	require.Error(t, err)
	var appErr *errs.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errs.NotFound, appErr.Class)
}

func TestLoadMissingOkSkipsMissing(t *testing.T) {
	e, _ := newLoadEngine(t)

	lp := plan.LogicalPlan{
		Mode:        plan.ModeLoad,
		Access:      plan.Path(plan.ByKey(value.Uint(99))),
		Order:       []plan.OrderField{{Field: "id", Direction: plan.Ascending}},
		Consistency: plan.ConsistencyMissingOk,
	}
	res, err := e.Load("widgets", lp, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}

func TestLoadFullScanOrdersAndPaginates(t *testing.T) {
	e, b := newLoadEngine(t)
	seedWidgets(t, e, b, map[uint64]string{3: "carl", 1: "alice", 2: "bob"})

	limit := uint64(2)
	lp := plan.LogicalPlan{
		Mode:   plan.ModeLoad,
		Access: plan.Path(plan.FullScan()),
		Order:  []plan.OrderField{{Field: "id", Direction: plan.Ascending}},
		Page:   &plan.Page{Limit: &limit},
	}
	res, err := e.Load("widgets", lp, nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.True(t, res.HasMore)
	assert.NotNil(t, res.Continuation)

	id0, _, _ := widgetCodec{}.Field(res.Rows[0], "id")
	id1, _, _ := widgetCodec{}.Field(res.Rows[1], "id")
	assert.Equal(t, uint64(1), id0.Uint)
	assert.Equal(t, uint64(2), id1.Uint)
}

func TestLoadResumesFromContinuationToken(t *testing.T) {
	e, b := newLoadEngine(t)
	seedWidgets(t, e, b, map[uint64]string{1: "alice", 2: "bob", 3: "carl"})

	limit := uint64(2)
	lp := plan.LogicalPlan{
		Mode:   plan.ModeLoad,
		Access: plan.Path(plan.FullScan()),
		Order:  []plan.OrderField{{Field: "id", Direction: plan.Ascending}},
		Page:   &plan.Page{Limit: &limit},
	}
	first, err := e.Load("widgets", lp, nil)
	require.NoError(t, err)
	require.True(t, first.HasMore)
	require.NotNil(t, first.Continuation)

	second, err := e.Load("widgets", lp, first.Continuation)
	require.NoError(t, err)
	require.Len(t, second.Rows, 1)
	id, _, _ := widgetCodec{}.Field(second.Rows[0], "id")
	assert.Equal(t, uint64(3), id.Uint)
	assert.False(t, second.HasMore)
}

func TestLoadDistinctDedupsFullRowEquality(t *testing.T) {
	e, b := newLoadEngine(t)
	seedWidgets(t, e, b, map[uint64]string{1: "alice", 2: "alice"})

	lp := plan.LogicalPlan{
		Mode:     plan.ModeLoad,
		Access:   plan.Path(plan.FullScan()),
		Order:    []plan.OrderField{{Field: "id", Direction: plan.Ascending}},
		Distinct: true,
	}
	res, err := e.Load("widgets", lp, nil)
	require.NoError(t, err)
	// Rows differ by id, so full-row equality never collapses them.
	assert.Len(t, res.Rows, 2)
}

func TestLoadResidualPredicateFiltersRows(t *testing.T) {
	e, b := newLoadEngine(t)
	seedWidgets(t, e, b, map[uint64]string{1: "alice", 2: "bob"})

	lp := plan.LogicalPlan{
		Mode:      plan.ModeLoad,
		Access:    plan.Path(plan.FullScan()),
		Order:     []plan.OrderField{{Field: "id", Direction: plan.Ascending}},
		Predicate: predicate.Compare("owner", predicate.Eq, value.CoercionStrict, value.Text("bob")),
	}
	res, err := e.Load("widgets", lp, nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	owner, _, _ := widgetCodec{}.Field(res.Rows[0], "owner")
	assert.Equal(t, "bob", owner.Text)
}
