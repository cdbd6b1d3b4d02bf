package plan

import (
	"testing"

	"icydb/internal/predicate"
	"icydb/internal/schema"
	"icydb/internal/value"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ordersModel() *schema.EntityModel {
	return &schema.EntityModel{
		Path:       "orders",
		PrimaryKey: "id",
		Fields: []schema.FieldModel{
			{Name: "id", Type: value.KindUint},
			{Name: "owner", Type: value.KindText},
			{Name: "status", Type: value.KindText},
			{Name: "amount", Type: value.KindUint},
		},
		Indexes: []schema.IndexModel{
			{Name: "by_owner", Fields: []string{"owner"}},
			{Name: "by_owner_status", Fields: []string{"owner", "status"}},
		},
	}
}

func TestPlanAccessNoPredicateIsFullScan(t *testing.T) {
	p := PlanAccess(ordersModel(), predicate.True())
	assert.Equal(t, AccessFullScan, p.Path.Kind)
}

func TestPlanAccessPKStrictEqIsByKey(t *testing.T) {
	pred := predicate.Compare("id", predicate.Eq, value.CoercionStrict, value.Uint(5))
	p := PlanAccess(ordersModel(), pred)
	require.Equal(t, CompositePath, p.Kind)
	assert.Equal(t, AccessByKey, p.Path.Kind)
}

func TestPlanAccessPKStrictInIsByKeys(t *testing.T) {
	pred := predicate.CompareIn("id", predicate.In, value.CoercionStrict, []value.Value{value.Uint(1), value.Uint(2)})
	p := PlanAccess(ordersModel(), pred)
	assert.Equal(t, AccessByKeys, p.Path.Kind)
}

func TestPlanAccessPKRangeIsKeyRange(t *testing.T) {
	pred := predicate.Compare("id", predicate.Gt, value.CoercionStrict, value.Uint(5))
	p := PlanAccess(ordersModel(), pred)
	assert.Equal(t, AccessKeyRange, p.Path.Kind)
}

func TestPlanAccessNonPKLeadingFieldIsIndexPrefix(t *testing.T) {
	pred := predicate.Compare("owner", predicate.Eq, value.CoercionStrict, value.Text("alice"))
	p := PlanAccess(ordersModel(), pred)
	// owner leads both by_owner and by_owner_status: one IndexPrefix per
	// matching index, in index-name order.
	require.Equal(t, CompositeUnion, p.Kind)
	require.Len(t, p.Children, 2)
	for _, c := range p.Children {
		require.Equal(t, CompositePath, c.Kind)
		assert.Equal(t, AccessIndexPrefix, c.Path.Kind)
	}
	assert.Equal(t, "by_owner", p.Children[0].Path.IndexName)
	assert.Equal(t, "by_owner_status", p.Children[1].Path.IndexName)
}

func TestPlanAccessAndOfEqualitiesUsesLongestPrefix(t *testing.T) {
	pred := predicate.Normalize(predicate.And(
		predicate.Compare("owner", predicate.Eq, value.CoercionStrict, value.Text("alice")),
		predicate.Compare("status", predicate.Eq, value.CoercionStrict, value.Text("open")),
	))
	p := PlanAccess(ordersModel(), pred)
	require.Equal(t, CompositePath, p.Kind)
	require.Equal(t, AccessIndexPrefix, p.Path.Kind)
	assert.Equal(t, "by_owner_status", p.Path.IndexName)
	assert.Len(t, p.Path.PrefixVals, 2)
}

func TestPlanAccessEqualityPlusRangeIsIndexRange(t *testing.T) {
	pred := predicate.Normalize(predicate.And(
		predicate.Compare("owner", predicate.Eq, value.CoercionStrict, value.Text("alice")),
		predicate.Compare("status", predicate.Gt, value.CoercionStrict, value.Text("m")),
	))
	p := PlanAccess(ordersModel(), pred)
	require.Equal(t, CompositePath, p.Kind)
	require.Equal(t, AccessIndexRange, p.Path.Kind)
	assert.Equal(t, "status", p.Path.RangeField)
}

func TestPlanAccessNonStrictDegradesToFullScan(t *testing.T) {
	pred := predicate.Compare("owner", predicate.Eq, value.CoercionTextCasefold, value.Text("alice"))
	p := PlanAccess(ordersModel(), pred)
	assert.Equal(t, AccessFullScan, p.Path.Kind)
}

func TestPlanAccessOrBecomesUnion(t *testing.T) {
	pred := predicate.Normalize(predicate.Or(
		predicate.Compare("id", predicate.Eq, value.CoercionStrict, value.Uint(1)),
		predicate.Compare("id", predicate.Eq, value.CoercionStrict, value.Uint(2)),
	))
	p := PlanAccess(ordersModel(), pred)
	assert.Equal(t, CompositeUnion, p.Kind)
	assert.Len(t, p.Children, 2)
}

func TestNormalizeAccessPlanAbsorbsFullScanInUnion(t *testing.T) {
	p := NormalizeAccessPlan(Union(Path(FullScan()), Path(ByKey(value.Uint(1)))))
	assert.Equal(t, AccessFullScan, p.Path.Kind)
}

func TestNormalizeAccessPlanDropsFullScanInIntersection(t *testing.T) {
	p := NormalizeAccessPlan(Intersection(Path(FullScan()), Path(ByKey(value.Uint(1)))))
	assert.Equal(t, AccessByKey, p.Path.Kind)
}

func TestNormalizeAccessPlanUnwrapsSingleton(t *testing.T) {
	p := NormalizeAccessPlan(Union(Path(ByKey(value.Uint(1)))))
	assert.Equal(t, CompositePath, p.Kind)
}

func TestNormalizeAccessPlanDedupesChildren(t *testing.T) {
	p := NormalizeAccessPlan(Union(Path(ByKey(value.Uint(1))), Path(ByKey(value.Uint(1))), Path(ByKey(value.Uint(2)))))
	assert.Len(t, p.Children, 2)
}

func TestCheckAccessPlanInvariantsRejectsNestedFullScan(t *testing.T) {
	bad := AccessPlan{Kind: CompositeUnion, Children: []AccessPlan{Path(FullScan()), Path(ByKey(value.Uint(1)))}}
	err := CheckAccessPlanInvariants(ordersModel(), bad)
	require.Error(t, err)
}

func TestCheckAccessPlanInvariantsRejectsEmptyExclusiveInterval(t *testing.T) {
	bad := Path(KeyRange(Exclusive(value.Uint(5)), Exclusive(value.Uint(5))))
	err := CheckAccessPlanInvariants(ordersModel(), bad)
	require.Error(t, err)
}

func TestValidateLogicalPlanRequiresOrderForPagination(t *testing.T) {
	limit := uint64(10)
	p := &LogicalPlan{Mode: ModeLoad, Access: Path(FullScan()), Page: &Page{Limit: &limit}}
	err := ValidateLogicalPlan(ordersModel(), p)
	require.Error(t, err)
}

func TestValidateLogicalPlanRequiresPKTerminalOrder(t *testing.T) {
	p := &LogicalPlan{Mode: ModeLoad, Access: Path(FullScan()), Order: []OrderField{{Field: "owner"}}}
	err := ValidateLogicalPlan(ordersModel(), p)
	require.Error(t, err)
}

func TestValidateLogicalPlanAcceptsPKTerminalOrder(t *testing.T) {
	p := &LogicalPlan{Mode: ModeLoad, Access: Path(FullScan()), Order: []OrderField{{Field: "owner"}, {Field: "id"}}}
	require.NoError(t, ValidateLogicalPlan(ordersModel(), p))
}
