package cursor

import (
	"testing"

	"icydb/internal/key"
	"icydb/internal/plan"
	"icydb/internal/predicate"
	"icydb/internal/value"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSignatureInput() SignatureInput {
	return SignatureInput{
		EntityPath: "accounts",
		Mode:       plan.ModeLoad,
		Access:     plan.Path(plan.ByKey(value.Uint(1))),
		Predicate:  predicate.Compare("id", predicate.Eq, value.CoercionStrict, value.Uint(1)),
		Order:      []plan.OrderField{{Field: "id"}},
		Distinct:   false,
		Projection: "*",
	}
}

func TestSignatureIsStableAcrossEqualInputs(t *testing.T) {
	a := Signature(sampleSignatureInput())
	b := Signature(sampleSignatureInput())
	assert.Equal(t, a, b)
}

func TestSignatureExcludesPaginationWindow(t *testing.T) {
	in1 := sampleSignatureInput()
	in2 := sampleSignatureInput()
	assert.Equal(t, Signature(in1), Signature(in2))
}

func TestSignatureChangesWithPredicate(t *testing.T) {
	in1 := sampleSignatureInput()
	in2 := sampleSignatureInput()
	in2.Predicate = predicate.Compare("id", predicate.Eq, value.CoercionStrict, value.Uint(2))
	assert.NotEqual(t, Signature(in1), Signature(in2))
}

func TestTokenEncodeDecodeRoundTrip(t *testing.T) {
	slot, err := PresentSlot(value.Uint(5))
	require.NoError(t, err)
	tok := ContinuationToken{
		Version:          tokenVersion,
		Signature:        Signature(sampleSignatureInput()),
		Boundary:         CursorBoundary{Slots: []Slot{slot, MissingSlot()}},
		Direction:        plan.Ascending,
		InitialOffset:    3,
		IndexRangeAnchor: []byte{1, 2, 3},
	}
	raw, err := tok.Encode()
	require.NoError(t, err)
	got, err := DecodeToken(raw)
	require.NoError(t, err)
	assert.Equal(t, tok, got)
}

func TestDecodeTokenRejectsBadVersion(t *testing.T) {
	raw := []byte{0, 0, 0, 99}
	_, err := DecodeToken(raw)
	require.Error(t, err)
}

func TestDecodeTokenRejectsTruncated(t *testing.T) {
	_, err := DecodeToken([]byte{0, 0})
	require.Error(t, err)
}

func TestDecodeTokenRejectsTrailingBytes(t *testing.T) {
	tok := ContinuationToken{Version: tokenVersion, Direction: plan.Ascending}
	raw, err := tok.Encode()
	require.NoError(t, err)
	raw = append(raw, 0xFF)
	_, err = DecodeToken(raw)
	require.Error(t, err)
}

func TestResumeBoundsAscendingExcludesAnchorFromLower(t *testing.T) {
	lower, upper := ResumeBounds(key.UnboundedBound(), key.UnboundedBound(), []byte{5}, plan.Ascending)
	assert.Equal(t, key.Excluded, lower.Kind)
	assert.Equal(t, key.Unbounded, upper.Kind)
}
