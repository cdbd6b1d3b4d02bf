package commit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkerEncodeDecodeRoundTrip(t *testing.T) {
	m := CommitMarker{
		ID: [16]byte{1, 2, 3},
		RowOps: []CommitRowOp{
			{EntityPath: "accounts", DataKey: []byte{9, 9}, BeforeRow: nil, AfterRow: []byte("row-bytes"), SchemaFingerprint: [16]byte{7}},
			{EntityPath: "accounts", DataKey: []byte{1}, BeforeRow: []byte("old"), AfterRow: nil, SchemaFingerprint: [16]byte{8}},
		},
	}
	raw, err := m.Encode()
	require.NoError(t, err)

	got, err := DecodeMarker(raw)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestMarkerEncodeDecodeEmptyBatch(t *testing.T) {
	m := CommitMarker{ID: [16]byte{1}}
	raw, err := m.Encode()
	require.NoError(t, err)
	got, err := DecodeMarker(raw)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.Empty(t, got.RowOps)
}

func TestDecodeMarkerRejectsBadVersion(t *testing.T) {
	raw := []byte{99, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	_, err := DecodeMarker(raw)
	require.Error(t, err)
}

func TestDecodeMarkerRejectsTruncatedEnvelope(t *testing.T) {
	_, err := DecodeMarker([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestDecodeMarkerRejectsTrailingBytes(t *testing.T) {
	m := CommitMarker{ID: [16]byte{1}}
	raw, err := m.Encode()
	require.NoError(t, err)
	raw = append(raw, 0xFF)
	_, err = DecodeMarker(raw)
	require.Error(t, err)
}
