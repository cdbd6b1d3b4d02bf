package schema

import (
	"testing"

	"icydb/internal/value"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintStableUnderFieldReorder(t *testing.T) {
	a := sampleEntity()
	b := sampleEntity()
	b.Fields[0], b.Fields[1] = b.Fields[1], b.Fields[0]
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprintChangesWhenFieldTypeChanges(t *testing.T) {
	a := sampleEntity()
	b := sampleEntity()
	b.Fields[1].Type = value.KindInt
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprintChangesWhenIndexRemoved(t *testing.T) {
	a := sampleEntity()
	b := sampleEntity()
	b.Indexes = nil
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}
