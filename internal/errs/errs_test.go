package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatsWithAndWithoutCause(t *testing.T) {
	plain := New(Validation, Query, "field not found")
	assert.Equal(t, "Query/Validation: field not found", plain.Error())

	wrapped := Wrap(Corruption, Store, "bad key length", errors.New("want 31, got 12"))
	assert.Contains(t, wrapped.Error(), "Store/Corruption: bad key length")
	assert.Contains(t, wrapped.Error(), "want 31, got 12")
}

func TestUnwrapAndIs(t *testing.T) {
	cause := errors.New("stale generation")
	err := Wrap(InvariantViolation, Executor, "generation mismatch", cause)

	require.ErrorIs(t, err, cause)

	var target *Error
	require.ErrorAs(t, err, &target)
	assert.Equal(t, InvariantViolation, target.Class)
	assert.Equal(t, Executor, target.Origin)
}

func TestIsAndIsOriginHelpers(t *testing.T) {
	err := New(NotFound, Query, "row missing")
	assert.True(t, Is(err, NotFound))
	assert.False(t, Is(err, Corruption))
	assert.True(t, IsOrigin(err, Query))
	assert.False(t, IsOrigin(err, Store))

	assert.False(t, Is(errors.New("plain"), NotFound))
}

func TestClassAndOriginStringers(t *testing.T) {
	assert.Equal(t, "Corruption", Corruption.String())
	assert.Equal(t, "Unknown", Class(99).String())
	assert.Equal(t, "Index", Index.String())
	assert.Equal(t, "Unknown", Origin(99).String())
}
