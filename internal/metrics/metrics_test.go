package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopSinkDiscardsEverything(t *testing.T) {
	var s Sink = NopSink{}
	s.Emit(IndexDelta("accounts", 1, 0))
	span := s.StartSpan(ExecLoad, "accounts")
	span.End(ExecLoad, "accounts", 3)
}

func TestPrometheusSinkRegistersAndRecordsIndexDelta(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewPrometheusSink(reg)
	s.Emit(IndexDelta("accounts", 2, 1))

	count, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, count)
}

func TestPrometheusSinkStartSpanRecordsDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewPrometheusSink(reg)
	span := s.StartSpan(ExecSave, "accounts")
	span.End(ExecSave, "accounts", 5)
}
