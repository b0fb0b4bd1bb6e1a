package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromRecordsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewProm(reg)
	require.NoError(t, err)

	p.ObserveOperation("schedule_trip", OutcomeScheduled, 20*time.Millisecond)
	p.ObserveOperation("schedule_trip", OutcomeRejected, 5*time.Millisecond)
	p.ObserveOperation("schedule_trip", OutcomeRejected, 5*time.Millisecond)
	p.AddRecords("schedule_trips", 3)
	p.AddRecords("schedule_trips", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.operations.WithLabelValues("schedule_trip", OutcomeScheduled)))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.operations.WithLabelValues("schedule_trip", OutcomeRejected)))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.created.WithLabelValues("schedule_trips")))
}

func TestNewPromReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewProm(reg)
	require.NoError(t, err)
	second, err := NewProm(reg)
	require.NoError(t, err)

	first.AddRecords("reroute_waste", 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(second.created.WithLabelValues("reroute_waste")))
}
