package services

import (
	"context"
	"testing"
	"waste-dispatch-service/internal/adapters/repositories"
	"waste-dispatch-service/internal/platform/metrics"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sphereSeed() repositories.Seed {
	seed := fleetSeed()
	d1, d2, d3 := testDay, testDay.AddDate(0, 0, 1), testDay.AddDate(0, 0, 2)
	seed.Trips = []repositories.TripSeed{
		{RouteID: 1, VehicleID: 2, Start: at(d1, 8, 0), End: at(d1, 9, 0), OperatorIDs: [2]int{5, 2}, SiteID: 1},
		{RouteID: 1, VehicleID: 2, Start: at(d2, 8, 0), End: at(d2, 9, 0), OperatorIDs: [2]int{2, 3}, SiteID: 1},
		{RouteID: 1, VehicleID: 2, Start: at(d3, 8, 0), End: at(d3, 9, 0), OperatorIDs: [2]int{5, 2}, SiteID: 1},
		// A separate crew.
		{RouteID: 2, VehicleID: 1, Start: at(d1, 8, 0), End: at(d1, 9, 0), OperatorIDs: [2]int{4, 9}, SiteID: 1},
	}
	return seed
}

func TestWorkmateSphere(t *testing.T) {
	s, _ := newTestScheduler(t, sphereSeed())
	ctx := context.Background()

	tests := []struct {
		name       string
		operatorID int
		want       []int
	}{
		{name: "transitive through a shared workmate", operatorID: 5, want: []int{2, 3}},
		{name: "middle of the chain", operatorID: 2, want: []int{3, 5}},
		{name: "separate crew", operatorID: 4, want: []int{9}},
		{name: "non-driver has no sphere", operatorID: 3, want: []int{}},
		{name: "unknown operator", operatorID: 42, want: []int{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.WorkmateSphere(ctx, tc.operatorID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWorkmateSphereDriverWithoutTrips(t *testing.T) {
	s, _ := newTestScheduler(t, fleetSeed())

	got, err := s.WorkmateSphere(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReachableHandlesCycles(t *testing.T) {
	adj := adjacency([][2]int{{2, 1}, {3, 2}, {3, 1}, {7, 7}, {9, 8}})

	assert.Equal(t, []int{2, 3}, reachable(adj, 1))
	assert.Equal(t, []int{1, 2}, reachable(adj, 3))
	assert.Equal(t, []int{}, reachable(adj, 7))
	assert.Equal(t, []int{8}, reachable(adj, 9))
}

func TestWorkmateSphereRecordsLookups(t *testing.T) {
	ledger, err := repositories.NewMemoryLedger(sphereSeed())
	require.NoError(t, err)
	rec := &recordingRecorder{}
	s := NewScheduler(ledger, DefaultConfig(), zerolog.Nop(), rec)
	ctx := context.Background()

	_, err = s.WorkmateSphere(ctx, 5)
	require.NoError(t, err)
	_, err = s.WorkmateSphere(ctx, 3)
	require.NoError(t, err)

	assert.Equal(t, []observation{
		{op: "workmate_sphere", outcome: metrics.OutcomeResolved},
		{op: "workmate_sphere", outcome: metrics.OutcomeEmpty},
	}, rec.observed)
	assert.NotContains(t, rec.records, "workmate_sphere")
}
