package services

import (
	"context"
	"testing"
	"waste-dispatch-service/internal/adapters/repositories"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rerouteSeed() repositories.Seed {
	seed := fleetSeed()
	next := testDay.AddDate(0, 0, 1)
	seed.Trips = []repositories.TripSeed{
		{RouteID: 1, VehicleID: 2, Start: at(testDay, 8, 0), End: at(testDay, 9, 0), OperatorIDs: [2]int{5, 2}, SiteID: 1},
		{RouteID: 2, VehicleID: 1, Start: at(testDay, 8, 0), End: at(testDay, 9, 0), OperatorIDs: [2]int{4, 3}, SiteID: 1},
		{RouteID: 3, VehicleID: 2, Start: at(testDay, 10, 0), End: at(testDay, 11, 0), OperatorIDs: [2]int{5, 2}, SiteID: 4},
		{RouteID: 1, VehicleID: 2, Start: at(next, 8, 0), End: at(next, 9, 0), OperatorIDs: [2]int{5, 2}, SiteID: 1},
		{RouteID: 10, VehicleID: 3, Start: at(testDay, 12, 0), End: at(testDay, 14, 0), OperatorIDs: [2]int{5, 2}, SiteID: 2},
	}
	return seed
}

func TestRerouteWasteMovesTripsOfThatDay(t *testing.T) {
	s, ledger := newTestScheduler(t, rerouteSeed())
	ctx := context.Background()

	n, err := s.RerouteWaste(ctx, 1, testDay)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sites := map[int]int{}
	for _, a := range ledger.Assignments() {
		if a.Start.Before(testDay.AddDate(0, 0, 1)) {
			assert.NotEqual(t, 1, a.SiteID, "route %d still bound for closed site", a.RouteID)
		}
		sites[a.RouteID*100+a.Start.Day()] = a.SiteID
	}
	assert.Equal(t, 4, sites[104])
	assert.Equal(t, 4, sites[204])
	assert.Equal(t, 1, sites[105], "next day untouched")

	n, err = s.RerouteWaste(ctx, 1, testDay)
	require.NoError(t, err)
	assert.Zero(t, n, "repeat is a no-op")
}

func TestRerouteWasteWithoutSubstitute(t *testing.T) {
	s, ledger := newTestScheduler(t, rerouteSeed())
	before := ledger.Assignments()

	n, err := s.RerouteWaste(context.Background(), 2, testDay)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, before, ledger.Assignments())

	n, err = s.RerouteWaste(context.Background(), 77, testDay)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRerouteWasteSubstituteIsLowestOtherSite(t *testing.T) {
	seed := rerouteSeed()
	seed.Sites = append(seed.Sites, repositories.SiteSeed{SiteID: 3, WasteCategory: "residual"})
	s, ledger := newTestScheduler(t, seed)

	n, err := s.RerouteWaste(context.Background(), 4, testDay)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	for _, a := range ledger.Assignments() {
		if a.RouteID == 3 {
			assert.Equal(t, 1, a.SiteID)
		}
	}
}

func TestRerouteWasteRollsBackOnLedgerFailure(t *testing.T) {
	ledger, err := repositories.NewMemoryLedger(rerouteSeed())
	require.NoError(t, err)
	s := NewScheduler(failingLedger{Ledger: ledger}, DefaultConfig(), zerolog.Nop(), nil)

	n, err := s.RerouteWaste(context.Background(), 1, testDay)
	require.ErrorIs(t, err, errInjected)
	assert.Zero(t, n)
}
