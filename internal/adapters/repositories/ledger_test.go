package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"
	"waste-dispatch-service/internal/domain"
	"waste-dispatch-service/internal/platform/db"
	"waste-dispatch-service/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2023, 5, 4, 0, 0, 0, 0, time.UTC)

func at(d time.Time, hour, minute int) time.Time {
	return d.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func testSeed() Seed {
	return Seed{
		VehicleTypes: []VehicleTypeSeed{
			{VehicleType: "compactor", WasteCategory: "residual"},
			{VehicleType: "glass-truck", WasteCategory: "glass"},
		},
		Routes: []RouteSeed{
			{RouteID: 1, WasteCategory: "residual", LengthKm: 5},
			{RouteID: 2, WasteCategory: "residual", LengthKm: 7.5},
			{RouteID: 3, WasteCategory: "residual", LengthKm: 2},
			{RouteID: 10, WasteCategory: "glass", LengthKm: 10},
		},
		Vehicles: []VehicleSeed{
			{VehicleID: 2, VehicleType: "compactor", Capacity: 100},
			{VehicleID: 1, VehicleType: "compactor", Capacity: 80},
			{VehicleID: 3, VehicleType: "glass-truck", Capacity: 50},
		},
		Operators: []OperatorSeed{
			{OperatorID: 5, Name: "Ada Lovelace", HireDate: "2010-01-01", Drives: []string{"compactor", "glass-truck"}},
			{OperatorID: 2, Name: "Bob Stone", HireDate: "2015-01-01", Drives: []string{"compactor"}},
			{OperatorID: 3, Name: "Cy Young", HireDate: "2023-05-04"},
			{OperatorID: 8, Name: "Tech Two", HireDate: "2019-01-01", TechnicianFor: []string{"glass-truck", "compactor"}},
		},
		Sites: []SiteSeed{
			{SiteID: 4, WasteCategory: "residual"},
			{SiteID: 1, WasteCategory: "residual"},
			{SiteID: 2, WasteCategory: "glass"},
		},
		Trips: []TripSeed{
			{RouteID: 1, VehicleID: 2, Start: at(day, 9, 0), End: at(day, 10, 0), OperatorIDs: [2]int{2, 5}, SiteID: 1},
			{RouteID: 2, VehicleID: 1, Start: at(day, 11, 0), End: at(day, 12, 30), OperatorIDs: [2]int{5, 2}, SiteID: 1},
			{RouteID: 10, VehicleID: 3, Start: at(day, 9, 0), End: at(day, 11, 0), OperatorIDs: [2]int{3, 5}, SiteID: 2},
		},
		Maintenance: []MaintenanceSeed{
			{VehicleID: 2, TechnicianID: 8, Date: "2023-01-10"},
			{VehicleID: 2, TechnicianID: 8, Date: "2023-03-01"},
			{VehicleID: 1, TechnicianID: 8, Date: "2023-05-06"},
		},
	}
}

func newSQLiteLedger(t *testing.T) *SQLLedger {
	t.Helper()

	conn, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "ledger.db"), 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ctx := context.Background()
	require.NoError(t, InitSchema(ctx, conn))
	require.NoError(t, InitSchema(ctx, conn), "schema init is idempotent")
	require.NoError(t, SeedDB(ctx, conn, DialectSQLite, testSeed()))
	require.NoError(t, SeedDB(ctx, conn, DialectSQLite, testSeed()), "reseeding keeps existing rows")
	return NewSQLLedger(conn, DialectSQLite)
}

func TestMemoryLedger(t *testing.T) {
	l, err := NewMemoryLedger(testSeed())
	require.NoError(t, err)
	runLedgerContract(t, l)
}

func TestSQLiteLedger(t *testing.T) {
	runLedgerContract(t, newSQLiteLedger(t))
}

func inTx(t *testing.T, l ports.Ledger, commit bool, fn func(ctx context.Context, tx ports.LedgerTx)) {
	t.Helper()

	ctx := context.Background()
	tx, err := l.BeginTx(ctx)
	require.NoError(t, err)
	defer func() { require.NoError(t, tx.Rollback()) }()

	fn(ctx, tx)
	if commit {
		require.NoError(t, tx.Commit())
	}
}

// runLedgerContract checks behaviour every ports.Ledger adapter must share.
func runLedgerContract(t *testing.T, l ports.Ledger) {
	t.Run("catalog lookups", func(t *testing.T) {
		inTx(t, l, false, func(ctx context.Context, tx ports.LedgerTx) {
			r, err := tx.GetRoute(ctx, 2)
			require.NoError(t, err)
			assert.Equal(t, domain.Route{RouteID: 2, WasteCategory: "residual", LengthKm: 7.5}, r)

			_, err = tx.GetRoute(ctx, 99)
			assert.ErrorIs(t, err, ports.ErrNotFound)
			_, err = tx.GetVehicle(ctx, 99)
			assert.ErrorIs(t, err, ports.ErrNotFound)
			_, err = tx.GetOperator(ctx, 99)
			assert.ErrorIs(t, err, ports.ErrNotFound)
			_, err = tx.GetSite(ctx, 99)
			assert.ErrorIs(t, err, ports.ErrNotFound)
			_, err = tx.FindOperatorByName(ctx, "Nobody")
			assert.ErrorIs(t, err, ports.ErrNotFound)

			v, err := tx.GetVehicle(ctx, 3)
			require.NoError(t, err)
			assert.Equal(t, domain.Vehicle{VehicleID: 3, VehicleType: "glass-truck", Capacity: 50, WasteCategory: "glass"}, v)

			all, err := tx.ListVehicles(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, []int{1, 2, 3}, vehicleIDs(all))
			residual, err := tx.ListVehicles(ctx, "residual")
			require.NoError(t, err)
			assert.Equal(t, []int{1, 2}, vehicleIDs(residual))

			ok, err := tx.VehicleTypeExists(ctx, "compactor")
			require.NoError(t, err)
			assert.True(t, ok)
			ok, err = tx.VehicleTypeExists(ctx, "rocket")
			require.NoError(t, err)
			assert.False(t, ok)

			sites, err := tx.ListSites(ctx, "residual")
			require.NoError(t, err)
			assert.Equal(t, []domain.Site{{SiteID: 1, WasteCategory: "residual"}, {SiteID: 4, WasteCategory: "residual"}}, sites)
		})
	})

	t.Run("operators", func(t *testing.T) {
		inTx(t, l, false, func(ctx context.Context, tx ports.LedgerTx) {
			ada, err := tx.GetOperator(ctx, 5)
			require.NoError(t, err)
			assert.Equal(t, "Ada Lovelace", ada.Name)
			assert.ElementsMatch(t, []string{"compactor", "glass-truck"}, ada.DriveTypes)
			assert.Empty(t, ada.TechnicianTypes)
			assert.True(t, ada.HireDate.Equal(time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)))

			byName, err := tx.FindOperatorByName(ctx, "Tech Two")
			require.NoError(t, err)
			assert.Equal(t, 8, byName.OperatorID)
			assert.ElementsMatch(t, []string{"compactor", "glass-truck"}, byName.TechnicianTypes)

			hired, err := tx.ListOperators(ctx, day.AddDate(0, 0, -1))
			require.NoError(t, err)
			assert.Equal(t, []int{2, 5, 8}, operatorIDs(hired))
			hired, err = tx.ListOperators(ctx, day)
			require.NoError(t, err)
			assert.Equal(t, []int{2, 3, 5, 8}, operatorIDs(hired), "hire date is inclusive")

			techs, err := tx.ListTechnicians(ctx, "glass-truck")
			require.NoError(t, err)
			assert.Equal(t, []int{8}, operatorIDs(techs))
		})
	})

	t.Run("assignment queries", func(t *testing.T) {
		inTx(t, l, false, func(ctx context.Context, tx ports.LedgerTx) {
			ok, err := tx.RouteScheduledOn(ctx, 1, at(day, 15, 0))
			require.NoError(t, err)
			assert.True(t, ok)
			ok, err = tx.RouteScheduledOn(ctx, 1, day.AddDate(0, 0, 1))
			require.NoError(t, err)
			assert.False(t, ok)

			routes, err := tx.ListUnscheduledRoutes(ctx, "residual", day)
			require.NoError(t, err)
			require.Len(t, routes, 1)
			assert.Equal(t, 3, routes[0].RouteID)

			touching := domain.Interval{Start: at(day, 10, 0), End: at(day, 11, 0)}
			conflicts, err := tx.ConflictingAssignments(ctx, ports.ResourceVehicle, 2, touching)
			require.NoError(t, err)
			assert.Empty(t, conflicts, "windows that only touch do not intersect")

			overlapping := domain.Interval{Start: at(day, 9, 59), End: at(day, 11, 1)}
			conflicts, err = tx.ConflictingAssignments(ctx, ports.ResourceOperator, 5, overlapping)
			require.NoError(t, err)
			assert.Len(t, conflicts, 3)

			conflicts, err = tx.ConflictingAssignments(ctx, ports.ResourceOperator, 3, overlapping)
			require.NoError(t, err)
			require.Len(t, conflicts, 1)
			got := conflicts[0]
			assert.Equal(t, 10, got.RouteID)
			assert.Equal(t, 5, got.PrimaryOperatorID)
			assert.Equal(t, 3, got.SecondaryOperatorID)
			assert.True(t, got.Start.Equal(at(day, 9, 0)))
			assert.True(t, got.End.Equal(at(day, 11, 0)))
			assert.Nil(t, got.Volume)

			ok, err = tx.VehicleAssignedOn(ctx, 3, day)
			require.NoError(t, err)
			assert.True(t, ok)
			ok, err = tx.VehicleAssignedOn(ctx, 3, day.AddDate(0, 0, 1))
			require.NoError(t, err)
			assert.False(t, ok)

			pairs, err := tx.ListOperatorPairs(ctx)
			require.NoError(t, err)
			assert.Equal(t, [][2]int{{5, 2}, {5, 3}}, pairs)
		})
	})

	t.Run("maintenance queries", func(t *testing.T) {
		inTx(t, l, false, func(ctx context.Context, tx ports.LedgerTx) {
			latest, ok, err := tx.LatestMaintenanceBefore(ctx, 2, day)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "2023-03-01", domain.DateKey(latest))

			_, ok, err = tx.LatestMaintenanceBefore(ctx, 2, time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC))
			require.NoError(t, err)
			assert.False(t, ok, "strictly before")

			ok, err = tx.HasMaintenanceBetween(ctx, 1, day, day.AddDate(0, 0, 2))
			require.NoError(t, err)
			assert.True(t, ok, "upper bound is inclusive")
			ok, err = tx.HasMaintenanceBetween(ctx, 1, day, day.AddDate(0, 0, 1))
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = tx.MaintenanceOn(ctx, 1, day.AddDate(0, 0, 2))
			require.NoError(t, err)
			assert.True(t, ok)
			ok, err = tx.TechnicianBusyOn(ctx, 8, day.AddDate(0, 0, 2))
			require.NoError(t, err)
			assert.True(t, ok)
			ok, err = tx.TechnicianBusyOn(ctx, 8, day)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	})

	t.Run("rollback discards writes", func(t *testing.T) {
		inTx(t, l, false, func(ctx context.Context, tx ports.LedgerTx) {
			a, err := domain.NewAssignment(3, 1, domain.Interval{Start: at(day, 14, 0), End: at(day, 15, 0)}, 2, 5, 4)
			require.NoError(t, err)
			require.NoError(t, tx.CreateAssignment(ctx, a))

			ok, err := tx.RouteScheduledOn(ctx, 3, day)
			require.NoError(t, err)
			assert.True(t, ok, "reads see the transaction's own writes")
		})
		inTx(t, l, false, func(ctx context.Context, tx ports.LedgerTx) {
			ok, err := tx.RouteScheduledOn(ctx, 3, day)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	})

	t.Run("writes are visible after commit", func(t *testing.T) {
		next := day.AddDate(0, 0, 1)
		inTx(t, l, true, func(ctx context.Context, tx ports.LedgerTx) {
			a, err := domain.NewAssignment(1, 2, domain.Interval{Start: at(next, 8, 0), End: at(next, 9, 0)}, 5, 2, 1)
			require.NoError(t, err)
			require.NoError(t, tx.CreateAssignment(ctx, a))
			require.NoError(t, tx.CreateMaintenanceEvent(ctx, domain.MaintenanceEvent{VehicleID: 3, TechnicianID: 8, Date: next}))
			require.NoError(t, tx.AddTechnicianQualification(ctx, 3, "compactor"))
		})

		inTx(t, l, false, func(ctx context.Context, tx ports.LedgerTx) {
			ok, err := tx.RouteScheduledOn(ctx, 1, next)
			require.NoError(t, err)
			assert.True(t, ok)
			ok, err = tx.MaintenanceOn(ctx, 3, next)
			require.NoError(t, err)
			assert.True(t, ok)

			techs, err := tx.ListTechnicians(ctx, "compactor")
			require.NoError(t, err)
			assert.Equal(t, []int{3, 8}, operatorIDs(techs))
		})
	})

	t.Run("same route twice on one day is rejected", func(t *testing.T) {
		inTx(t, l, false, func(ctx context.Context, tx ports.LedgerTx) {
			a, err := domain.NewAssignment(1, 1, domain.Interval{Start: at(day, 14, 0), End: at(day, 15, 0)}, 5, 2, 1)
			require.NoError(t, err)
			assert.Error(t, tx.CreateAssignment(ctx, a))
		})
	})

	t.Run("reroute", func(t *testing.T) {
		inTx(t, l, true, func(ctx context.Context, tx ports.LedgerTx) {
			n, err := tx.RerouteAssignments(ctx, 1, 4, day)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
		})
		inTx(t, l, false, func(ctx context.Context, tx ports.LedgerTx) {
			n, err := tx.RerouteAssignments(ctx, 1, 4, day)
			require.NoError(t, err)
			assert.Zero(t, n)

			ok, err := tx.RouteScheduledOn(ctx, 1, day.AddDate(0, 0, 1))
			require.NoError(t, err)
			assert.True(t, ok)
			n, err = tx.RerouteAssignments(ctx, 1, 4, day.AddDate(0, 0, 1))
			require.NoError(t, err)
			assert.Equal(t, 1, n, "other days keep their own site")
		})
	})
}

func vehicleIDs(vs []domain.Vehicle) []int {
	out := make([]int, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.VehicleID)
	}
	return out
}

func operatorIDs(ops []domain.Operator) []int {
	out := make([]int, 0, len(ops))
	for _, o := range ops {
		out = append(out, o.OperatorID)
	}
	return out
}

func TestDialectRebind(t *testing.T) {
	q := `SELECT 1 FROM trips WHERE route_id = ? AND trip_date = ?;`
	assert.Equal(t, q, DialectSQLite.rebind(q))
	assert.Equal(t, `SELECT 1 FROM trips WHERE route_id = $1 AND trip_date = $2;`, DialectPostgres.rebind(q))

	d, err := DialectFor(db.DriverPostgres)
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, d)
	_, err = DialectFor("mysql")
	assert.Error(t, err)
}

func TestSeedValidation(t *testing.T) {
	seed := testSeed()
	seed.Vehicles = append(seed.Vehicles, VehicleSeed{VehicleID: 9, VehicleType: "rocket", Capacity: 1})
	_, err := NewMemoryLedger(seed)
	assert.ErrorContains(t, err, "unknown vehicle type")

	seed = testSeed()
	seed.Trips[0].OperatorIDs = [2]int{5, 5}
	_, err = NewMemoryLedger(seed)
	assert.Error(t, err)

	seed = testSeed()
	seed.Operators[0].HireDate = "01/01/2010"
	_, err = NewMemoryLedger(seed)
	assert.Error(t, err)
}
