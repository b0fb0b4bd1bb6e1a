package services

import (
	"context"
	"errors"
	"testing"
	"time"
	"waste-dispatch-service/internal/adapters/repositories"
	"waste-dispatch-service/internal/domain"
	"waste-dispatch-service/internal/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2023, 5, 4, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// fleetSeed is a small residual/glass fleet:
//
//	vehicles: 1 compactor cap 80, 2 compactor cap 100, 3 glass truck cap 50
//	drivers:  5 (2010, compactor+glass), 2 (2015, compactor), 4 (2017, compactor)
//	others:   3 (2016), technicians 8 (compactor+glass) and 9 (compactor), both 2019
//	sites:    1 and 4 residual, 2 glass
//
// Residual routes 1-4 take one hour at the default speed, route 5 eight hours.
func fleetSeed() repositories.Seed {
	return repositories.Seed{
		VehicleTypes: []repositories.VehicleTypeSeed{
			{VehicleType: "compactor", WasteCategory: "residual"},
			{VehicleType: "glass-truck", WasteCategory: "glass"},
		},
		Routes: []repositories.RouteSeed{
			{RouteID: 1, WasteCategory: "residual", LengthKm: 5},
			{RouteID: 2, WasteCategory: "residual", LengthKm: 5},
			{RouteID: 3, WasteCategory: "residual", LengthKm: 5},
			{RouteID: 4, WasteCategory: "residual", LengthKm: 5},
			{RouteID: 5, WasteCategory: "residual", LengthKm: 40},
			{RouteID: 10, WasteCategory: "glass", LengthKm: 10},
		},
		Vehicles: []repositories.VehicleSeed{
			{VehicleID: 1, VehicleType: "compactor", Capacity: 80},
			{VehicleID: 2, VehicleType: "compactor", Capacity: 100},
			{VehicleID: 3, VehicleType: "glass-truck", Capacity: 50},
		},
		Operators: []repositories.OperatorSeed{
			{OperatorID: 5, Name: "Ada Lovelace", HireDate: "2010-01-01", Drives: []string{"compactor", "glass-truck"}},
			{OperatorID: 2, Name: "Bob Stone", HireDate: "2015-01-01", Drives: []string{"compactor"}},
			{OperatorID: 3, Name: "Cy Young", HireDate: "2016-01-01"},
			{OperatorID: 4, Name: "Di Prince", HireDate: "2017-01-01", Drives: []string{"compactor"}},
			{OperatorID: 8, Name: "Tech Two", HireDate: "2019-01-01", TechnicianFor: []string{"compactor", "glass-truck"}},
			{OperatorID: 9, Name: "Tech One", HireDate: "2019-01-01", TechnicianFor: []string{"compactor"}},
		},
		Sites: []repositories.SiteSeed{
			{SiteID: 1, WasteCategory: "residual"},
			{SiteID: 4, WasteCategory: "residual"},
			{SiteID: 2, WasteCategory: "glass"},
		},
	}
}

func newTestScheduler(t *testing.T, seed repositories.Seed) (*Scheduler, *repositories.MemoryLedger) {
	t.Helper()

	ledger, err := repositories.NewMemoryLedger(seed)
	require.NoError(t, err)
	return NewScheduler(ledger, DefaultConfig(), zerolog.Nop(), nil), ledger
}

// readTx runs fn in a transaction that is always rolled back.
func readTx(t *testing.T, l ports.Ledger, fn func(tx ports.LedgerTx)) {
	t.Helper()

	tx, err := l.BeginTx(context.Background())
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()
	fn(tx)
}

var errInjected = errors.New("injected failure")

// failingLedger wraps a ledger so that writes fail after the reads succeed.
type failingLedger struct {
	ports.Ledger
}

func (l failingLedger) BeginTx(ctx context.Context) (ports.LedgerTx, error) {
	tx, err := l.Ledger.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return failingTx{LedgerTx: tx}, nil
}

type failingTx struct {
	ports.LedgerTx
}

func (failingTx) CreateAssignment(context.Context, domain.Assignment) error { return errInjected }

func (failingTx) CreateMaintenanceEvent(context.Context, domain.MaintenanceEvent) error {
	return errInjected
}

func (failingTx) RerouteAssignments(context.Context, int, int, time.Time) (int, error) {
	return 0, errInjected
}

type observation struct {
	op      string
	outcome string
}

// recordingRecorder captures metric calls for assertions.
type recordingRecorder struct {
	observed []observation
	records  map[string]int
}

func (r *recordingRecorder) ObserveOperation(op, outcome string, _ time.Duration) {
	r.observed = append(r.observed, observation{op: op, outcome: outcome})
}

func (r *recordingRecorder) AddRecords(op string, n int) {
	if r.records == nil {
		r.records = make(map[string]int)
	}
	r.records[op] += n
}
