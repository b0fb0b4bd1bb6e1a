package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"
	"waste-dispatch-service/internal/domain"
	"waste-dispatch-service/internal/ports"
)

// AvailabilityFilter derives free-resource views from one ledger transaction.
// It never writes. Candidate windows are widened by Buffer before they are
// compared against stored trips, so two trips sharing a resource always keep
// at least Buffer between them.
type AvailabilityFilter struct {
	Tx     ports.LedgerTx
	Buffer time.Duration
}

// FreeVehicles returns vehicles of the waste category with no trip conflicting
// with the buffered window and no maintenance on day, in priority order.
func (f AvailabilityFilter) FreeVehicles(ctx context.Context, wasteCategory string, window domain.Interval, day time.Time) ([]domain.Vehicle, error) {
	vehicles, err := f.Tx.ListVehicles(ctx, wasteCategory)
	if err != nil {
		return nil, fmt.Errorf("free vehicles: list vehicles category=%q: %w", wasteCategory, err)
	}

	buffered := window.Buffered(f.Buffer)
	free := make([]domain.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		ok, err := f.VehicleFree(ctx, v.VehicleID, buffered, day)
		if err != nil {
			return nil, err
		}
		if ok {
			free = append(free, v)
		}
	}

	SortVehicles(free)
	return free, nil
}

// VehicleFree checks one vehicle against an already buffered window.
func (f AvailabilityFilter) VehicleFree(ctx context.Context, vehicleID int, buffered domain.Interval, day time.Time) (bool, error) {
	conflicts, err := f.Tx.ConflictingAssignments(ctx, ports.ResourceVehicle, vehicleID, buffered)
	if err != nil {
		return false, fmt.Errorf("free vehicles: conflicts vehicle_id=%d: %w", vehicleID, err)
	}
	if len(conflicts) > 0 {
		return false, nil
	}

	onMaintenance, err := f.Tx.MaintenanceOn(ctx, vehicleID, day)
	if err != nil {
		return false, fmt.Errorf("free vehicles: maintenance vehicle_id=%d: %w", vehicleID, err)
	}
	return !onMaintenance, nil
}

// FreeDrivers returns operators able to drive vehicleType, hired on or before
// asOf and free over the buffered window, by seniority.
func (f AvailabilityFilter) FreeDrivers(ctx context.Context, vehicleType string, asOf time.Time, window domain.Interval) ([]domain.Operator, error) {
	return f.freeOperators(ctx, asOf, window, func(o domain.Operator) bool {
		return o.CanDrive(vehicleType)
	})
}

// FreeCoRiders is FreeDrivers without the drive capability requirement and
// with one operator excluded.
func (f AvailabilityFilter) FreeCoRiders(ctx context.Context, asOf time.Time, window domain.Interval, exclude int) ([]domain.Operator, error) {
	return f.freeOperators(ctx, asOf, window, func(o domain.Operator) bool {
		return o.OperatorID != exclude
	})
}

func (f AvailabilityFilter) freeOperators(
	ctx context.Context,
	asOf time.Time,
	window domain.Interval,
	keep func(domain.Operator) bool,
) ([]domain.Operator, error) {
	operators, err := f.Tx.ListOperators(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("free operators: list operators: %w", err)
	}

	buffered := window.Buffered(f.Buffer)
	free := make([]domain.Operator, 0, len(operators))
	for _, o := range operators {
		if !keep(o) || !o.HiredBy(asOf) {
			continue
		}

		conflicts, err := f.Tx.ConflictingAssignments(ctx, ports.ResourceOperator, o.OperatorID, buffered)
		if err != nil {
			return nil, fmt.Errorf("free operators: conflicts operator_id=%d: %w", o.OperatorID, err)
		}
		if len(conflicts) == 0 {
			free = append(free, o)
		}
	}

	SortOperators(free)
	return free, nil
}

// FreeTechnicians returns technicians qualified for vehicleType who were hired
// strictly before day and have no maintenance booked on day, by id.
func (f AvailabilityFilter) FreeTechnicians(ctx context.Context, vehicleType string, day time.Time) ([]domain.Operator, error) {
	techs, err := f.Tx.ListTechnicians(ctx, vehicleType)
	if err != nil {
		return nil, fmt.Errorf("free technicians: list technicians type=%q: %w", vehicleType, err)
	}
	return f.freeTechniciansAmong(ctx, techs, day)
}

func (f AvailabilityFilter) freeTechniciansAmong(ctx context.Context, techs []domain.Operator, day time.Time) ([]domain.Operator, error) {
	day = domain.Day(day)
	free := make([]domain.Operator, 0, len(techs))
	for _, t := range techs {
		if domain.DateKey(t.HireDate) >= domain.DateKey(day) {
			continue
		}

		busy, err := f.Tx.TechnicianBusyOn(ctx, t.OperatorID, day)
		if err != nil {
			return nil, fmt.Errorf("free technicians: busy technician_id=%d: %w", t.OperatorID, err)
		}
		if !busy {
			free = append(free, t)
		}
	}

	slices.SortFunc(free, func(a, b domain.Operator) int { return cmp.Compare(a.OperatorID, b.OperatorID) })
	return free, nil
}
