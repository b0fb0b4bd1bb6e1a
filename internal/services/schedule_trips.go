package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"waste-dispatch-service/internal/domain"
	"waste-dispatch-service/internal/platform/obs"
	"waste-dispatch-service/internal/ports"
)

// batchStep is the outcome of trying to place one route in a batch.
type batchStep int

const (
	stepPlaced batchStep = iota
	// Route does not fit before the end of the day; try the next one at the same cursor.
	stepSkipped
	// No operator pair or site; the whole batch ends.
	stepStop
)

// ScheduleTrips fills one vehicle's day with routes it can carry.
//
// Unscheduled routes of the vehicle's waste category are taken in id order.
// Each trip starts at the day start or one buffer after the previous trip
// placed by this call, whichever is later. A route that would end after the
// day end is skipped and the next route is tried at the same start time.
// If no operator pair (or no site) is available for a route, the batch stops
// and the trips placed so far are kept: each placed trip is committed on its
// own.
//
// date is a calendar date; its year, month and day are taken as written and
// the day is laid out in the operating location.
//
// It returns the number of trips created. An unknown vehicle, or one booked
// for maintenance that day, schedules nothing.
func (s *Scheduler) ScheduleTrips(ctx context.Context, vehicleID int, date time.Time) (count int, err error) {
	defer obs.Time(ctx, s.log, "schedule_trips")(&err)
	began := time.Now()
	defer func() { s.observe("schedule_trips", began, count, err) }()

	day := domain.DateIn(date, s.loc)
	vehicle, routes, err := s.batchCandidates(ctx, vehicleID, day)
	if err != nil || len(routes) == 0 {
		return 0, err
	}

	cursor := domain.At(day, s.cfg.DayStart)
	closing := domain.At(day, s.cfg.DayEnd)
	for _, route := range routes {
		step, end, err := s.placeBatchTrip(ctx, vehicle, route, cursor, closing)
		if err != nil {
			return count, err
		}

		switch step {
		case stepSkipped:
			continue
		case stepStop:
			s.log.Info().Int("vehicle_id", vehicleID).Int("route_id", route.RouteID).Int("scheduled", count).Msg("batch stopped: no operator pair or site")
			return count, nil
		}

		count++
		cursor = end.Add(s.cfg.Buffer).In(s.loc)
	}

	return count, nil
}

func (s *Scheduler) batchCandidates(ctx context.Context, vehicleID int, day time.Time) (domain.Vehicle, []domain.Route, error) {
	var (
		vehicle domain.Vehicle
		routes  []domain.Route
	)
	err := s.inTx(ctx, "schedule trips", func(tx ports.LedgerTx) (bool, error) {
		v, err := tx.GetVehicle(ctx, vehicleID)
		if errors.Is(err, ports.ErrNotFound) {
			s.log.Debug().Int("vehicle_id", vehicleID).Msg("batch skipped: vehicle not found")
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("schedule trips: get vehicle %d: %w", vehicleID, err)
		}

		onMaintenance, err := tx.MaintenanceOn(ctx, vehicleID, day)
		if err != nil {
			return false, fmt.Errorf("schedule trips: maintenance vehicle_id=%d: %w", vehicleID, err)
		}
		if onMaintenance {
			s.log.Debug().Int("vehicle_id", vehicleID).Msg("batch skipped: vehicle in maintenance")
			return false, nil
		}

		rs, err := tx.ListUnscheduledRoutes(ctx, v.WasteCategory, day)
		if err != nil {
			return false, fmt.Errorf("schedule trips: list unscheduled routes category=%q: %w", v.WasteCategory, err)
		}

		vehicle, routes = v, rs
		return false, nil
	})
	return vehicle, routes, err
}

// placeBatchTrip tries to place one route at or after start in its own
// transaction. On success it returns the end of the placed trip.
func (s *Scheduler) placeBatchTrip(
	ctx context.Context,
	vehicle domain.Vehicle,
	route domain.Route,
	start time.Time,
	closing time.Time,
) (batchStep, time.Time, error) {
	step := stepSkipped
	var end time.Time

	err := s.inTx(ctx, "schedule trips", func(tx ports.LedgerTx) (bool, error) {
		exists, err := tx.RouteScheduledOn(ctx, route.RouteID, start)
		if err != nil {
			return false, fmt.Errorf("schedule trips: check existing trip route_id=%d: %w", route.RouteID, err)
		}
		if exists {
			return false, nil
		}

		window, ok, err := s.nextVehicleSlot(ctx, tx, vehicle, route, start, closing)
		if err != nil || !ok {
			return false, err
		}

		day := domain.Day(start)
		filter := s.filter(tx)
		drivers, err := filter.FreeDrivers(ctx, vehicle.VehicleType, day, window)
		if err != nil {
			return false, fmt.Errorf("schedule trips: %w", err)
		}
		driver, ok := first(drivers)
		if !ok {
			step = stepStop
			return false, nil
		}

		coRiders, err := filter.FreeCoRiders(ctx, day, window, driver.OperatorID)
		if err != nil {
			return false, fmt.Errorf("schedule trips: %w", err)
		}
		coRider, ok := first(coRiders)
		if !ok {
			step = stepStop
			return false, nil
		}

		site, ok, err := s.destinationFor(ctx, tx, route.WasteCategory)
		if err != nil {
			return false, err
		}
		if !ok {
			step = stepStop
			return false, nil
		}

		a, err := domain.NewAssignment(route.RouteID, vehicle.VehicleID, window, driver.OperatorID, coRider.OperatorID, site.SiteID)
		if err != nil {
			return false, fmt.Errorf("schedule trips: %w", err)
		}
		if err := tx.CreateAssignment(ctx, a); err != nil {
			return false, fmt.Errorf("schedule trips: create assignment route_id=%d: %w", route.RouteID, err)
		}

		step, end = stepPlaced, window.End
		return true, nil
	})
	if err != nil {
		return stepStop, time.Time{}, err
	}
	return step, end, nil
}

// nextVehicleSlot finds the earliest window at or after start in which the
// vehicle has no conflicting trip. Trips already booked for the vehicle push
// the start to one buffer after their end. ok is false when the route no
// longer fits before closing.
func (s *Scheduler) nextVehicleSlot(
	ctx context.Context,
	tx ports.LedgerTx,
	vehicle domain.Vehicle,
	route domain.Route,
	start time.Time,
	closing time.Time,
) (domain.Interval, bool, error) {
	for {
		window := route.Window(start, s.cfg.SpeedKmh)
		if window.End.After(closing) {
			return domain.Interval{}, false, nil
		}

		conflicts, err := tx.ConflictingAssignments(ctx, ports.ResourceVehicle, vehicle.VehicleID, window.Buffered(s.cfg.Buffer))
		if err != nil {
			return domain.Interval{}, false, fmt.Errorf("schedule trips: conflicts vehicle_id=%d: %w", vehicle.VehicleID, err)
		}
		if len(conflicts) == 0 {
			return window, true, nil
		}

		latest := conflicts[0].End
		for _, c := range conflicts[1:] {
			if c.End.After(latest) {
				latest = c.End
			}
		}
		start = latest.Add(s.cfg.Buffer).In(s.loc)
	}
}
