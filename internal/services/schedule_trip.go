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

// ScheduleTrip places one execution of a route starting at start.
//
// The trip needs a free vehicle of the route's waste category (largest
// capacity first), a free senior driver for that vehicle's type, a second
// free operator, and the lowest-id site for the category. Vehicles are tried
// in priority order until one has a free driver.
//
// start may carry any offset; it is read in the operating location.
//
// It returns false without touching the ledger when the route is unknown, the
// trip would leave the operating window, the route already ran that day, or
// any candidate set is empty. Only infrastructure failures are returned as
// errors, after the transaction has been rolled back.
func (s *Scheduler) ScheduleTrip(ctx context.Context, routeID int, start time.Time) (scheduled bool, err error) {
	defer obs.Time(ctx, s.log, "schedule_trip")(&err)
	began := time.Now()
	defer func() { s.observe("schedule_trip", began, boolToCount(scheduled), err) }()

	start = start.In(s.loc)

	var planned bool
	err = s.inTx(ctx, "schedule trip", func(tx ports.LedgerTx) (bool, error) {
		a, ok, err := s.planTrip(ctx, tx, routeID, start)
		if err != nil || !ok {
			return false, err
		}

		if err := tx.CreateAssignment(ctx, a); err != nil {
			return false, fmt.Errorf("schedule trip: create assignment route_id=%d: %w", routeID, err)
		}
		planned = true
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return planned, nil
}

func (s *Scheduler) planTrip(ctx context.Context, tx ports.LedgerTx, routeID int, start time.Time) (domain.Assignment, bool, error) {
	reject := func(reason string) (domain.Assignment, bool, error) {
		s.log.Debug().Int("route_id", routeID).Time("start", start).Str("reason", reason).Msg("trip not scheduled")
		return domain.Assignment{}, false, nil
	}

	route, err := tx.GetRoute(ctx, routeID)
	if errors.Is(err, ports.ErrNotFound) {
		return reject("route not found")
	}
	if err != nil {
		return domain.Assignment{}, false, fmt.Errorf("schedule trip: get route %d: %w", routeID, err)
	}

	window := route.Window(start, s.cfg.SpeedKmh)
	if !s.withinOperatingHours(window) {
		return reject("outside operating hours")
	}

	day := domain.Day(start)
	exists, err := tx.RouteScheduledOn(ctx, routeID, day)
	if err != nil {
		return domain.Assignment{}, false, fmt.Errorf("schedule trip: check existing trip route_id=%d: %w", routeID, err)
	}
	if exists {
		return reject("route already scheduled that day")
	}

	filter := s.filter(tx)
	vehicles, err := filter.FreeVehicles(ctx, route.WasteCategory, window, day)
	if err != nil {
		return domain.Assignment{}, false, fmt.Errorf("schedule trip: %w", err)
	}
	if len(vehicles) == 0 {
		return reject("no free vehicle")
	}

	// Full-fleet search: the highest-priority vehicle that has a free driver wins.
	var (
		vehicle domain.Vehicle
		driver  domain.Operator
		found   bool
	)
	for _, v := range vehicles {
		drivers, err := filter.FreeDrivers(ctx, v.VehicleType, day, window)
		if err != nil {
			return domain.Assignment{}, false, fmt.Errorf("schedule trip: %w", err)
		}
		if d, ok := first(drivers); ok {
			vehicle, driver, found = v, d, true
			break
		}
	}
	if !found {
		return reject("no free driver for any free vehicle")
	}

	coRiders, err := filter.FreeCoRiders(ctx, day, window, driver.OperatorID)
	if err != nil {
		return domain.Assignment{}, false, fmt.Errorf("schedule trip: %w", err)
	}
	coRider, ok := first(coRiders)
	if !ok {
		return reject("no free second operator")
	}

	site, ok, err := s.destinationFor(ctx, tx, route.WasteCategory)
	if err != nil {
		return domain.Assignment{}, false, err
	}
	if !ok {
		return reject("no site accepts waste category")
	}

	a, err := domain.NewAssignment(route.RouteID, vehicle.VehicleID, window, driver.OperatorID, coRider.OperatorID, site.SiteID)
	if err != nil {
		return domain.Assignment{}, false, fmt.Errorf("schedule trip: %w", err)
	}
	return a, true, nil
}

// withinOperatingHours reports whether the window starts no earlier than the
// day start and ends no later than the day end of its start date.
func (s *Scheduler) withinOperatingHours(window domain.Interval) bool {
	open := domain.At(window.Start, s.cfg.DayStart)
	closing := domain.At(window.Start, s.cfg.DayEnd)
	return !window.Start.Before(open) && !window.End.After(closing)
}

// destinationFor picks the lowest-id site accepting the waste category.
func (s *Scheduler) destinationFor(ctx context.Context, tx ports.LedgerTx, wasteCategory string) (domain.Site, bool, error) {
	sites, err := tx.ListSites(ctx, wasteCategory)
	if err != nil {
		return domain.Site{}, false, fmt.Errorf("destination site: list sites category=%q: %w", wasteCategory, err)
	}
	SortSites(sites)
	site, ok := first(sites)
	return site, ok, nil
}

func boolToCount(b bool) int {
	if b {
		return 1
	}
	return 0
}
