package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"
	"waste-dispatch-service/internal/domain"
	"waste-dispatch-service/internal/platform/obs"
	"waste-dispatch-service/internal/ports"
)

// ErrLookaheadExhausted is reported when no feasible maintenance day exists
// within the configured lookahead.
var ErrLookaheadExhausted = errors.New("no feasible maintenance day within lookahead")

// LookaheadError identifies the vehicle whose day search ran out.
type LookaheadError struct {
	VehicleID int
	From      time.Time
	Days      int
}

func (e *LookaheadError) Error() string {
	return fmt.Sprintf("vehicle %d: %s (searched %d days from %s)", e.VehicleID, ErrLookaheadExhausted, e.Days, domain.DateKey(e.From))
}

func (e *LookaheadError) Unwrap() error { return ErrLookaheadExhausted }

// ScheduleMaintenance books one maintenance event for every vehicle that is due.
//
// A vehicle is due when its last event before ref is more than the maintenance
// interval ago (or it has none) and nothing is booked in the grace window
// [ref, ref+grace]. Due vehicles are processed by id. For each, days from
// ref+1 onward are tried until one where the vehicle has no trip, no event
// already booked, and a qualified technician is free; the lowest-id free technician is booked and
// the event committed before moving on. Vehicles without any qualified
// technician are skipped.
//
// The count of events created is always returned. Vehicles whose search hit
// the lookahead bound are reported together as a joined error matching
// ErrLookaheadExhausted.
func (s *Scheduler) ScheduleMaintenance(ctx context.Context, ref time.Time) (count int, err error) {
	defer obs.Time(ctx, s.log, "schedule_maintenance")(&err)
	began := time.Now()
	defer func() { s.observe("schedule_maintenance", began, count, err) }()

	ref = domain.DateIn(ref, s.loc)
	due, err := s.vehiclesDue(ctx, ref)
	if err != nil {
		return 0, err
	}

	var exhausted []error
	for _, v := range due {
		booked, err := s.bookMaintenance(ctx, v, ref)
		var lerr *LookaheadError
		if errors.As(err, &lerr) {
			s.log.Warn().Int("vehicle_id", v.VehicleID).Int("days", lerr.Days).Msg("no feasible maintenance day")
			exhausted = append(exhausted, err)
			continue
		}
		if err != nil {
			return count, err
		}
		if booked {
			count++
		}
	}

	return count, errors.Join(exhausted...)
}

func (s *Scheduler) vehiclesDue(ctx context.Context, ref time.Time) ([]domain.Vehicle, error) {
	var due []domain.Vehicle
	err := s.inTx(ctx, "schedule maintenance", func(tx ports.LedgerTx) (bool, error) {
		vehicles, err := tx.ListVehicles(ctx, "")
		if err != nil {
			return false, fmt.Errorf("schedule maintenance: list vehicles: %w", err)
		}

		cutoff := ref.AddDate(0, 0, -s.cfg.MaintenanceIntervalDays)
		graceEnd := ref.AddDate(0, 0, s.cfg.MaintenanceGraceDays)
		for _, v := range vehicles {
			last, ok, err := tx.LatestMaintenanceBefore(ctx, v.VehicleID, ref)
			if err != nil {
				return false, fmt.Errorf("schedule maintenance: latest event vehicle_id=%d: %w", v.VehicleID, err)
			}
			if ok && domain.DateKey(last) >= domain.DateKey(cutoff) {
				continue
			}

			upcoming, err := tx.HasMaintenanceBetween(ctx, v.VehicleID, ref, graceEnd)
			if err != nil {
				return false, fmt.Errorf("schedule maintenance: upcoming events vehicle_id=%d: %w", v.VehicleID, err)
			}
			if !upcoming {
				due = append(due, v)
			}
		}
		return false, nil
	})
	return due, err
}

// bookMaintenance runs the day search for one vehicle in its own transaction.
func (s *Scheduler) bookMaintenance(ctx context.Context, v domain.Vehicle, ref time.Time) (bool, error) {
	var booked bool
	err := s.inTx(ctx, "schedule maintenance", func(tx ports.LedgerTx) (bool, error) {
		techs, err := tx.ListTechnicians(ctx, v.VehicleType)
		if err != nil {
			return false, fmt.Errorf("schedule maintenance: list technicians type=%q: %w", v.VehicleType, err)
		}
		if len(techs) == 0 {
			s.log.Warn().Int("vehicle_id", v.VehicleID).Str("vehicle_type", v.VehicleType).Msg("maintenance skipped: no qualified technician")
			return false, nil
		}

		filter := s.filter(tx)
		for day := range candidateDays(ref.AddDate(0, 0, 1), s.cfg.MaxLookaheadDays) {
			techID, ok, err := s.maintenanceFeasible(ctx, tx, filter, v, techs, day)
			if err != nil {
				return false, err
			}
			if !ok {
				continue
			}

			event := domain.MaintenanceEvent{VehicleID: v.VehicleID, TechnicianID: techID, Date: day}
			if err := tx.CreateMaintenanceEvent(ctx, event); err != nil {
				return false, fmt.Errorf("schedule maintenance: create event vehicle_id=%d: %w", v.VehicleID, err)
			}
			s.log.Debug().Int("vehicle_id", v.VehicleID).Int("technician_id", techID).Str("date", domain.DateKey(day)).Msg("maintenance booked")
			booked = true
			return true, nil
		}

		return false, &LookaheadError{VehicleID: v.VehicleID, From: ref.AddDate(0, 0, 1), Days: s.cfg.MaxLookaheadDays}
	})
	return booked, err
}

// maintenanceFeasible reports whether day works for the vehicle and, if so,
// which technician to book.
func (s *Scheduler) maintenanceFeasible(
	ctx context.Context,
	tx ports.LedgerTx,
	filter AvailabilityFilter,
	v domain.Vehicle,
	techs []domain.Operator,
	day time.Time,
) (int, bool, error) {
	onTrip, err := tx.VehicleAssignedOn(ctx, v.VehicleID, day)
	if err != nil {
		return 0, false, fmt.Errorf("schedule maintenance: trips vehicle_id=%d: %w", v.VehicleID, err)
	}
	if onTrip {
		return 0, false, nil
	}

	booked, err := tx.MaintenanceOn(ctx, v.VehicleID, day)
	if err != nil {
		return 0, false, fmt.Errorf("schedule maintenance: events vehicle_id=%d: %w", v.VehicleID, err)
	}
	if booked {
		return 0, false, nil
	}

	free, err := filter.freeTechniciansAmong(ctx, techs, day)
	if err != nil {
		return 0, false, fmt.Errorf("schedule maintenance: %w", err)
	}
	tech, ok := first(free)
	if !ok {
		return 0, false, nil
	}
	return tech.OperatorID, true, nil
}

// candidateDays yields limit consecutive days starting at from.
func candidateDays(from time.Time, limit int) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		day := domain.Day(from)
		for i := 0; i < limit; i++ {
			if !yield(day) {
				return
			}
			day = day.AddDate(0, 0, 1)
		}
	}
}
