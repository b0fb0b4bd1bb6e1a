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

// UpdateTechnicians records new technician qualifications from a roster.
//
// A grant is applied only when the named operator exists, the vehicle type
// exists, the operator holds no drive capability, and the qualification is not
// already held. Everything else is skipped silently. All grants are written in
// one transaction; the number applied is returned.
func (s *Scheduler) UpdateTechnicians(ctx context.Context, grants []domain.TechnicianGrant) (added int, err error) {
	defer obs.Time(ctx, s.log, "update_technicians")(&err)
	began := time.Now()
	defer func() { s.observe("update_technicians", began, added, err) }()

	err = s.inTx(ctx, "update technicians", func(tx ports.LedgerTx) (bool, error) {
		n := 0
		for _, g := range grants {
			ok, err := s.applyGrant(ctx, tx, g)
			if err != nil {
				return false, err
			}
			if ok {
				n++
			}
		}
		added = n
		return n > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

func (s *Scheduler) applyGrant(ctx context.Context, tx ports.LedgerTx, g domain.TechnicianGrant) (bool, error) {
	skip := func(reason string) (bool, error) {
		s.log.Debug().Str("name", g.FullName()).Str("vehicle_type", g.VehicleType).Str("reason", reason).Msg("technician grant skipped")
		return false, nil
	}

	op, err := tx.FindOperatorByName(ctx, g.FullName())
	if errors.Is(err, ports.ErrNotFound) {
		return skip("unknown operator")
	}
	if err != nil {
		return false, fmt.Errorf("update technicians: find operator %q: %w", g.FullName(), err)
	}

	exists, err := tx.VehicleTypeExists(ctx, g.VehicleType)
	if err != nil {
		return false, fmt.Errorf("update technicians: check vehicle type %q: %w", g.VehicleType, err)
	}
	if !exists {
		return skip("unknown vehicle type")
	}
	if op.IsDriver() {
		return skip("operator is a driver")
	}
	if op.QualifiedFor(g.VehicleType) {
		return skip("already qualified")
	}

	if err := tx.AddTechnicianQualification(ctx, op.OperatorID, g.VehicleType); err != nil {
		return false, fmt.Errorf("update technicians: add qualification operator_id=%d: %w", op.OperatorID, err)
	}
	return true, nil
}
