package services

import (
	"context"
	"fmt"
	"time"
	"waste-dispatch-service/internal/platform/metrics"
	"waste-dispatch-service/internal/ports"

	"github.com/rs/zerolog"
)

// Scheduler is the dispatch core. It owns the working-hours, buffering and
// selection rules and applies them against a Ledger, one transaction per
// operation (or per sub-step for the batch operations).
//
// A Scheduler is not safe for concurrent scheduling calls against the same
// ledger; callers must serialise operations.
type Scheduler struct {
	ledger  ports.Ledger
	cfg     Config
	log     zerolog.Logger
	metrics metrics.Recorder
	loc     *time.Location
}

func NewScheduler(ledger ports.Ledger, cfg Config, log zerolog.Logger, rec metrics.Recorder) *Scheduler {
	if rec == nil {
		rec = metrics.Nop{}
	}
	cfg.SetDefaults()
	return &Scheduler{ledger: ledger, cfg: cfg, log: log, metrics: rec, loc: cfg.OperatingLocation()}
}

func (s *Scheduler) Config() Config { return s.cfg }

// inTx runs fn inside a single ledger transaction. The transaction is committed
// only when fn returns commit=true and no error; every other path rolls back.
func (s *Scheduler) inTx(ctx context.Context, op string, fn func(tx ports.LedgerTx) (commit bool, err error)) error {
	tx, err := s.ledger.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()

	commit, err := fn(tx)
	if err != nil {
		return err
	}
	if !commit {
		return nil
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit tx: %w", op, err)
	}
	return nil
}

func (s *Scheduler) filter(tx ports.LedgerTx) AvailabilityFilter {
	return AvailabilityFilter{Tx: tx, Buffer: s.cfg.Buffer}
}

// observe records the outcome of an operation; created > 0 counts as scheduled.
func (s *Scheduler) observe(op string, began time.Time, created int, err error) {
	outcome := metrics.OutcomeRejected
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
	case created > 0:
		outcome = metrics.OutcomeScheduled
	}
	s.metrics.ObserveOperation(op, outcome, time.Since(began))
	s.metrics.AddRecords(op, created)
}

// observeLookup records a read-only operation; it never counts records.
func (s *Scheduler) observeLookup(op string, began time.Time, found int, err error) {
	outcome := metrics.OutcomeEmpty
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
	case found > 0:
		outcome = metrics.OutcomeResolved
	}
	s.metrics.ObserveOperation(op, outcome, time.Since(began))
}
