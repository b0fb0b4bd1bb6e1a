// Package app assembles the dispatch service from configuration: database,
// ledger, scheduler and metrics registry. Both binaries build on it.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"waste-dispatch-service/internal/adapters/repositories"
	"waste-dispatch-service/internal/config"
	"waste-dispatch-service/internal/platform/db"
	"waste-dispatch-service/internal/platform/metrics"
	"waste-dispatch-service/internal/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

type App struct {
	DB        *sql.DB
	Dialect   repositories.Dialect
	Ledger    *repositories.SQLLedger
	Scheduler *services.Scheduler
	Registry  *prometheus.Registry

	log zerolog.Logger
}

func New(cfg *config.Config, log zerolog.Logger) (*App, error) {
	dialect, err := repositories.DialectFor(cfg.Database.Driver)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	if cfg.Database.Driver == db.DriverSQLite {
		if dir := filepath.Dir(cfg.Database.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("app: create database directory: %w", err)
			}
		}
	}

	conn, err := db.Open(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom, err := metrics.NewProm(reg)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("app: metrics: %w", err)
	}

	ledger := repositories.NewSQLLedger(conn, dialect)
	sched := services.NewScheduler(ledger, cfg.Scheduling, log, prom)

	return &App{
		DB:        conn,
		Dialect:   dialect,
		Ledger:    ledger,
		Scheduler: sched,
		Registry:  reg,
		log:       log,
	}, nil
}

// Init creates the ledger schema if it does not exist.
func (a *App) Init(ctx context.Context) error {
	if err := repositories.InitSchema(ctx, a.DB); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	a.log.Info().Msg("schema ready")
	return nil
}

// Seed loads the JSON seed at path. Existing rows are kept.
func (a *App) Seed(ctx context.Context, path string) error {
	seed, err := repositories.LoadSeed(path)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := repositories.SeedDB(ctx, a.DB, a.Dialect, seed); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	a.log.Info().
		Str("path", path).
		Int("routes", len(seed.Routes)).
		Int("vehicles", len(seed.Vehicles)).
		Int("operators", len(seed.Operators)).
		Msg("seed applied")
	return nil
}

func (a *App) Close() error {
	return a.DB.Close()
}
