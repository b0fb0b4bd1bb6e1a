package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"
	"waste-dispatch-service/internal/api"
	"waste-dispatch-service/internal/app"
	"waste-dispatch-service/internal/config"
	"waste-dispatch-service/internal/platform/obs"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// main is the application composition root.
// It wires the SQL ledger behind ports, the scheduler and metrics, and starts the HTTP server.
func main() {
	cfgPath := flag.String("config", "", "optional YAML or JSON config file")
	flag.Parse()

	log := obs.NewLogger("server")

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build app")
	}
	defer a.Close()

	// Initialize schema and apply the optional seed on startup for local runs.
	if err := a.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("init schema")
	}
	if cfg.Seed.Path != "" {
		if err := a.Seed(ctx, cfg.Seed.Path); err != nil {
			log.Fatal().Err(err).Msg("seed")
		}
	}

	router := api.NewRouter(a.Scheduler, log, promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Str("driver", cfg.Database.Driver).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
		log.Info().Msg("server stopped")
	}
}
