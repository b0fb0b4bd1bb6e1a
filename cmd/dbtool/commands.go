package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"waste-dispatch-service/internal/adapters/roster"
	"waste-dispatch-service/internal/app"
	"waste-dispatch-service/internal/config"
	"waste-dispatch-service/internal/domain"
	"waste-dispatch-service/internal/services"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(
		initCmd(),
		seedCmd(),
		scheduleTripCmd(),
		scheduleTripsCmd(),
		scheduleMaintenanceCmd(),
		rerouteCmd(),
		sphereCmd(),
		updateTechniciansCmd(),
	)
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the ledger schema",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ *config.Config, a *app.App) error {
			return a.Init(cmd.Context())
		}),
	}
}

func seedCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the schema and load a JSON seed",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, cfg *config.Config, a *app.App) error {
			if path == "" {
				path = cfg.Seed.Path
			}
			if path == "" {
				return errors.New("seed: --file or seed.path is required")
			}
			if err := a.Init(cmd.Context()); err != nil {
				return err
			}
			return a.Seed(cmd.Context(), path)
		}),
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "JSON seed file (defaults to seed.path)")
	return cmd
}

func scheduleTripCmd() *cobra.Command {
	var (
		routeID int
		start   string
	)
	cmd := &cobra.Command{
		Use:   "schedule-trip",
		Short: "Schedule one run of a route",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ *config.Config, a *app.App) error {
			at, err := time.Parse(time.RFC3339, start)
			if err != nil {
				return fmt.Errorf("schedule-trip: --start must be RFC 3339: %w", err)
			}
			ok, err := a.Scheduler.ScheduleTrip(cmd.Context(), routeID, at)
			if err != nil {
				return err
			}
			printf(cmd, "scheduled=%t\n", ok)
			return nil
		}),
	}
	cmd.Flags().IntVar(&routeID, "route", 0, "route id")
	cmd.Flags().StringVar(&start, "start", "", "start time, e.g. 2023-05-04T09:00:00Z")
	_ = cmd.MarkFlagRequired("route")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func scheduleTripsCmd() *cobra.Command {
	var (
		vehicleID int
		date      string
	)
	cmd := &cobra.Command{
		Use:   "schedule-trips",
		Short: "Fill one vehicle's day with unscheduled routes",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ *config.Config, a *app.App) error {
			day, err := domain.ParseDate(date)
			if err != nil {
				return fmt.Errorf("schedule-trips: --date: %w", err)
			}
			n, err := a.Scheduler.ScheduleTrips(cmd.Context(), vehicleID, day)
			if err != nil {
				return err
			}
			printf(cmd, "scheduled_count=%d\n", n)
			return nil
		}),
	}
	cmd.Flags().IntVar(&vehicleID, "vehicle", 0, "vehicle id")
	cmd.Flags().StringVar(&date, "date", "", "day to fill, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("vehicle")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func scheduleMaintenanceCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "schedule-maintenance",
		Short: "Book maintenance for every vehicle that is due",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ *config.Config, a *app.App) error {
			ref, err := domain.ParseDate(date)
			if err != nil {
				return fmt.Errorf("schedule-maintenance: --date: %w", err)
			}
			n, err := a.Scheduler.ScheduleMaintenance(cmd.Context(), ref)
			if err != nil && !errors.Is(err, services.ErrLookaheadExhausted) {
				return err
			}
			printf(cmd, "scheduled_count=%d\n", n)
			if err != nil {
				printf(cmd, "warning: %s\n", strings.ReplaceAll(err.Error(), "\n", "; "))
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&date, "date", "", "reference day, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func rerouteCmd() *cobra.Command {
	var (
		siteID int
		date   string
	)
	cmd := &cobra.Command{
		Use:   "reroute",
		Short: "Move a closed site's trips to a substitute site",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ *config.Config, a *app.App) error {
			day, err := domain.ParseDate(date)
			if err != nil {
				return fmt.Errorf("reroute: --date: %w", err)
			}
			n, err := a.Scheduler.RerouteWaste(cmd.Context(), siteID, day)
			if err != nil {
				return err
			}
			printf(cmd, "rerouted_count=%d\n", n)
			return nil
		}),
	}
	cmd.Flags().IntVar(&siteID, "site", 0, "closed site id")
	cmd.Flags().StringVar(&date, "date", "", "day of the closure, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("site")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func sphereCmd() *cobra.Command {
	var operatorID int
	cmd := &cobra.Command{
		Use:   "sphere",
		Short: "List every operator transitively connected to a driver through shared trips",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ *config.Config, a *app.App) error {
			ids, err := a.Scheduler.WorkmateSphere(cmd.Context(), operatorID)
			if err != nil {
				return err
			}
			parts := make([]string, 0, len(ids))
			for _, id := range ids {
				parts = append(parts, fmt.Sprint(id))
			}
			printf(cmd, "workmates=[%s]\n", strings.Join(parts, ","))
			return nil
		}),
	}
	cmd.Flags().IntVar(&operatorID, "operator", 0, "operator id")
	_ = cmd.MarkFlagRequired("operator")
	return cmd
}

func updateTechniciansCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "update-technicians",
		Short: "Apply a technician qualifications roster",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ *config.Config, a *app.App) error {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("update-technicians: open roster: %w", err)
			}
			defer f.Close()

			grants, err := roster.Parse(f)
			if err != nil {
				return err
			}
			n, err := a.Scheduler.UpdateTechnicians(cmd.Context(), grants)
			if err != nil {
				return err
			}
			printf(cmd, "qualifications_added=%d\n", n)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "roster file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
