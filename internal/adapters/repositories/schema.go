package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"waste-dispatch-service/internal/domain"
)

// Initialize the ledger schema. Statements are portable across SQLite and PostgreSQL.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createVehicleTypesQuery := `
	CREATE TABLE IF NOT EXISTS vehicle_types (
		vehicle_type TEXT PRIMARY KEY,
		waste_category TEXT NOT NULL
	);
	`

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS routes (
		route_id INTEGER PRIMARY KEY,
		waste_category TEXT NOT NULL,
		length_km DOUBLE PRECISION NOT NULL
	);
	`

	createVehiclesQuery := `
	CREATE TABLE IF NOT EXISTS vehicles (
		vehicle_id INTEGER PRIMARY KEY,
		vehicle_type TEXT NOT NULL REFERENCES vehicle_types(vehicle_type),
		capacity INTEGER NOT NULL
	);
	`

	createOperatorsQuery := `
	CREATE TABLE IF NOT EXISTS operators (
		operator_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		hire_date TEXT NOT NULL
	);
	`

	createDriversQuery := `
	CREATE TABLE IF NOT EXISTS drivers (
		operator_id INTEGER NOT NULL REFERENCES operators(operator_id),
		vehicle_type TEXT NOT NULL REFERENCES vehicle_types(vehicle_type),
		PRIMARY KEY (operator_id, vehicle_type)
	);
	`

	createTechniciansQuery := `
	CREATE TABLE IF NOT EXISTS technicians (
		operator_id INTEGER NOT NULL REFERENCES operators(operator_id),
		vehicle_type TEXT NOT NULL REFERENCES vehicle_types(vehicle_type),
		PRIMARY KEY (operator_id, vehicle_type)
	);
	`

	createSitesQuery := `
	CREATE TABLE IF NOT EXISTS sites (
		site_id INTEGER PRIMARY KEY,
		waste_category TEXT NOT NULL
	);
	`

	createTripsQuery := `
	CREATE TABLE IF NOT EXISTS trips (
		route_id INTEGER NOT NULL REFERENCES routes(route_id),
		vehicle_id INTEGER NOT NULL REFERENCES vehicles(vehicle_id),
		start_unix BIGINT NOT NULL,
		end_unix BIGINT NOT NULL,
		trip_date TEXT NOT NULL,
		volume DOUBLE PRECISION,
		primary_operator_id INTEGER NOT NULL REFERENCES operators(operator_id),
		secondary_operator_id INTEGER NOT NULL REFERENCES operators(operator_id),
		site_id INTEGER NOT NULL REFERENCES sites(site_id),
		UNIQUE (route_id, trip_date),
		CHECK (primary_operator_id <> secondary_operator_id)
	);
	`

	createMaintenanceQuery := `
	CREATE TABLE IF NOT EXISTS maintenance (
		vehicle_id INTEGER NOT NULL REFERENCES vehicles(vehicle_id),
		technician_id INTEGER NOT NULL REFERENCES operators(operator_id),
		maintenance_date TEXT NOT NULL,
		PRIMARY KEY (vehicle_id, maintenance_date)
	);
	`

	createIndexQueries := []string{
		`CREATE INDEX IF NOT EXISTS idx_trips_vehicle_start ON trips(vehicle_id, start_unix);`,
		`CREATE INDEX IF NOT EXISTS idx_trips_site_date ON trips(site_id, trip_date);`,
		`CREATE INDEX IF NOT EXISTS idx_maintenance_technician_date ON maintenance(technician_id, maintenance_date);`,
	}

	statements := []string{
		createVehicleTypesQuery,
		createRoutesQuery,
		createVehiclesQuery,
		createOperatorsQuery,
		createDriversQuery,
		createTechniciansQuery,
		createSitesQuery,
		createTripsQuery,
		createMaintenanceQuery,
	}
	statements = append(statements, createIndexQueries...)

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// Populate the database with a seed. Rows that already exist are left untouched.
func SeedDB(ctx context.Context, db *sql.DB, dialect Dialect, seed Seed) error {
	c, err := seed.build()
	if err != nil {
		return fmt.Errorf("seed db: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed db: begin tx: %w", err)
	}
	defer tx.Rollback()

	exec := func(what, query string, args ...any) error {
		if _, err := tx.ExecContext(ctx, dialect.rebind(query), args...); err != nil {
			return fmt.Errorf("seed db: insert %s: %w", what, err)
		}
		return nil
	}

	for name, category := range c.vehicleTypes {
		err := exec("vehicle type "+name,
			`INSERT INTO vehicle_types (vehicle_type, waste_category) VALUES (?, ?) ON CONFLICT (vehicle_type) DO NOTHING;`,
			name, category)
		if err != nil {
			return err
		}
	}

	for _, r := range c.routes {
		err := exec(fmt.Sprintf("route_id=%d", r.RouteID),
			`INSERT INTO routes (route_id, waste_category, length_km) VALUES (?, ?, ?) ON CONFLICT (route_id) DO NOTHING;`,
			r.RouteID, r.WasteCategory, r.LengthKm)
		if err != nil {
			return err
		}
	}

	for _, v := range c.vehicles {
		err := exec(fmt.Sprintf("vehicle_id=%d", v.VehicleID),
			`INSERT INTO vehicles (vehicle_id, vehicle_type, capacity) VALUES (?, ?, ?) ON CONFLICT (vehicle_id) DO NOTHING;`,
			v.VehicleID, v.VehicleType, v.Capacity)
		if err != nil {
			return err
		}
	}

	for _, o := range c.operators {
		what := fmt.Sprintf("operator_id=%d", o.OperatorID)
		err := exec(what,
			`INSERT INTO operators (operator_id, name, hire_date) VALUES (?, ?, ?) ON CONFLICT (operator_id) DO NOTHING;`,
			o.OperatorID, o.Name, domain.DateKey(o.HireDate))
		if err != nil {
			return err
		}
		for _, t := range o.DriveTypes {
			err := exec(what+" driver "+t,
				`INSERT INTO drivers (operator_id, vehicle_type) VALUES (?, ?) ON CONFLICT (operator_id, vehicle_type) DO NOTHING;`,
				o.OperatorID, t)
			if err != nil {
				return err
			}
		}
		for _, t := range o.TechnicianTypes {
			err := exec(what+" technician "+t,
				`INSERT INTO technicians (operator_id, vehicle_type) VALUES (?, ?) ON CONFLICT (operator_id, vehicle_type) DO NOTHING;`,
				o.OperatorID, t)
			if err != nil {
				return err
			}
		}
	}

	for _, s := range c.sites {
		err := exec(fmt.Sprintf("site_id=%d", s.SiteID),
			`INSERT INTO sites (site_id, waste_category) VALUES (?, ?) ON CONFLICT (site_id) DO NOTHING;`,
			s.SiteID, s.WasteCategory)
		if err != nil {
			return err
		}
	}

	for _, a := range c.trips {
		err := exec(fmt.Sprintf("trip route_id=%d", a.RouteID),
			`INSERT INTO trips (route_id, vehicle_id, start_unix, end_unix, trip_date, volume, primary_operator_id, secondary_operator_id, site_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT (route_id, trip_date) DO NOTHING;`,
			a.RouteID, a.VehicleID, a.Start.Unix(), a.End.Unix(), domain.DateKey(a.Start), a.Volume,
			a.PrimaryOperatorID, a.SecondaryOperatorID, a.SiteID)
		if err != nil {
			return err
		}
	}

	for _, m := range c.maintenance {
		err := exec(fmt.Sprintf("maintenance vehicle_id=%d", m.VehicleID),
			`INSERT INTO maintenance (vehicle_id, technician_id, maintenance_date) VALUES (?, ?, ?) ON CONFLICT (vehicle_id, maintenance_date) DO NOTHING;`,
			m.VehicleID, m.TechnicianID, domain.DateKey(m.Date))
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed db: commit tx: %w", err)
	}

	return nil
}
