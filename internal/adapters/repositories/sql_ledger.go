package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"waste-dispatch-service/internal/domain"
	"waste-dispatch-service/internal/ports"
)

// Dialect selects placeholder syntax and transaction options for a driver.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// DialectFor maps a database/sql driver name to its Dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "pgx", "postgres":
		return DialectPostgres, nil
	default:
		return 0, fmt.Errorf("dialect for: unsupported driver %q", driver)
	}
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) txOptions() *sql.TxOptions {
	if d == DialectPostgres {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead}
	}
	return nil
}

// Adapter: ports.Ledger backed by a SQL database.
type SQLLedger struct {
	DB      *sql.DB
	Dialect Dialect
}

var _ ports.Ledger = (*SQLLedger)(nil)

func NewSQLLedger(db *sql.DB, dialect Dialect) *SQLLedger {
	return &SQLLedger{DB: db, Dialect: dialect}
}

func (l *SQLLedger) BeginTx(ctx context.Context) (ports.LedgerTx, error) {
	if l.DB == nil {
		return nil, errors.New("sql ledger: begin tx: DB is nil")
	}
	tx, err := l.DB.BeginTx(ctx, l.Dialect.txOptions())
	if err != nil {
		return nil, fmt.Errorf("sql ledger: begin tx: %w", err)
	}
	return &sqlTx{tx: tx, dialect: l.Dialect}, nil
}

type sqlTx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *sqlTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("sql ledger: commit: %w", err)
	}
	return nil
}

func (t *sqlTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("sql ledger: rollback: %w", err)
	}
	return nil
}

func (t *sqlTx) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, t.dialect.rebind(query), args...)
}

func (t *sqlTx) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.dialect.rebind(query), args...)
}

func (t *sqlTx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.dialect.rebind(query), args...)
}

func (t *sqlTx) exists(ctx context.Context, op, query string, args ...any) (bool, error) {
	var one int
	err := t.queryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// collect scans every row with scan and closes rows.
func collect[T any](rows *sql.Rows, op string, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return out, nil
}

func scanRoute(rows *sql.Rows) (domain.Route, error) {
	var r domain.Route
	err := rows.Scan(&r.RouteID, &r.WasteCategory, &r.LengthKm)
	return r, err
}

func (t *sqlTx) GetRoute(ctx context.Context, routeID int) (domain.Route, error) {
	r := domain.Route{RouteID: routeID}
	err := t.queryRow(ctx, `SELECT waste_category, length_km FROM routes WHERE route_id = ?;`, routeID).
		Scan(&r.WasteCategory, &r.LengthKm)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Route{}, fmt.Errorf("get route %d: %w", routeID, ports.ErrNotFound)
	}
	if err != nil {
		return domain.Route{}, fmt.Errorf("get route %d: %w", routeID, err)
	}
	return r, nil
}

func (t *sqlTx) RouteScheduledOn(ctx context.Context, routeID int, day time.Time) (bool, error) {
	return t.exists(ctx, "route scheduled on",
		`SELECT 1 FROM trips WHERE route_id = ? AND trip_date = ? LIMIT 1;`,
		routeID, domain.DateKey(day))
}

func (t *sqlTx) ListUnscheduledRoutes(ctx context.Context, wasteCategory string, day time.Time) ([]domain.Route, error) {
	rows, err := t.query(ctx, `
	SELECT r.route_id, r.waste_category, r.length_km
	FROM routes r
	WHERE r.waste_category = ?
		AND NOT EXISTS (SELECT 1 FROM trips t WHERE t.route_id = r.route_id AND t.trip_date = ?)
	ORDER BY r.route_id;
	`, wasteCategory, domain.DateKey(day))
	if err != nil {
		return nil, fmt.Errorf("list unscheduled routes: %w", err)
	}
	return collect(rows, "list unscheduled routes", scanRoute)
}

const vehicleColumns = `v.vehicle_id, v.vehicle_type, v.capacity, vt.waste_category
	FROM vehicles v JOIN vehicle_types vt ON vt.vehicle_type = v.vehicle_type`

func scanVehicle(rows *sql.Rows) (domain.Vehicle, error) {
	var v domain.Vehicle
	err := rows.Scan(&v.VehicleID, &v.VehicleType, &v.Capacity, &v.WasteCategory)
	return v, err
}

func (t *sqlTx) GetVehicle(ctx context.Context, vehicleID int) (domain.Vehicle, error) {
	var v domain.Vehicle
	err := t.queryRow(ctx, `SELECT `+vehicleColumns+` WHERE v.vehicle_id = ?;`, vehicleID).
		Scan(&v.VehicleID, &v.VehicleType, &v.Capacity, &v.WasteCategory)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Vehicle{}, fmt.Errorf("get vehicle %d: %w", vehicleID, ports.ErrNotFound)
	}
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("get vehicle %d: %w", vehicleID, err)
	}
	return v, nil
}

func (t *sqlTx) ListVehicles(ctx context.Context, wasteCategory string) ([]domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns
	var args []any
	if wasteCategory != "" {
		query += ` WHERE vt.waste_category = ?`
		args = append(args, wasteCategory)
	}
	rows, err := t.query(ctx, query+` ORDER BY v.vehicle_id;`, args...)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	return collect(rows, "list vehicles", scanVehicle)
}

func (t *sqlTx) VehicleTypeExists(ctx context.Context, vehicleType string) (bool, error) {
	return t.exists(ctx, "vehicle type exists",
		`SELECT 1 FROM vehicle_types WHERE vehicle_type = ?;`, vehicleType)
}

type operatorRow struct {
	id       int
	name     string
	hireDate string
}

func scanOperatorRow(rows *sql.Rows) (operatorRow, error) {
	var r operatorRow
	err := rows.Scan(&r.id, &r.name, &r.hireDate)
	return r, err
}

// loadOperators resolves hire dates and capability sets for the given rows.
func (t *sqlTx) loadOperators(ctx context.Context, op string, rows []operatorRow) ([]domain.Operator, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	drives, err := t.capabilities(ctx, op, "drivers")
	if err != nil {
		return nil, err
	}
	techs, err := t.capabilities(ctx, op, "technicians")
	if err != nil {
		return nil, err
	}

	out := make([]domain.Operator, 0, len(rows))
	for _, r := range rows {
		hired, err := domain.ParseDate(r.hireDate)
		if err != nil {
			return nil, fmt.Errorf("%s: operator %d: hire date: %w", op, r.id, err)
		}
		out = append(out, domain.Operator{
			OperatorID:      r.id,
			Name:            r.name,
			HireDate:        hired,
			DriveTypes:      drives[r.id],
			TechnicianTypes: techs[r.id],
		})
	}
	return out, nil
}

func (t *sqlTx) capabilities(ctx context.Context, op, table string) (map[int][]string, error) {
	rows, err := t.query(ctx, `SELECT operator_id, vehicle_type FROM `+table+` ORDER BY operator_id, vehicle_type;`)
	if err != nil {
		return nil, fmt.Errorf("%s: load %s: %w", op, table, err)
	}
	type grant struct {
		id int
		vt string
	}
	grants, err := collect(rows, op, func(rows *sql.Rows) (grant, error) {
		var g grant
		err := rows.Scan(&g.id, &g.vt)
		return g, err
	})
	if err != nil {
		return nil, err
	}

	out := make(map[int][]string)
	for _, g := range grants {
		out[g.id] = append(out[g.id], g.vt)
	}
	return out, nil
}

func (t *sqlTx) operatorsWhere(ctx context.Context, op, where string, args ...any) ([]domain.Operator, error) {
	rows, err := t.query(ctx, `SELECT o.operator_id, o.name, o.hire_date FROM operators o WHERE `+where+` ORDER BY o.operator_id;`, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	list, err := collect(rows, op, scanOperatorRow)
	if err != nil {
		return nil, err
	}
	return t.loadOperators(ctx, op, list)
}

func (t *sqlTx) GetOperator(ctx context.Context, operatorID int) (domain.Operator, error) {
	ops, err := t.operatorsWhere(ctx, "get operator", `o.operator_id = ?`, operatorID)
	if err != nil {
		return domain.Operator{}, err
	}
	if len(ops) == 0 {
		return domain.Operator{}, fmt.Errorf("get operator %d: %w", operatorID, ports.ErrNotFound)
	}
	return ops[0], nil
}

func (t *sqlTx) FindOperatorByName(ctx context.Context, name string) (domain.Operator, error) {
	ops, err := t.operatorsWhere(ctx, "find operator", `o.name = ?`, name)
	if err != nil {
		return domain.Operator{}, err
	}
	if len(ops) == 0 {
		return domain.Operator{}, fmt.Errorf("find operator %q: %w", name, ports.ErrNotFound)
	}
	return ops[0], nil
}

func (t *sqlTx) ListOperators(ctx context.Context, asOf time.Time) ([]domain.Operator, error) {
	return t.operatorsWhere(ctx, "list operators", `o.hire_date <= ?`, domain.DateKey(asOf))
}

func (t *sqlTx) ListTechnicians(ctx context.Context, vehicleType string) ([]domain.Operator, error) {
	return t.operatorsWhere(ctx, "list technicians",
		`EXISTS (SELECT 1 FROM technicians t WHERE t.operator_id = o.operator_id AND t.vehicle_type = ?)`,
		vehicleType)
}

func (t *sqlTx) AddTechnicianQualification(ctx context.Context, operatorID int, vehicleType string) error {
	_, err := t.exec(ctx,
		`INSERT INTO technicians (operator_id, vehicle_type) VALUES (?, ?) ON CONFLICT (operator_id, vehicle_type) DO NOTHING;`,
		operatorID, vehicleType)
	if err != nil {
		return fmt.Errorf("add technician qualification: operator %d type %q: %w", operatorID, vehicleType, err)
	}
	return nil
}

func scanSite(rows *sql.Rows) (domain.Site, error) {
	var s domain.Site
	err := rows.Scan(&s.SiteID, &s.WasteCategory)
	return s, err
}

func (t *sqlTx) GetSite(ctx context.Context, siteID int) (domain.Site, error) {
	s := domain.Site{SiteID: siteID}
	err := t.queryRow(ctx, `SELECT waste_category FROM sites WHERE site_id = ?;`, siteID).Scan(&s.WasteCategory)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Site{}, fmt.Errorf("get site %d: %w", siteID, ports.ErrNotFound)
	}
	if err != nil {
		return domain.Site{}, fmt.Errorf("get site %d: %w", siteID, err)
	}
	return s, nil
}

func (t *sqlTx) ListSites(ctx context.Context, wasteCategory string) ([]domain.Site, error) {
	rows, err := t.query(ctx, `SELECT site_id, waste_category FROM sites WHERE waste_category = ? ORDER BY site_id;`, wasteCategory)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return collect(rows, "list sites", scanSite)
}

const tripColumns = `route_id, vehicle_id, start_unix, end_unix, volume, primary_operator_id, secondary_operator_id, site_id`

func scanTrip(rows *sql.Rows) (domain.Assignment, error) {
	var (
		a          domain.Assignment
		start, end int64
		volume     sql.NullFloat64
	)
	err := rows.Scan(&a.RouteID, &a.VehicleID, &start, &end, &volume, &a.PrimaryOperatorID, &a.SecondaryOperatorID, &a.SiteID)
	if err != nil {
		return domain.Assignment{}, err
	}
	a.Start = time.Unix(start, 0).UTC()
	a.End = time.Unix(end, 0).UTC()
	if volume.Valid {
		v := volume.Float64
		a.Volume = &v
	}
	return a, nil
}

func (t *sqlTx) ConflictingAssignments(ctx context.Context, kind ports.ResourceKind, resourceID int, window domain.Interval) ([]domain.Assignment, error) {
	var holder string
	var args []any
	switch kind {
	case ports.ResourceVehicle:
		holder = `vehicle_id = ?`
		args = []any{resourceID}
	case ports.ResourceOperator:
		holder = `(primary_operator_id = ? OR secondary_operator_id = ?)`
		args = []any{resourceID, resourceID}
	default:
		return nil, fmt.Errorf("conflicting assignments: unsupported resource kind %d", kind)
	}
	args = append(args, window.End.Unix(), window.Start.Unix())

	rows, err := t.query(ctx, `SELECT `+tripColumns+` FROM trips
	WHERE `+holder+` AND start_unix < ? AND ? < end_unix
	ORDER BY start_unix, route_id;`, args...)
	if err != nil {
		return nil, fmt.Errorf("conflicting assignments: %s %d: %w", kind, resourceID, err)
	}
	return collect(rows, "conflicting assignments", scanTrip)
}

func (t *sqlTx) VehicleAssignedOn(ctx context.Context, vehicleID int, day time.Time) (bool, error) {
	return t.exists(ctx, "vehicle assigned on",
		`SELECT 1 FROM trips WHERE vehicle_id = ? AND trip_date = ? LIMIT 1;`,
		vehicleID, domain.DateKey(day))
}

func (t *sqlTx) ListOperatorPairs(ctx context.Context) ([][2]int, error) {
	rows, err := t.query(ctx, `
	SELECT DISTINCT primary_operator_id, secondary_operator_id
	FROM trips
	ORDER BY primary_operator_id, secondary_operator_id;
	`)
	if err != nil {
		return nil, fmt.Errorf("list operator pairs: %w", err)
	}
	return collect(rows, "list operator pairs", func(rows *sql.Rows) ([2]int, error) {
		var p [2]int
		err := rows.Scan(&p[0], &p[1])
		return p, err
	})
}

func (t *sqlTx) CreateAssignment(ctx context.Context, a domain.Assignment) error {
	_, err := t.exec(ctx, `
	INSERT INTO trips (route_id, vehicle_id, start_unix, end_unix, trip_date, volume, primary_operator_id, secondary_operator_id, site_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
	`, a.RouteID, a.VehicleID, a.Start.Unix(), a.End.Unix(), domain.DateKey(a.Start), a.Volume,
		a.PrimaryOperatorID, a.SecondaryOperatorID, a.SiteID)
	if err != nil {
		return fmt.Errorf("create assignment: route %d on %s: %w", a.RouteID, domain.DateKey(a.Start), err)
	}
	return nil
}

func (t *sqlTx) RerouteAssignments(ctx context.Context, fromSite, toSite int, day time.Time) (int, error) {
	res, err := t.exec(ctx, `UPDATE trips SET site_id = ? WHERE site_id = ? AND trip_date = ?;`,
		toSite, fromSite, domain.DateKey(day))
	if err != nil {
		return 0, fmt.Errorf("reroute assignments: site %d -> %d: %w", fromSite, toSite, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reroute assignments: rows affected: %w", err)
	}
	return int(n), nil
}

func (t *sqlTx) MaintenanceOn(ctx context.Context, vehicleID int, day time.Time) (bool, error) {
	return t.exists(ctx, "maintenance on",
		`SELECT 1 FROM maintenance WHERE vehicle_id = ? AND maintenance_date = ?;`,
		vehicleID, domain.DateKey(day))
}

func (t *sqlTx) LatestMaintenanceBefore(ctx context.Context, vehicleID int, day time.Time) (time.Time, bool, error) {
	var latest sql.NullString
	err := t.queryRow(ctx,
		`SELECT MAX(maintenance_date) FROM maintenance WHERE vehicle_id = ? AND maintenance_date < ?;`,
		vehicleID, domain.DateKey(day)).Scan(&latest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest maintenance before: vehicle %d: %w", vehicleID, err)
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	date, err := domain.ParseDate(latest.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest maintenance before: vehicle %d: %w", vehicleID, err)
	}
	return date, true, nil
}

func (t *sqlTx) HasMaintenanceBetween(ctx context.Context, vehicleID int, from, to time.Time) (bool, error) {
	return t.exists(ctx, "has maintenance between",
		`SELECT 1 FROM maintenance WHERE vehicle_id = ? AND maintenance_date >= ? AND maintenance_date <= ? LIMIT 1;`,
		vehicleID, domain.DateKey(from), domain.DateKey(to))
}

func (t *sqlTx) TechnicianBusyOn(ctx context.Context, technicianID int, day time.Time) (bool, error) {
	return t.exists(ctx, "technician busy on",
		`SELECT 1 FROM maintenance WHERE technician_id = ? AND maintenance_date = ? LIMIT 1;`,
		technicianID, domain.DateKey(day))
}

func (t *sqlTx) CreateMaintenanceEvent(ctx context.Context, e domain.MaintenanceEvent) error {
	_, err := t.exec(ctx,
		`INSERT INTO maintenance (vehicle_id, technician_id, maintenance_date) VALUES (?, ?, ?);`,
		e.VehicleID, e.TechnicianID, domain.DateKey(e.Date))
	if err != nil {
		return fmt.Errorf("create maintenance event: vehicle %d on %s: %w", e.VehicleID, domain.DateKey(e.Date), err)
	}
	return nil
}
