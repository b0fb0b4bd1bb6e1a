package repositories

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
	"waste-dispatch-service/internal/domain"
	"waste-dispatch-service/internal/ports"
)

// MemoryLedger keeps the catalog and assignment ledger in process memory.
// Transactions are serialised: BeginTx takes the ledger lock and holds it
// until Commit or Rollback, and work happens on a private copy of the state.
type MemoryLedger struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	vehicleTypes map[string]string
	routes       map[int]domain.Route
	vehicles     map[int]domain.Vehicle
	operators    map[int]domain.Operator
	sites        map[int]domain.Site
	trips        []domain.Assignment
	maintenance  []domain.MaintenanceEvent
}

var _ ports.Ledger = (*MemoryLedger)(nil)

// NewMemoryLedger builds a ledger pre-populated from seed.
func NewMemoryLedger(seed Seed) (*MemoryLedger, error) {
	c, err := seed.build()
	if err != nil {
		return nil, fmt.Errorf("new memory ledger: %w", err)
	}

	st := &memState{
		vehicleTypes: c.vehicleTypes,
		routes:       make(map[int]domain.Route, len(c.routes)),
		vehicles:     make(map[int]domain.Vehicle, len(c.vehicles)),
		operators:    make(map[int]domain.Operator, len(c.operators)),
		sites:        make(map[int]domain.Site, len(c.sites)),
		trips:        c.trips,
		maintenance:  c.maintenance,
	}
	for _, r := range c.routes {
		st.routes[r.RouteID] = r
	}
	for _, v := range c.vehicles {
		st.vehicles[v.VehicleID] = v
	}
	for _, o := range c.operators {
		st.operators[o.OperatorID] = o
	}
	for _, s := range c.sites {
		st.sites[s.SiteID] = s
	}

	return &MemoryLedger{state: st}, nil
}

func (l *MemoryLedger) BeginTx(ctx context.Context) (ports.LedgerTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("memory ledger: begin tx: %w", err)
	}
	l.mu.Lock()
	return &memTx{ledger: l, st: l.state.clone()}, nil
}

// Assignments returns a snapshot of committed trips ordered by start, then route.
func (l *MemoryLedger) Assignments() []domain.Assignment {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := slices.Clone(l.state.trips)
	slices.SortFunc(out, func(a, b domain.Assignment) int {
		return cmp.Or(a.Start.Compare(b.Start), cmp.Compare(a.RouteID, b.RouteID))
	})
	return out
}

// MaintenanceEvents returns a snapshot of committed events ordered by date, then vehicle.
func (l *MemoryLedger) MaintenanceEvents() []domain.MaintenanceEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := slices.Clone(l.state.maintenance)
	slices.SortFunc(out, func(a, b domain.MaintenanceEvent) int {
		return cmp.Or(a.Date.Compare(b.Date), cmp.Compare(a.VehicleID, b.VehicleID))
	})
	return out
}

func (s *memState) clone() *memState {
	out := &memState{
		vehicleTypes: maps.Clone(s.vehicleTypes),
		routes:       maps.Clone(s.routes),
		vehicles:     maps.Clone(s.vehicles),
		operators:    make(map[int]domain.Operator, len(s.operators)),
		sites:        maps.Clone(s.sites),
		trips:        slices.Clone(s.trips),
		maintenance:  slices.Clone(s.maintenance),
	}
	for id, o := range s.operators {
		out.operators[id] = cloneOperator(o)
	}
	return out
}

func cloneOperator(o domain.Operator) domain.Operator {
	o.DriveTypes = slices.Clone(o.DriveTypes)
	o.TechnicianTypes = slices.Clone(o.TechnicianTypes)
	return o
}

type memTx struct {
	ledger *MemoryLedger
	st     *memState
	done   bool
}

func (tx *memTx) Commit() error {
	if tx.done {
		return fmt.Errorf("memory ledger: commit: transaction already finished")
	}
	tx.done = true
	tx.ledger.state = tx.st
	tx.ledger.mu.Unlock()
	return nil
}

func (tx *memTx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.ledger.mu.Unlock()
	return nil
}

func sortedValues[K comparable, V any](m map[K]V, keep func(V) bool, compare func(a, b V) int) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		if keep(v) {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, compare)
	return out
}

func (tx *memTx) GetRoute(_ context.Context, routeID int) (domain.Route, error) {
	r, ok := tx.st.routes[routeID]
	if !ok {
		return domain.Route{}, fmt.Errorf("get route %d: %w", routeID, ports.ErrNotFound)
	}
	return r, nil
}

func (tx *memTx) RouteScheduledOn(_ context.Context, routeID int, day time.Time) (bool, error) {
	return slices.ContainsFunc(tx.st.trips, func(a domain.Assignment) bool {
		return a.RouteID == routeID && startsOn(a, day)
	}), nil
}

func (tx *memTx) ListUnscheduledRoutes(ctx context.Context, wasteCategory string, day time.Time) ([]domain.Route, error) {
	return sortedValues(tx.st.routes,
		func(r domain.Route) bool {
			if r.WasteCategory != wasteCategory {
				return false
			}
			scheduled, _ := tx.RouteScheduledOn(ctx, r.RouteID, day)
			return !scheduled
		},
		func(a, b domain.Route) int { return cmp.Compare(a.RouteID, b.RouteID) },
	), nil
}

func (tx *memTx) GetVehicle(_ context.Context, vehicleID int) (domain.Vehicle, error) {
	v, ok := tx.st.vehicles[vehicleID]
	if !ok {
		return domain.Vehicle{}, fmt.Errorf("get vehicle %d: %w", vehicleID, ports.ErrNotFound)
	}
	return v, nil
}

func (tx *memTx) ListVehicles(_ context.Context, wasteCategory string) ([]domain.Vehicle, error) {
	return sortedValues(tx.st.vehicles,
		func(v domain.Vehicle) bool { return wasteCategory == "" || v.WasteCategory == wasteCategory },
		func(a, b domain.Vehicle) int { return cmp.Compare(a.VehicleID, b.VehicleID) },
	), nil
}

func (tx *memTx) VehicleTypeExists(_ context.Context, vehicleType string) (bool, error) {
	_, ok := tx.st.vehicleTypes[vehicleType]
	return ok, nil
}

func (tx *memTx) GetOperator(_ context.Context, operatorID int) (domain.Operator, error) {
	o, ok := tx.st.operators[operatorID]
	if !ok {
		return domain.Operator{}, fmt.Errorf("get operator %d: %w", operatorID, ports.ErrNotFound)
	}
	return cloneOperator(o), nil
}

func (tx *memTx) FindOperatorByName(_ context.Context, name string) (domain.Operator, error) {
	matches := sortedValues(tx.st.operators,
		func(o domain.Operator) bool { return o.Name == name },
		byOperatorID,
	)
	if len(matches) == 0 {
		return domain.Operator{}, fmt.Errorf("find operator %q: %w", name, ports.ErrNotFound)
	}
	return cloneOperator(matches[0]), nil
}

func (tx *memTx) ListOperators(_ context.Context, asOf time.Time) ([]domain.Operator, error) {
	out := sortedValues(tx.st.operators,
		func(o domain.Operator) bool { return o.HiredBy(asOf) },
		byOperatorID,
	)
	for i := range out {
		out[i] = cloneOperator(out[i])
	}
	return out, nil
}

func (tx *memTx) ListTechnicians(_ context.Context, vehicleType string) ([]domain.Operator, error) {
	out := sortedValues(tx.st.operators,
		func(o domain.Operator) bool { return o.QualifiedFor(vehicleType) },
		byOperatorID,
	)
	for i := range out {
		out[i] = cloneOperator(out[i])
	}
	return out, nil
}

func (tx *memTx) AddTechnicianQualification(_ context.Context, operatorID int, vehicleType string) error {
	o, ok := tx.st.operators[operatorID]
	if !ok {
		return fmt.Errorf("add technician qualification: operator %d: %w", operatorID, ports.ErrNotFound)
	}
	if _, ok := tx.st.vehicleTypes[vehicleType]; !ok {
		return fmt.Errorf("add technician qualification: vehicle type %q: %w", vehicleType, ports.ErrNotFound)
	}
	if o.QualifiedFor(vehicleType) {
		return nil
	}
	o = cloneOperator(o)
	o.TechnicianTypes = append(o.TechnicianTypes, vehicleType)
	tx.st.operators[operatorID] = o
	return nil
}

func byOperatorID(a, b domain.Operator) int { return cmp.Compare(a.OperatorID, b.OperatorID) }

func (tx *memTx) GetSite(_ context.Context, siteID int) (domain.Site, error) {
	s, ok := tx.st.sites[siteID]
	if !ok {
		return domain.Site{}, fmt.Errorf("get site %d: %w", siteID, ports.ErrNotFound)
	}
	return s, nil
}

func (tx *memTx) ListSites(_ context.Context, wasteCategory string) ([]domain.Site, error) {
	return sortedValues(tx.st.sites,
		func(s domain.Site) bool { return s.WasteCategory == wasteCategory },
		func(a, b domain.Site) int { return cmp.Compare(a.SiteID, b.SiteID) },
	), nil
}

func (tx *memTx) ConflictingAssignments(_ context.Context, kind ports.ResourceKind, resourceID int, window domain.Interval) ([]domain.Assignment, error) {
	var out []domain.Assignment
	for _, a := range tx.st.trips {
		var holds bool
		switch kind {
		case ports.ResourceVehicle:
			holds = a.VehicleID == resourceID
		case ports.ResourceOperator:
			holds = a.Involves(resourceID)
		default:
			return nil, fmt.Errorf("conflicting assignments: unsupported resource kind %d", kind)
		}
		if holds && a.Window().Overlaps(window) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (tx *memTx) VehicleAssignedOn(_ context.Context, vehicleID int, day time.Time) (bool, error) {
	return slices.ContainsFunc(tx.st.trips, func(a domain.Assignment) bool {
		return a.VehicleID == vehicleID && startsOn(a, day)
	}), nil
}

func (tx *memTx) ListOperatorPairs(_ context.Context) ([][2]int, error) {
	seen := make(map[[2]int]struct{})
	var out [][2]int
	for _, a := range tx.st.trips {
		p := [2]int{a.PrimaryOperatorID, a.SecondaryOperatorID}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b [2]int) int {
		return cmp.Or(cmp.Compare(a[0], b[0]), cmp.Compare(a[1], b[1]))
	})
	return out, nil
}

func (tx *memTx) CreateAssignment(ctx context.Context, a domain.Assignment) error {
	if a.PrimaryOperatorID == a.SecondaryOperatorID {
		return fmt.Errorf("create assignment: route %d: operators must be distinct", a.RouteID)
	}
	if scheduled, _ := tx.RouteScheduledOn(ctx, a.RouteID, a.Start); scheduled {
		return fmt.Errorf("create assignment: route %d already scheduled on %s", a.RouteID, domain.DateKey(a.Start))
	}
	tx.st.trips = append(tx.st.trips, a)
	return nil
}

func (tx *memTx) RerouteAssignments(_ context.Context, fromSite, toSite int, day time.Time) (int, error) {
	n := 0
	for i := range tx.st.trips {
		a := &tx.st.trips[i]
		if a.SiteID == fromSite && startsOn(*a, day) {
			a.SiteID = toSite
			n++
		}
	}
	return n, nil
}

func (tx *memTx) MaintenanceOn(_ context.Context, vehicleID int, day time.Time) (bool, error) {
	return slices.ContainsFunc(tx.st.maintenance, func(e domain.MaintenanceEvent) bool {
		return e.VehicleID == vehicleID && domain.SameDay(e.Date, day)
	}), nil
}

func (tx *memTx) LatestMaintenanceBefore(_ context.Context, vehicleID int, day time.Time) (time.Time, bool, error) {
	cutoff := domain.DateKey(day)
	var latest string
	for _, e := range tx.st.maintenance {
		key := domain.DateKey(e.Date)
		if e.VehicleID == vehicleID && key < cutoff && key > latest {
			latest = key
		}
	}
	if latest == "" {
		return time.Time{}, false, nil
	}
	date, err := domain.ParseDate(latest)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest maintenance before: %w", err)
	}
	return date, true, nil
}

func (tx *memTx) HasMaintenanceBetween(_ context.Context, vehicleID int, from, to time.Time) (bool, error) {
	lo, hi := domain.DateKey(from), domain.DateKey(to)
	return slices.ContainsFunc(tx.st.maintenance, func(e domain.MaintenanceEvent) bool {
		key := domain.DateKey(e.Date)
		return e.VehicleID == vehicleID && key >= lo && key <= hi
	}), nil
}

func (tx *memTx) TechnicianBusyOn(_ context.Context, technicianID int, day time.Time) (bool, error) {
	return slices.ContainsFunc(tx.st.maintenance, func(e domain.MaintenanceEvent) bool {
		return e.TechnicianID == technicianID && domain.SameDay(e.Date, day)
	}), nil
}

func (tx *memTx) CreateMaintenanceEvent(ctx context.Context, e domain.MaintenanceEvent) error {
	if booked, _ := tx.MaintenanceOn(ctx, e.VehicleID, e.Date); booked {
		return fmt.Errorf("create maintenance event: vehicle %d already booked on %s", e.VehicleID, domain.DateKey(e.Date))
	}
	tx.st.maintenance = append(tx.st.maintenance, domain.MaintenanceEvent{
		VehicleID:    e.VehicleID,
		TechnicianID: e.TechnicianID,
		Date:         domain.Day(e.Date),
	})
	return nil
}

// startsOn reports whether the trip starts on the calendar date of day, read in
// day's location.
func startsOn(a domain.Assignment, day time.Time) bool {
	return domain.SameDay(a.Start.In(day.Location()), day)
}
