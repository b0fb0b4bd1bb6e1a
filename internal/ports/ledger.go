package ports

import (
	"context"
	"errors"
	"time"
	"waste-dispatch-service/internal/domain"
)

// ErrNotFound is returned by lookups when the referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// ResourceKind selects which Assignment slot a conflict query inspects.
type ResourceKind int

const (
	ResourceVehicle ResourceKind = iota
	// Matches either operator slot.
	ResourceOperator
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceVehicle:
		return "vehicle"
	case ResourceOperator:
		return "operator"
	default:
		return "unknown"
	}
}

// Port: the scheduling core's only view of persisted state.
// Every scheduling operation runs against one LedgerTx and either commits it
// or rolls it back; nothing is visible to other transactions before Commit.
type Ledger interface {
	BeginTx(ctx context.Context) (LedgerTx, error)
}

// LedgerTx is a transaction-scoped view over the resource catalog and the
// assignment ledger. List methods return rows ordered by identifier ascending
// unless stated otherwise. Dates are compared by calendar day.
type LedgerTx interface {
	// Routes
	GetRoute(ctx context.Context, routeID int) (domain.Route, error)
	RouteScheduledOn(ctx context.Context, routeID int, day time.Time) (bool, error)
	// Routes of the waste category with no Assignment on day.
	ListUnscheduledRoutes(ctx context.Context, wasteCategory string, day time.Time) ([]domain.Route, error)

	// Vehicles
	GetVehicle(ctx context.Context, vehicleID int) (domain.Vehicle, error)
	// All vehicles; an empty category means no filter.
	ListVehicles(ctx context.Context, wasteCategory string) ([]domain.Vehicle, error)
	VehicleTypeExists(ctx context.Context, vehicleType string) (bool, error)

	// Operators
	GetOperator(ctx context.Context, operatorID int) (domain.Operator, error)
	FindOperatorByName(ctx context.Context, name string) (domain.Operator, error)
	// Operators hired on or before asOf, with their capability sets loaded.
	ListOperators(ctx context.Context, asOf time.Time) ([]domain.Operator, error)
	// Operators qualified as technicians for the vehicle type, any hire date.
	ListTechnicians(ctx context.Context, vehicleType string) ([]domain.Operator, error)
	AddTechnicianQualification(ctx context.Context, operatorID int, vehicleType string) error

	// Sites
	GetSite(ctx context.Context, siteID int) (domain.Site, error)
	ListSites(ctx context.Context, wasteCategory string) ([]domain.Site, error)

	// Assignments
	// Assignments of the resource whose stored window intersects window.
	ConflictingAssignments(ctx context.Context, kind ResourceKind, resourceID int, window domain.Interval) ([]domain.Assignment, error)
	VehicleAssignedOn(ctx context.Context, vehicleID int, day time.Time) (bool, error)
	// Distinct (primary, secondary) operator pairs across all Assignments.
	ListOperatorPairs(ctx context.Context) ([][2]int, error)
	CreateAssignment(ctx context.Context, a domain.Assignment) error
	// Re-point every Assignment to fromSite on day at toSite; returns rows changed.
	RerouteAssignments(ctx context.Context, fromSite, toSite int, day time.Time) (int, error)

	// Maintenance
	MaintenanceOn(ctx context.Context, vehicleID int, day time.Time) (bool, error)
	// Date of the vehicle's most recent event strictly before day; ok is false when none exists.
	LatestMaintenanceBefore(ctx context.Context, vehicleID int, day time.Time) (date time.Time, ok bool, err error)
	// Whether the vehicle has an event in [from, to], both days inclusive.
	HasMaintenanceBetween(ctx context.Context, vehicleID int, from, to time.Time) (bool, error)
	TechnicianBusyOn(ctx context.Context, technicianID int, day time.Time) (bool, error)
	CreateMaintenanceEvent(ctx context.Context, e domain.MaintenanceEvent) error

	Commit() error
	Rollback() error
}
