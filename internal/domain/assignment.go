package domain

import (
	"fmt"
	"time"
)

// Represents one scheduled execution of a Route (a trip).
// The operator pair is stored with the larger identifier in the primary slot
// regardless of which operator was selected as driver. Volume is unknown at
// scheduling time and stays nil until the trip is reported.
type Assignment struct {
	RouteID             int
	VehicleID           int
	Start               time.Time
	End                 time.Time
	Volume              *float64
	PrimaryOperatorID   int
	SecondaryOperatorID int
	SiteID              int
}

// NewAssignment builds a trip for the given window and normalises the operator pair.
func NewAssignment(routeID, vehicleID int, window Interval, operatorA, operatorB, siteID int) (Assignment, error) {
	if operatorA == operatorB {
		return Assignment{}, fmt.Errorf("new assignment: route %d: operators must be distinct (got %d twice)", routeID, operatorA)
	}

	primary, secondary := operatorA, operatorB
	if secondary > primary {
		primary, secondary = secondary, primary
	}

	return Assignment{
		RouteID:             routeID,
		VehicleID:           vehicleID,
		Start:               window.Start,
		End:                 window.End,
		PrimaryOperatorID:   primary,
		SecondaryOperatorID: secondary,
		SiteID:              siteID,
	}, nil
}

func (a Assignment) Window() Interval { return Interval{Start: a.Start, End: a.End} }

// Date returns the calendar day the trip starts on.
func (a Assignment) Date() time.Time { return Day(a.Start) }

// Involves reports whether the operator occupies either slot of the trip.
func (a Assignment) Involves(operatorID int) bool {
	return a.PrimaryOperatorID == operatorID || a.SecondaryOperatorID == operatorID
}

// Scheduled maintenance binding a vehicle to a qualified technician for one day.
type MaintenanceEvent struct {
	VehicleID    int
	TechnicianID int
	Date         time.Time
}
