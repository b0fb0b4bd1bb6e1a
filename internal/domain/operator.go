package domain

import (
	"slices"
	"time"
)

// Represents an employee that can be paired onto trips or maintenance.
// Driving and technician qualifications are independent capability sets keyed
// by vehicle type; an operator may hold any combination of them, or none.
type Operator struct {
	OperatorID      int
	Name            string
	HireDate        time.Time
	DriveTypes      []string
	TechnicianTypes []string
}

func (o Operator) CanDrive(vehicleType string) bool {
	return slices.Contains(o.DriveTypes, vehicleType)
}

// IsDriver reports whether the operator holds any drive capability.
func (o Operator) IsDriver() bool { return len(o.DriveTypes) > 0 }

func (o Operator) QualifiedFor(vehicleType string) bool {
	return slices.Contains(o.TechnicianTypes, vehicleType)
}

// HiredBy reports whether the operator was hired on or before the calendar date of day.
func (o Operator) HiredBy(day time.Time) bool {
	return DateKey(o.HireDate) <= DateKey(day)
}

// TechnicianGrant is one roster line: the named operator is now qualified to
// maintain the vehicle type.
type TechnicianGrant struct {
	FirstName   string
	LastName    string
	VehicleType string
}

func (g TechnicianGrant) FullName() string { return g.FirstName + " " + g.LastName }
