package services

import (
	"cmp"
	"slices"
	"waste-dispatch-service/internal/domain"
)

// CompareVehicles orders vehicles by capacity descending, then id ascending.
func CompareVehicles(a, b domain.Vehicle) int {
	return cmp.Or(
		cmp.Compare(b.Capacity, a.Capacity),
		cmp.Compare(a.VehicleID, b.VehicleID),
	)
}

// CompareOperators orders operators by seniority (earlier hire date first), then id ascending.
func CompareOperators(a, b domain.Operator) int {
	return cmp.Or(
		a.HireDate.Compare(b.HireDate),
		cmp.Compare(a.OperatorID, b.OperatorID),
	)
}

func CompareSites(a, b domain.Site) int {
	return cmp.Compare(a.SiteID, b.SiteID)
}

func SortVehicles(vs []domain.Vehicle)    { slices.SortFunc(vs, CompareVehicles) }
func SortOperators(ops []domain.Operator) { slices.SortFunc(ops, CompareOperators) }
func SortSites(ss []domain.Site)          { slices.SortFunc(ss, CompareSites) }

// first returns the head of an ordered candidate set.
func first[T any](items []T) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	return items[0], true
}
