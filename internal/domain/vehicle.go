package domain

// Collection vehicle. The waste category is derived from the vehicle type and
// is denormalised here so callers do not need to resolve the type table.
type Vehicle struct {
	VehicleID     int
	VehicleType   string
	Capacity      int
	WasteCategory string
}

// Disposal site accepting a single waste category.
type Site struct {
	SiteID        int
	WasteCategory string
}
