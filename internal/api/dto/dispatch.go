package dto

import "time"

type ScheduleTripRequest struct {
	RouteID int       `json:"route_id"`
	Start   time.Time `json:"start"`
}

type ScheduleTripResponse struct {
	Scheduled bool `json:"scheduled"`
}

// Dates are calendar days formatted as YYYY-MM-DD.
type ScheduleTripsRequest struct {
	VehicleID int    `json:"vehicle_id"`
	Date      string `json:"date"`
}

type ScheduledCountResponse struct {
	ScheduledCount int `json:"scheduled_count"`
}

type ScheduleMaintenanceRequest struct {
	Date string `json:"date"`
}

type ScheduleMaintenanceResponse struct {
	ScheduledCount int `json:"scheduled_count"`
	// Set when some due vehicles found no feasible day within the lookahead.
	Warning string `json:"warning,omitempty"`
}

type RerouteRequest struct {
	SiteID int    `json:"site_id"`
	Date   string `json:"date"`
}

type RerouteResponse struct {
	ReroutedCount int `json:"rerouted_count"`
}

type SphereResponse struct {
	OperatorID int   `json:"operator_id"`
	Workmates  []int `json:"workmates"`
}
