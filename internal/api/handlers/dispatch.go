package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"
	"waste-dispatch-service/internal/api/dto"
	"waste-dispatch-service/internal/services"
)

// Dispatcher is the scheduling core as seen by the HTTP layer.
type Dispatcher interface {
	ScheduleTrip(ctx context.Context, routeID int, start time.Time) (bool, error)
	ScheduleTrips(ctx context.Context, vehicleID int, date time.Time) (int, error)
	ScheduleMaintenance(ctx context.Context, ref time.Time) (int, error)
	RerouteWaste(ctx context.Context, siteID int, date time.Time) (int, error)
	WorkmateSphere(ctx context.Context, operatorID int) ([]int, error)
}

type DispatchHandler struct {
	Dispatcher Dispatcher
}

// ScheduleTrip handles POST /trips.
// A trip that cannot be placed is not an error: the response reports scheduled=false.
func (h *DispatchHandler) ScheduleTrip(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.ScheduleTripRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requirePositive(w, r, "route_id", req.RouteID) {
		return
	}
	if req.Start.IsZero() {
		writeError(w, r, http.StatusBadRequest, "start is required")
		return
	}

	ok, err := h.Dispatcher.ScheduleTrip(r.Context(), req.RouteID, req.Start)
	if err != nil {
		writeInternalError(w, r, "schedule_trip", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.ScheduleTripResponse{Scheduled: ok})
}

// ScheduleTrips handles POST /trips/batch.
func (h *DispatchHandler) ScheduleTrips(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.ScheduleTripsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requirePositive(w, r, "vehicle_id", req.VehicleID) {
		return
	}
	date, ok := parseDate(w, r, req.Date)
	if !ok {
		return
	}

	n, err := h.Dispatcher.ScheduleTrips(r.Context(), req.VehicleID, date)
	if err != nil {
		writeInternalError(w, r, "schedule_trips", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.ScheduledCountResponse{ScheduledCount: n})
}

// ScheduleMaintenance handles POST /maintenance. Vehicles whose day search
// ran out are reported as a warning next to the count of booked events.
func (h *DispatchHandler) ScheduleMaintenance(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.ScheduleMaintenanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	date, ok := parseDate(w, r, req.Date)
	if !ok {
		return
	}

	n, err := h.Dispatcher.ScheduleMaintenance(r.Context(), date)
	res := dto.ScheduleMaintenanceResponse{ScheduledCount: n}
	switch {
	case errors.Is(err, services.ErrLookaheadExhausted):
		res.Warning = err.Error()
	case err != nil:
		writeInternalError(w, r, "schedule_maintenance", err)
		return
	}

	writeJSON(w, r, http.StatusOK, res)
}

// Reroute handles POST /reroutes.
func (h *DispatchHandler) Reroute(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.RerouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requirePositive(w, r, "site_id", req.SiteID) {
		return
	}
	date, ok := parseDate(w, r, req.Date)
	if !ok {
		return
	}

	n, err := h.Dispatcher.RerouteWaste(r.Context(), req.SiteID, date)
	if err != nil {
		writeInternalError(w, r, "reroute_waste", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.RerouteResponse{ReroutedCount: n})
}

// Sphere handles GET /sphere?operator_id=N.
func (h *DispatchHandler) Sphere(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	id, err := strconv.Atoi(r.URL.Query().Get("operator_id"))
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "operator_id must be a positive integer")
		return
	}

	workmates, err := h.Dispatcher.WorkmateSphere(r.Context(), id)
	if err != nil {
		writeInternalError(w, r, "workmate_sphere", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.SphereResponse{OperatorID: id, Workmates: workmates})
}
