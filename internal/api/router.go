package api

import (
	"net/http"
	"waste-dispatch-service/internal/api/handlers"

	"github.com/rs/zerolog"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
// metrics is mounted at /metrics when non-nil.
func NewRouter(d handlers.Dispatcher, log zerolog.Logger, metrics http.Handler) http.Handler {
	mux := http.NewServeMux()

	h := &handlers.DispatchHandler{Dispatcher: d}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/trips", h.ScheduleTrip)
	mux.HandleFunc("/trips/batch", h.ScheduleTrips)
	mux.HandleFunc("/maintenance", h.ScheduleMaintenance)
	mux.HandleFunc("/reroutes", h.Reroute)
	mux.HandleFunc("/sphere", h.Sphere)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	return requestMiddleware(log, mux)
}
