package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
	"waste-dispatch-service/internal/domain"

	"github.com/rs/zerolog"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("encode failed")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

func writeInternalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Str("op", op).Msg("request failed")
	writeError(w, r, http.StatusInternalServerError, "internal server error")
}

// allowMethod rejects the request with 405 unless it uses method.
func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

// decodeJSON reads exactly one JSON object with no unknown fields into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

func parseDate(w http.ResponseWriter, r *http.Request, s string) (time.Time, bool) {
	d, err := domain.ParseDate(strings.TrimSpace(s))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

func requirePositive(w http.ResponseWriter, r *http.Request, field string, v int) bool {
	if v > 0 {
		return true
	}
	writeError(w, r, http.StatusBadRequest, field+" must be a positive integer")
	return false
}
