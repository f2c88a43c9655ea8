package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/huangsam/barriernavi/core"
	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/schema"
)

// Error messages returned to clients.
const (
	msgStationNotFound = "Station not found"
	msgUserIDRequired  = "ユーザーIDが必要です"
	msgUserNotFound    = "ユーザーが見つかりません"
)

// StationHandler serves the station API over a StationService.
type StationHandler struct {
	service *StationService
	repo    Repository
	metrics *Collector
}

// NewStationHandler creates a new station handler.
func NewStationHandler(service *StationService, repo Repository, metricsCollector *Collector) *StationHandler {
	return &StationHandler{
		service: service,
		repo:    repo,
		metrics: metricsCollector,
	}
}

// envelope is the response shape shared by every API route.
type envelope struct {
	Success    bool   `json:"success"`
	Data       any    `json:"data,omitempty"`
	Count      *int   `json:"count,omitempty"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ListStations handles GET /api/{category}/stations
func (h *StationHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	category := schema.Category(mux.Vars(r)["category"])
	query, err := core.DecodeQuery(category, r.URL.Query())
	if err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	page, err := h.service.ListStations(r.Context(), query)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	h.sendJSON(w, envelope{
		Success:    true,
		Data:       page.Stations,
		Count:      &page.Count,
		TotalCount: &page.TotalCount,
	}, http.StatusOK)
}

// GetStation handles GET /api/{category}/stations/{id}
func (h *StationHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		h.sendError(w, r, "invalid station id", http.StatusBadRequest)
		return
	}
	weights, err := core.ParseWeightsParam(r.URL.Query().Get("weights"))
	if err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	detail, err := h.service.GetStation(r.Context(), schema.Category(vars["category"]), id, weights)
	if errors.Is(err, schema.ErrNotFound) {
		h.sendError(w, r, msgStationNotFound, http.StatusNotFound)
		return
	}
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	h.sendJSON(w, envelope{Success: true, Data: detail}, http.StatusOK)
}

// CountStations handles GET /api/stations/count. It takes the list
// parameters plus an optional category, body when absent.
func (h *StationHandler) CountStations(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	category := schema.BodyCategory
	if c := params.Get("category"); c != "" {
		category = schema.Category(c)
	}
	query, err := core.DecodeQuery(category, params)
	if err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	query.Offset, query.Limit = 0, 0

	page, err := h.service.ListStations(r.Context(), query)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	h.sendJSON(w, envelope{Success: true, Count: &page.TotalCount}, http.StatusOK)
}

// ListPrefectures handles GET /api/stations/prefectures
func (h *StationHandler) ListPrefectures(w http.ResponseWriter, r *http.Request) {
	prefectures, err := h.service.ListPrefectures(r.Context())
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	h.sendJSON(w, envelope{Success: true, Data: prefectures}, http.StatusOK)
}

// GetStatistics handles GET /api/stations/statistics
func (h *StationHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStatistics(r.Context())
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	h.sendJSON(w, envelope{Success: true, Data: stats}, http.StatusOK)
}

// ListLines handles GET /api/lines
func (h *StationHandler) ListLines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.service.ListLines(r.Context())
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	h.sendJSON(w, envelope{Success: true, Data: lines}, http.StatusOK)
}

// GetProfile handles GET /api/auth/profile?user_id=
func (h *StationHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		h.sendError(w, r, msgUserIDRequired, http.StatusBadRequest)
		return
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		h.sendError(w, r, msgUserNotFound, http.StatusNotFound)
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if errors.Is(err, schema.ErrNotFound) {
		h.sendError(w, r, msgUserNotFound, http.StatusNotFound)
		return
	}
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	h.sendJSON(w, envelope{Success: true, Data: profile}, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *StationHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK
	if err := h.repo.Ping(r.Context()); err != nil {
		contract.LogWarn("health check failed", err)
		status["status"] = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	h.sendJSON(w, status, code)
}

// sendServiceError maps validation errors to 400 and everything else to 500.
func (h *StationHandler) sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, schema.ErrUnknownCategory),
		errors.Is(err, schema.ErrInvalidMetricKey),
		errors.Is(err, schema.ErrInvalidWeight):
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
	default:
		contract.LogWarn("request "+r.URL.Path+" failed", err)
		h.metrics.RecordAPIError("internal_error", routeName(r))
		h.sendError(w, r, err.Error(), http.StatusInternalServerError)
	}
}

// sendJSON sends a JSON response
func (h *StationHandler) sendJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		contract.LogWarn("failed to write response", err)
	}
}

// sendError sends an error response
func (h *StationHandler) sendError(w http.ResponseWriter, _ *http.Request, message string, statusCode int) {
	h.sendJSON(w, envelope{Success: false, Error: message}, statusCode)
}

// RegisterRoutes registers all station API routes
func (h *StationHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/{category:body|hearing|vision}/stations", h.ListStations).Methods("GET")
	api.HandleFunc("/{category:body|hearing|vision}/stations/{id:[0-9]+}", h.GetStation).Methods("GET")
	api.HandleFunc("/stations/count", h.CountStations).Methods("GET")
	api.HandleFunc("/stations/prefectures", h.ListPrefectures).Methods("GET")
	api.HandleFunc("/stations/statistics", h.GetStatistics).Methods("GET")
	api.HandleFunc("/lines", h.ListLines).Methods("GET")
	api.HandleFunc("/auth/profile", h.GetProfile).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// instrument records request metrics by route template and logs each request.
func (h *StationHandler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := routeName(r)
		duration := time.Since(start)
		h.metrics.APIRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
		h.metrics.RecordAPIRequest(route, r.Method, strconv.Itoa(rec.status))
		contract.LogInfo("%s %s %d %s", r.Method, r.URL.RequestURI(), rec.status, duration.Round(time.Microsecond))
	})
}

// routeName returns the matched route template, keeping label cardinality
// bounded when paths carry ids.
func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}
