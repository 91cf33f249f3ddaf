package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/repository"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/services/call"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/errtrack"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"github.com/gorilla/mux"
)

const healthPingTimeout = 2 * time.Second

// DiagnosticsHandler exposes operational state: health, tracked errors and
// event bus counters
type DiagnosticsHandler struct {
	service     *call.CallService
	repoManager repository.RepositoryManager
	instanceID  string
	startedAt   time.Time
}

// NewDiagnosticsHandler creates a new diagnostics handler
func NewDiagnosticsHandler(service *call.CallService, repoManager repository.RepositoryManager, instanceID string) *DiagnosticsHandler {
	return &DiagnosticsHandler{
		service:     service,
		repoManager: repoManager,
		instanceID:  instanceID,
		startedAt:   time.Now(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status      string `json:"status"`
	InstanceID  string `json:"instance_id"`
	Uptime      string `json:"uptime"`
	ActiveCalls int    `json:"active_calls"`
	Database    string `json:"database"`
}

// ErrorReportResponse represents the tracked error report
type ErrorReportResponse struct {
	Stats  errtrack.Stats   `json:"stats"`
	Errors []errtrack.Entry `json:"errors"`
}

// HealthCheck godoc
// @Summary Health check
// @Description Check if the telephony service is healthy and running
// @Tags diagnostics
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse "Service is healthy"
// @Router /health [get]
func (h *DiagnosticsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "healthy",
		InstanceID:  h.instanceID,
		Uptime:      time.Since(h.startedAt).Round(time.Second).String(),
		ActiveCalls: h.service.GetSessionCount(),
		Database:    "ok",
	}

	if h.repoManager == nil {
		resp.Database = "disabled"
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		if err := h.repoManager.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = "unreachable"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetTrackedErrors godoc
// @Summary Get tracked errors
// @Description Retrieve grouped error entries and counters from the error tracker
// @Tags diagnostics
// @Accept json
// @Produce json
// @Param include_resolved query boolean false "Include resolved entries" default(false)
// @Success 200 {object} ErrorReportResponse "Error report"
// @Router /api/diagnostics/errors [get]
func (h *DiagnosticsHandler) GetTrackedErrors(w http.ResponseWriter, r *http.Request) {
	includeResolved := r.URL.Query().Get("include_resolved") == "true"

	tracker := errtrack.Get()
	resp := ErrorReportResponse{
		Stats:  tracker.GetStats(),
		Errors: tracker.Entries(includeResolved),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ResolveTrackedError godoc
// @Summary Resolve a tracked error
// @Description Mark one tracked error entry as resolved
// @Tags diagnostics
// @Accept json
// @Produce json
// @Param id path string true "Error entry ID"
// @Success 200 {object} map[string]string "Entry resolved"
// @Failure 404 {object} map[string]string "Entry not found"
// @Router /api/diagnostics/errors/{id}/resolve [post]
func (h *DiagnosticsHandler) ResolveTrackedError(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	if !errtrack.Resolve(id) {
		http.Error(w, "Error entry not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"id": id, "status": "resolved"})
}

// GetEventBusStats godoc
// @Summary Get event bus statistics
// @Description Retrieve dispatch counters from the in-process event bus
// @Tags diagnostics
// @Accept json
// @Produce json
// @Success 200 {object} event.BusStats "Event bus statistics"
// @Router /api/diagnostics/events [get]
func (h *DiagnosticsHandler) GetEventBusStats(w http.ResponseWriter, r *http.Request) {
	stats := h.service.GetEventBus().GetStats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// SetupDiagnosticsRoutes sets up health and diagnostics routes
func (h *DiagnosticsHandler) SetupDiagnosticsRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/diagnostics/errors", h.GetTrackedErrors).Methods("GET")
	router.HandleFunc("/api/diagnostics/errors/{id}/resolve", h.ResolveTrackedError).Methods("POST")
	router.HandleFunc("/api/diagnostics/events", h.GetEventBusStats).Methods("GET")

	logger.Base().Info("Diagnostics routes registered")
}
