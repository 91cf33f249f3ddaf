package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/config"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/domain"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/repository"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/services/call"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/storage"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// recordingURLTTL bounds how long a signed recording link stays valid.
const recordingURLTTL = 15 * time.Minute

// CallHandler handles HTTP requests for call sessions and call history
type CallHandler struct {
	service     *call.CallService
	repoManager repository.RepositoryManager
}

// NewCallHandler creates a new call handler
func NewCallHandler(service *call.CallService, repoManager repository.RepositoryManager) *CallHandler {
	return &CallHandler{
		service:     service,
		repoManager: repoManager,
	}
}

// InitiateCallRequest represents the request to start a call session
type InitiateCallRequest struct {
	CallID    string `json:"call_id" validate:"required"`
	TenantID  string `json:"tenant_id" validate:"required"`
	UserID    string `json:"user_id,omitempty"`
	Direction string `json:"direction,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Language  string `json:"language,omitempty"`
	Model     string `json:"model,omitempty"`
}

// AgentMessageRequest represents an operator message injected into a call
type AgentMessageRequest struct {
	Text string `json:"text" validate:"required"`
}

// CallListResponse represents the response for listing calls
type CallListResponse struct {
	Calls    []*domain.Call `json:"calls"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// CallDetailResponse represents the response for a single call
type CallDetailResponse struct {
	*domain.Call
	Messages []*domain.CallMessage `json:"messages,omitempty"`
}

// ActiveSessionsResponse represents the live sessions on this instance
type ActiveSessionsResponse struct {
	Sessions []call.SessionStats `json:"sessions"`
	Total    int                 `json:"total"`
}

// RecordingResponse carries a signed download link for archived call audio
type RecordingResponse struct {
	CallID    string    `json:"call_id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// InitiateCall godoc
// @Summary Start a call session
// @Description Open the telephony stream for a call and start processing its audio and transcripts
// @Tags calls
// @Accept json
// @Produce json
// @Param call body InitiateCallRequest true "Call start request"
// @Success 201 {object} call.SessionStats "Call session started"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 409 {object} map[string]string "Call is already active"
// @Failure 502 {object} map[string]string "Telephony stream could not be opened"
// @Failure 503 {object} map[string]string "Instance is at its session limit"
// @Router /api/calls [post]
func (h *CallHandler) InitiateCall(w http.ResponseWriter, r *http.Request) {
	var req InitiateCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.CallID == "" {
		http.Error(w, "call_id is required", http.StatusBadRequest)
		return
	}
	if req.TenantID == "" {
		req.TenantID = TenantFromContext(r.Context())
	}
	if req.TenantID == "" {
		http.Error(w, "tenant_id is required", http.StatusBadRequest)
		return
	}

	sess, err := h.service.StartCall(r.Context(), call.StartCallRequest{
		CallID:    req.CallID,
		TenantID:  req.TenantID,
		UserID:    req.UserID,
		Direction: domain.CallDirection(req.Direction),
		From:      req.From,
		To:        req.To,
		Language:  req.Language,
		Model:     req.Model,
	})
	if err != nil {
		if errors.Is(err, call.ErrSessionLimit) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if h.service.GetSession(req.CallID) != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		logger.Base().Error("Failed to start call", zap.String("call_id", req.CallID), zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	stats := sess.Stats()
	if state, ok := h.service.GetTracker().Get(req.CallID); ok {
		stats.Status = state.Status
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(stats)
}

// StopCall godoc
// @Summary Stop a call session
// @Description Stop a call wherever it runs; local sessions stop synchronously, remote ones via the task bus
// @Tags calls
// @Accept json
// @Produce json
// @Param call_id path string true "Call identifier"
// @Success 202 {object} map[string]string "Stop accepted"
// @Failure 404 {object} map[string]string "No active session for the call"
// @Router /api/calls/{call_id}/stop [post]
func (h *CallHandler) StopCall(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	callID := vars["call_id"]

	if err := h.service.RequestStop(r.Context(), callID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"call_id": callID,
		"status":  "stopping",
	})
}

// SendAgentMessage godoc
// @Summary Send an operator message into a call
// @Description Deliver a text message spoken by the agent on an active call
// @Tags calls
// @Accept json
// @Produce json
// @Param call_id path string true "Call identifier"
// @Param message body AgentMessageRequest true "Message to deliver"
// @Success 202 {object} map[string]string "Message accepted"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 404 {object} map[string]string "No active session for the call"
// @Router /api/calls/{call_id}/message [post]
func (h *CallHandler) SendAgentMessage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	callID := vars["call_id"]

	var req AgentMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	if err := h.service.RelayAgentMessage(r.Context(), callID, req.Text); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"call_id": callID,
		"status":  "queued",
	})
}

// GetActiveSessions godoc
// @Summary List active call sessions
// @Description List the call sessions running on this instance with live stream, transcript and audio stats
// @Tags calls
// @Accept json
// @Produce json
// @Success 200 {object} ActiveSessionsResponse "Active sessions"
// @Router /api/calls/active [get]
func (h *CallHandler) GetActiveSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.service.GetAllSessions()

	response := &ActiveSessionsResponse{
		Sessions: make([]call.SessionStats, 0, len(sessions)),
		Total:    len(sessions),
	}
	for callID := range sessions {
		if stats, err := h.service.GetSessionStats(callID); err == nil {
			response.Sessions = append(response.Sessions, stats)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetSessionStats godoc
// @Summary Get live stats for a call
// @Description Retrieve the live session diagnostics for a call running on this instance
// @Tags calls
// @Accept json
// @Produce json
// @Param call_id path string true "Call identifier"
// @Success 200 {object} call.SessionStats "Session stats"
// @Failure 404 {object} map[string]string "No active session for the call"
// @Router /api/calls/{call_id}/stats [get]
func (h *CallHandler) GetSessionStats(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	callID := vars["call_id"]

	stats, err := h.service.GetSessionStats(callID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// GetCalls godoc
// @Summary List calls
// @Description Retrieve a paginated list of a tenant's calls, newest first
// @Tags calls
// @Accept json
// @Produce json
// @Param tenant_id query string true "Tenant ID"
// @Param status query string false "Filter by call status"
// @Param start_time query string false "Filter start time (RFC3339 format)" format(date-time)
// @Param end_time query string false "Filter end time (RFC3339 format)" format(date-time)
// @Param page query integer false "Page number" default(1) minimum(1)
// @Param page_size query integer false "Items per page" default(20) minimum(1) maximum(100)
// @Success 200 {object} CallListResponse "List of calls"
// @Failure 400 {object} map[string]string "Invalid parameters"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/calls [get]
func (h *CallHandler) GetCalls(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		tenantID = TenantFromContext(r.Context())
	}
	if tenantID == "" {
		http.Error(w, "tenant_id parameter is required", http.StatusBadRequest)
		return
	}

	page := 1
	pageSize := 20
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if pageSizeStr := r.URL.Query().Get("page_size"); pageSizeStr != "" {
		if ps, err := strconv.Atoi(pageSizeStr); err == nil && ps > 0 && ps <= 100 {
			pageSize = ps
		}
	}

	opts := repository.ListCallsOptions{
		Status: domain.CallStatus(r.URL.Query().Get("status")),
	}
	if startTimeStr := r.URL.Query().Get("start_time"); startTimeStr != "" {
		startTime, err := time.Parse(time.RFC3339, startTimeStr)
		if err != nil {
			http.Error(w, "Invalid start_time format, use RFC3339", http.StatusBadRequest)
			return
		}
		opts.From = startTime
	} else {
		// Default to last 30 days
		opts.From = time.Now().AddDate(0, 0, -30)
	}
	if endTimeStr := r.URL.Query().Get("end_time"); endTimeStr != "" {
		endTime, err := time.Parse(time.RFC3339, endTimeStr)
		if err != nil {
			http.Error(w, "Invalid end_time format, use RFC3339", http.StatusBadRequest)
			return
		}
		opts.To = endTime
	} else {
		opts.To = time.Now()
	}

	calls, err := h.repoManager.Calls().ListByTenant(r.Context(), tenantID, opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Simple pagination (in-memory)
	total := len(calls)
	start := (page - 1) * pageSize
	end := start + pageSize

	if start >= total {
		calls = []*domain.Call{}
	} else {
		if end > total {
			end = total
		}
		calls = calls[start:end]
	}

	response := &CallListResponse{
		Calls:    calls,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetCall godoc
// @Summary Get call by ID
// @Description Retrieve a call record, optionally with its transcript messages
// @Tags calls
// @Accept json
// @Produce json
// @Param call_id path string true "Call identifier"
// @Param include_messages query boolean false "Include transcript messages" default(false)
// @Success 200 {object} CallDetailResponse "Call found"
// @Failure 404 {object} map[string]string "Call not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/calls/{call_id} [get]
func (h *CallHandler) GetCall(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	callID := vars["call_id"]

	record, err := h.repoManager.Calls().GetByCallID(r.Context(), callID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "Call not found", http.StatusNotFound)
		return
	}

	response := &CallDetailResponse{Call: record}

	if r.URL.Query().Get("include_messages") == "true" {
		messages, err := h.repoManager.CallMessages().GetByCallID(r.Context(), callID)
		if err != nil {
			logger.Base().Error("Failed to get messages for call", zap.String("call_id", callID), zap.Error(err))
		} else {
			response.Messages = filterByConfidence(messages, false)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// CheckCallExists godoc
// @Summary Check if a call exists
// @Description Check whether a call record with the specified call ID exists
// @Tags calls
// @Accept json
// @Produce json
// @Param call_id path string true "Call identifier"
// @Success 200 "Call exists"
// @Failure 404 "Call not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/calls/{call_id} [head]
func (h *CallHandler) CheckCallExists(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	callID := vars["call_id"]

	exists, err := h.repoManager.Calls().Exists(r.Context(), callID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if exists {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusNotFound)
	}
}

// GetCallMessages godoc
// @Summary Get call messages
// @Description Retrieve the transcript messages of a call; low-confidence messages are hidden unless requested
// @Tags calls
// @Accept json
// @Produce json
// @Param call_id path string true "Call identifier"
// @Param include_low_confidence query boolean false "Include messages below the confidence threshold" default(false)
// @Success 200 {object} map[string]interface{} "Call messages"
// @Failure 404 {object} map[string]string "Call not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/calls/{call_id}/messages [get]
func (h *CallHandler) GetCallMessages(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	callID := vars["call_id"]

	record, err := h.repoManager.Calls().GetByCallID(r.Context(), callID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "Call not found", http.StatusNotFound)
		return
	}

	messages, err := h.repoManager.CallMessages().GetByCallID(r.Context(), callID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	includeLowConfidence := r.URL.Query().Get("include_low_confidence") == "true"
	messages = filterByConfidence(messages, includeLowConfidence)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"call_id":  callID,
		"messages": messages,
		"total":    len(messages),
	})
}

// ExportTranscriptPDF godoc
// @Summary Export call transcript as PDF
// @Description Render the call's transcript messages into a downloadable PDF document
// @Tags calls
// @Produce application/pdf
// @Param call_id path string true "Call identifier"
// @Success 200 {file} binary "Transcript PDF"
// @Failure 404 {object} map[string]string "Call not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/calls/{call_id}/transcript.pdf [get]
func (h *CallHandler) ExportTranscriptPDF(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	callID := vars["call_id"]

	record, err := h.repoManager.Calls().GetByCallID(r.Context(), callID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "Call not found", http.StatusNotFound)
		return
	}

	messages, err := h.repoManager.CallMessages().GetByCallID(r.Context(), callID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	messages = filterByConfidence(messages, false)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+storage.TranscriptPDFFilename(record))

	if err := storage.WriteTranscriptPDF(record, messages, w); err != nil {
		logger.Base().Error("Failed to render transcript PDF", zap.String("call_id", callID), zap.Error(err))
		http.Error(w, "Failed to render transcript", http.StatusInternalServerError)
		return
	}
}

// GetRecording godoc
// @Summary Get a call recording link
// @Description Return a time-limited signed URL for the call's archived agent audio
// @Tags calls
// @Accept json
// @Produce json
// @Param call_id path string true "Call identifier"
// @Success 200 {object} RecordingResponse "Signed recording URL"
// @Failure 404 {object} map[string]string "No recording for the call"
// @Router /api/calls/{call_id}/recording [get]
func (h *CallHandler) GetRecording(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	callID := vars["call_id"]

	archive := storage.GetCallArchive()
	if archive == nil {
		http.Error(w, "call archive is disabled", http.StatusNotFound)
		return
	}

	url, err := archive.RecordingURL(r.Context(), callID, recordingURLTTL)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&RecordingResponse{
		CallID:    callID,
		URL:       url,
		ExpiresAt: time.Now().Add(recordingURLTTL),
	})
}

// filterByConfidence hides transcript messages below the confidence
// threshold. Messages without a confidence value always pass.
func filterByConfidence(messages []*domain.CallMessage, includeLowConfidence bool) []*domain.CallMessage {
	if includeLowConfidence {
		return messages
	}

	filtered := make([]*domain.CallMessage, 0, len(messages))
	for _, message := range messages {
		if message.Confidence > 0 && message.Confidence < config.DefaultConfidenceThreshold {
			continue
		}
		filtered = append(filtered, message)
	}
	return filtered
}

// SetupCallRoutes sets up all call-related routes
func (h *CallHandler) SetupCallRoutes(router *mux.Router) {
	// Call session control routes
	router.HandleFunc("/calls", h.InitiateCall).Methods("POST")
	router.HandleFunc("/calls/active", h.GetActiveSessions).Methods("GET")
	router.HandleFunc("/calls/{call_id}/stop", h.StopCall).Methods("POST")
	router.HandleFunc("/calls/{call_id}/message", h.SendAgentMessage).Methods("POST")
	router.HandleFunc("/calls/{call_id}/stats", h.GetSessionStats).Methods("GET")

	// Call history routes
	router.HandleFunc("/calls", h.GetCalls).Methods("GET")
	router.HandleFunc("/calls/{call_id}", h.GetCall).Methods("GET")
	router.HandleFunc("/calls/{call_id}", h.CheckCallExists).Methods("HEAD")
	router.HandleFunc("/calls/{call_id}/messages", h.GetCallMessages).Methods("GET")
	router.HandleFunc("/calls/{call_id}/transcript.pdf", h.ExportTranscriptPDF).Methods("GET")
	router.HandleFunc("/calls/{call_id}/recording", h.GetRecording).Methods("GET")

	logger.Base().Info("Call routes registered")
}
