package handler

import (
	"encoding/json"
	"net/http"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/cache"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/core/task"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/domain"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/repository"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// VoiceSettingsHandler handles HTTP requests for per-user voice settings
type VoiceSettingsHandler struct {
	settingsRepo  repository.VoiceSettingsRepository
	settingsCache *cache.SettingsCache
	taskBus       task.Bus
}

// NewVoiceSettingsHandler creates a new voice settings handler. The task bus
// is optional; without it, writes refresh only the local cache.
func NewVoiceSettingsHandler(settingsRepo repository.VoiceSettingsRepository, settingsCache *cache.SettingsCache, taskBus task.Bus) *VoiceSettingsHandler {
	return &VoiceSettingsHandler{
		settingsRepo:  settingsRepo,
		settingsCache: settingsCache,
		taskBus:       taskBus,
	}
}

// UpdateVoiceSettingsRequest represents the request to write voice settings
type UpdateVoiceSettingsRequest struct {
	VoiceEnabled  bool    `json:"voice_enabled"`
	SelectedVoice string  `json:"selected_voice,omitempty"`
	SpeakingRate  float64 `json:"speaking_rate,omitempty"`
	Language      string  `json:"language,omitempty"`
}

// GetVoiceSettings godoc
// @Summary Get voice settings for a user
// @Description Retrieve a user's stored voice settings
// @Tags voice-settings
// @Accept json
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} domain.VoiceSettings "Voice settings"
// @Failure 404 {object} map[string]string "No settings stored for the user"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/voice-settings/{user_id} [get]
func (h *VoiceSettingsHandler) GetVoiceSettings(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID := vars["user_id"]

	// Serve from cache first; fall back to the database for settings
	// written by another instance since the last reload.
	if settings, err := h.settingsCache.Get(userID); err == nil {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(settings)
		return
	}

	settings, err := h.settingsRepo.Get(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if settings == nil {
		http.Error(w, "Voice settings not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}

// UpdateVoiceSettings godoc
// @Summary Write voice settings for a user
// @Description Create or replace a user's voice settings; the last write wins
// @Tags voice-settings
// @Accept json
// @Produce json
// @Param user_id path string true "User ID"
// @Param settings body UpdateVoiceSettingsRequest true "Settings to store"
// @Success 200 {object} domain.VoiceSettings "Stored voice settings"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/voice-settings/{user_id} [put]
func (h *VoiceSettingsHandler) UpdateVoiceSettings(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID := vars["user_id"]

	var req UpdateVoiceSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	settings := &domain.VoiceSettings{
		UserID:        userID,
		VoiceEnabled:  req.VoiceEnabled,
		SelectedVoice: req.SelectedVoice,
		SpeakingRate:  req.SpeakingRate,
		Language:      req.Language,
	}

	if err := h.settingsRepo.Upsert(r.Context(), settings); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.settingsCache.Upsert(settings); err != nil {
		logger.Base().Warn("Failed to update settings cache", zap.String("user_id", userID), zap.Error(err))
	}
	h.broadcastCacheReload(r)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}

// DeleteVoiceSettings godoc
// @Summary Delete voice settings for a user
// @Description Remove a user's stored voice settings; calls fall back to service defaults
// @Tags voice-settings
// @Accept json
// @Produce json
// @Param user_id path string true "User ID"
// @Success 204 "Settings deleted"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/voice-settings/{user_id} [delete]
func (h *VoiceSettingsHandler) DeleteVoiceSettings(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID := vars["user_id"]

	if err := h.settingsRepo.Delete(r.Context(), userID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.settingsCache.Delete(userID); err != nil {
		logger.Base().Debug("Settings not in cache", zap.String("user_id", userID))
	}
	h.broadcastCacheReload(r)

	w.WriteHeader(http.StatusNoContent)
}

// ListVoiceSettings godoc
// @Summary List all voice settings
// @Description Retrieve every stored voice settings row
// @Tags voice-settings
// @Accept json
// @Produce json
// @Success 200 {array} domain.VoiceSettings "All voice settings"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/voice-settings [get]
func (h *VoiceSettingsHandler) ListVoiceSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsRepo.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(settings)
}

// broadcastCacheReload tells every instance to re-pull settings from the
// database. The local cache is already current.
func (h *VoiceSettingsHandler) broadcastCacheReload(r *http.Request) {
	if h.taskBus == nil {
		return
	}
	err := h.taskBus.Publish(r.Context(), task.CallTask{
		Type: task.TaskTypeReloadCache,
	})
	if err != nil {
		logger.Base().Warn("Failed to broadcast settings reload", zap.Error(err))
	}
}

// SetupVoiceSettingsRoutes sets up all voice settings routes
func (h *VoiceSettingsHandler) SetupVoiceSettingsRoutes(router *mux.Router) {
	router.HandleFunc("/voice-settings", h.ListVoiceSettings).Methods("GET")
	router.HandleFunc("/voice-settings/{user_id}", h.GetVoiceSettings).Methods("GET")
	router.HandleFunc("/voice-settings/{user_id}", h.UpdateVoiceSettings).Methods("PUT")
	router.HandleFunc("/voice-settings/{user_id}", h.DeleteVoiceSettings).Methods("DELETE")

	logger.Base().Info("Voice settings routes registered")
}
