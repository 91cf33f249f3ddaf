package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/cache"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/domain"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The settings cache is process-wide, so every test uses its own user IDs.

func newVoiceSettingsRouter(repos *stubRepoManager) *mux.Router {
	h := NewVoiceSettingsHandler(repos.settings, cache.NewSettingsCache(), nil)
	router := mux.NewRouter()
	h.SetupVoiceSettingsRoutes(router.PathPrefix("/api").Subrouter())
	return router
}

func TestGetVoiceSettings_DatabaseFallback(t *testing.T) {
	repos := newStubRepoManager()
	repos.settings.rows["vs-fallback-user"] = &domain.VoiceSettings{
		UserID:        "vs-fallback-user",
		VoiceEnabled:  true,
		SelectedVoice: "aurora",
		SpeakingRate:  1.1,
	}
	router := newVoiceSettingsRouter(repos)

	// Not in the cache, so the handler reads the database.
	req := httptest.NewRequest("GET", "/api/voice-settings/vs-fallback-user", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var settings domain.VoiceSettings
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&settings))
	assert.Equal(t, "aurora", settings.SelectedVoice)
	assert.True(t, settings.VoiceEnabled)
}

func TestGetVoiceSettings_NotFound(t *testing.T) {
	router := newVoiceSettingsRouter(newStubRepoManager())

	req := httptest.NewRequest("GET", "/api/voice-settings/vs-nobody", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateVoiceSettings_WritesThroughCache(t *testing.T) {
	repos := newStubRepoManager()
	router := newVoiceSettingsRouter(repos)

	body := `{"voice_enabled":true,"selected_voice":"zephyr","speaking_rate":0.9,"language":"de"}`
	req := httptest.NewRequest("PUT", "/api/voice-settings/vs-write-user", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, repos.settings.rows["vs-write-user"])
	assert.Equal(t, "zephyr", repos.settings.rows["vs-write-user"].SelectedVoice)

	// Reads now come from the cache: a broken database must not matter.
	repos.settings.err = errors.New("db down")
	req = httptest.NewRequest("GET", "/api/voice-settings/vs-write-user", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var settings domain.VoiceSettings
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&settings))
	assert.Equal(t, "zephyr", settings.SelectedVoice)
	assert.Equal(t, "de", settings.Language)
}

func TestUpdateVoiceSettings_InvalidBody(t *testing.T) {
	router := newVoiceSettingsRouter(newStubRepoManager())

	req := httptest.NewRequest("PUT", "/api/voice-settings/vs-bad-user", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteVoiceSettings(t *testing.T) {
	repos := newStubRepoManager()
	router := newVoiceSettingsRouter(repos)

	body := `{"voice_enabled":true,"selected_voice":"aurora"}`
	req := httptest.NewRequest("PUT", "/api/voice-settings/vs-delete-user", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest("DELETE", "/api/voice-settings/vs-delete-user", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, repos.settings.rows["vs-delete-user"])

	// Gone from both cache and database.
	req = httptest.NewRequest("GET", "/api/voice-settings/vs-delete-user", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListVoiceSettings(t *testing.T) {
	repos := newStubRepoManager()
	repos.settings.rows["vs-list-a"] = &domain.VoiceSettings{UserID: "vs-list-a"}
	repos.settings.rows["vs-list-b"] = &domain.VoiceSettings{UserID: "vs-list-b"}
	router := newVoiceSettingsRouter(repos)

	req := httptest.NewRequest("GET", "/api/voice-settings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var settings []*domain.VoiceSettings
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&settings))
	assert.Len(t, settings, 2)
}
