package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/config"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/services/call"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/errtrack"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDiagnosticsRouter(t *testing.T, repos *stubRepoManager) *mux.Router {
	t.Helper()

	service := call.NewCallService(config.LoadStreamConfig(), config.LoadTranscriptConfig(), repos, nil, nil)
	t.Cleanup(service.Shutdown)

	h := NewDiagnosticsHandler(service, repos, "test-instance")
	router := mux.NewRouter()
	h.SetupDiagnosticsRoutes(router)
	return router
}

func TestHealthCheck(t *testing.T) {
	repos := newStubRepoManager()
	router := newDiagnosticsRouter(t, repos)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "test-instance", resp.InstanceID)
	assert.Equal(t, "ok", resp.Database)
	assert.Zero(t, resp.ActiveCalls)
}

func TestHealthCheck_DatabaseUnreachable(t *testing.T) {
	repos := newStubRepoManager()
	repos.pingErr = errors.New("connection refused")
	router := newDiagnosticsRouter(t, repos)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// Degraded, but still 200: the probe reports, the orchestrator decides.
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unreachable", resp.Database)
}

func TestTrackedErrors_ReportAndResolve(t *testing.T) {
	errtrack.Get().Clear()
	router := newDiagnosticsRouter(t, newStubRepoManager())

	id := errtrack.Track(errtrack.CategoryConnection, "call-err-1", fmt.Errorf("dial tcp: connection refused"))
	require.NotEmpty(t, id)

	req := httptest.NewRequest("GET", "/api/diagnostics/errors", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var report ErrorReportResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "call-err-1", report.Errors[0].CallID)
	assert.Equal(t, int64(1), report.Stats.ByCategory["connection"])

	req = httptest.NewRequest("POST", "/api/diagnostics/errors/"+id+"/resolve", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Resolved entries disappear from the default report.
	req = httptest.NewRequest("GET", "/api/diagnostics/errors", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Empty(t, report.Errors)

	req = httptest.NewRequest("GET", "/api/diagnostics/errors?include_resolved=true", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Len(t, report.Errors, 1)

	req = httptest.NewRequest("POST", "/api/diagnostics/errors/ghost/resolve", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetEventBusStats(t *testing.T) {
	router := newDiagnosticsRouter(t, newStubRepoManager())

	req := httptest.NewRequest("GET", "/api/diagnostics/events", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "total_events")
}
