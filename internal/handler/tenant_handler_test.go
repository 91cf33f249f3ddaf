package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/domain"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTenantRouter(repos *stubRepoManager) *mux.Router {
	h := NewTenantHandler(repos.tenants)
	router := mux.NewRouter()
	h.SetupTenantRoutes(router.PathPrefix("/api").Subrouter())
	return router
}

func createTenant(t *testing.T, router *mux.Router, body string) domain.ConsoleTenant {
	t.Helper()

	req := httptest.NewRequest("POST", "/api/tenants", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var tenant domain.ConsoleTenant
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tenant))
	return tenant
}

func TestCreateTenant(t *testing.T) {
	router := newTenantRouter(newStubRepoManager())

	tenant := createTenant(t, router, `{"tenant_id":"acme","console_key":"key-1","tenant_name":"Acme Corp"}`)
	assert.NotEmpty(t, tenant.ID)
	assert.Equal(t, "acme", tenant.TenantID)
	assert.Equal(t, "Acme Corp", tenant.TenantName)
}

func TestCreateTenant_MissingFields(t *testing.T) {
	router := newTenantRouter(newStubRepoManager())

	req := httptest.NewRequest("POST", "/api/tenants", strings.NewReader(`{"tenant_name":"No Key"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "console_key")
}

func TestTenantLookups(t *testing.T) {
	router := newTenantRouter(newStubRepoManager())
	createTenant(t, router, `{"tenant_id":"acme","console_key":"key-1","tenant_name":"Acme Corp"}`)

	req := httptest.NewRequest("GET", "/api/tenants/by-tenant-id/acme", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest("GET", "/api/tenants/by-tenant-id/ghost", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest("GET", "/api/tenants/by-console-key/key-1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest("GET", "/api/tenants/by-console-key/wrong-key", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest("HEAD", "/api/tenants/by-tenant-id/acme", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest("HEAD", "/api/tenants/by-tenant-id/ghost", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateTenant(t *testing.T) {
	router := newTenantRouter(newStubRepoManager())
	tenant := createTenant(t, router, `{"tenant_id":"acme","console_key":"key-1","tenant_name":"Acme Corp"}`)

	req := httptest.NewRequest("PUT", "/api/tenants/"+tenant.ID, strings.NewReader(`{"tenant_name":"Acme Ltd"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated domain.ConsoleTenant
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&updated))
	assert.Equal(t, "Acme Ltd", updated.TenantName)
	assert.Equal(t, "key-1", updated.ConsoleKey, "untouched fields keep their values")

	req = httptest.NewRequest("PUT", "/api/tenants/ghost", strings.NewReader(`{"tenant_name":"Nobody"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDisableTenant(t *testing.T) {
	repos := newStubRepoManager()
	router := newTenantRouter(repos)
	tenant := createTenant(t, router, `{"tenant_id":"acme","console_key":"key-1","tenant_name":"Acme Corp"}`)

	req := httptest.NewRequest("DELETE", "/api/tenants/"+tenant.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Disabled tenants drop out of the default listing.
	req = httptest.NewRequest("GET", "/api/tenants", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var tenants []*domain.ConsoleTenant
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tenants))
	assert.Empty(t, tenants)

	req = httptest.NewRequest("GET", "/api/tenants?include_disabled=true", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tenants))
	require.Len(t, tenants, 1)
	assert.True(t, tenants[0].Disabled)

	req = httptest.NewRequest("DELETE", "/api/tenants/ghost", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
