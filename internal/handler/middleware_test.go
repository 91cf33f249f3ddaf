package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret"

func mintConsoleToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authProbe() (http.Handler, *string) {
	var seenTenant string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenTenant = TenantFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return h, &seenTenant
}

func TestBearerAuth_DisabledWithoutSecret(t *testing.T) {
	probe, _ := authProbe()
	handler := BearerAuthMiddleware("")(probe)

	req := httptest.NewRequest("GET", "/api/calls", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBearerAuth_RejectsMissingOrBadToken(t *testing.T) {
	probe, _ := authProbe()
	handler := BearerAuthMiddleware(testSecret)(probe)

	// No token at all.
	req := httptest.NewRequest("GET", "/api/calls", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Garbage token.
	req = httptest.NewRequest("GET", "/api/calls", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid JWT signed with the wrong key.
	wrongKey := mintConsoleToken(t, "other-secret", jwt.MapClaims{"tenant_id": "tenant-42"})
	req = httptest.NewRequest("GET", "/api/calls", nil)
	req.Header.Set("Authorization", "Bearer "+wrongKey)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid signature but no tenant claim.
	noTenant := mintConsoleToken(t, testSecret, jwt.MapClaims{"iat": time.Now().Unix()})
	req = httptest.NewRequest("GET", "/api/calls", nil)
	req.Header.Set("Authorization", "Bearer "+noTenant)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerAuth_AcceptsHeaderToken(t *testing.T) {
	probe, seenTenant := authProbe()
	handler := BearerAuthMiddleware(testSecret)(probe)

	token := mintConsoleToken(t, testSecret, jwt.MapClaims{
		"tenant_id": "tenant-42",
		"iat":       time.Now().Unix(),
	})

	req := httptest.NewRequest("GET", "/api/calls", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tenant-42", *seenTenant)
}

func TestBearerAuth_AcceptsQueryToken(t *testing.T) {
	// WebSocket clients cannot set headers, so the token query parameter
	// must work as a fallback.
	probe, seenTenant := authProbe()
	handler := BearerAuthMiddleware(testSecret)(probe)

	token := mintConsoleToken(t, testSecret, jwt.MapClaims{"tenant_id": "tenant-7"})

	req := httptest.NewRequest("GET", "/api/ws/console/call-1?token="+token, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tenant-7", *seenTenant)
}

func TestValidationMiddleware_ContentType(t *testing.T) {
	handler := ValidationMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/calls", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	req = httptest.NewRequest("POST", "/api/calls", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// GET requests are never content-type checked.
	req = httptest.NewRequest("GET", "/api/calls", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitMiddleware_ThrottlesPerAddress(t *testing.T) {
	handler := RateLimitMiddleware(1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/api/calls", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	// Burst is twice the rate, so two immediate requests pass and the third
	// is throttled.
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1234").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1234").Code)

	rec := send("10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// A different client has its own bucket.
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1234").Code)
}

func TestRateLimitMiddleware_KeysByTenant(t *testing.T) {
	handler := RateLimitMiddleware(1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(tenantID string) int {
		req := httptest.NewRequest("GET", "/api/calls", nil)
		req.RemoteAddr = "10.0.0.1:1111"
		req = req.WithContext(context.WithValue(req.Context(), tenantContextKey, tenantID))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("tenant-a"))
	assert.Equal(t, http.StatusOK, send("tenant-a"))
	assert.Equal(t, http.StatusTooManyRequests, send("tenant-a"))

	// Same address, different tenant: separate bucket.
	assert.Equal(t, http.StatusOK, send("tenant-b"))
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	// Preflight never reaches the wrapped handler.
	req := httptest.NewRequest("OPTIONS", "/api/calls", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/api/calls", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
