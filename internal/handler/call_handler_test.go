package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/config"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/domain"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/repository"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/services/call"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory repository stubs shared by the handler tests in this package.

type stubCallRepo struct {
	calls []*domain.Call
	err   error
}

func (s *stubCallRepo) Create(_ context.Context, c *domain.Call) error {
	if s.err != nil {
		return s.err
	}
	s.calls = append(s.calls, c)
	return nil
}

func (s *stubCallRepo) GetByCallID(_ context.Context, callID string) (*domain.Call, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, c := range s.calls {
		if c.CallID == callID {
			return c, nil
		}
	}
	return nil, nil
}

func (s *stubCallRepo) ListByTenant(_ context.Context, tenantID string, _ repository.ListCallsOptions) ([]*domain.Call, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*domain.Call
	for _, c := range s.calls {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubCallRepo) UpdateStatus(_ context.Context, callID string, status domain.CallStatus) error {
	for _, c := range s.calls {
		if c.CallID == callID {
			c.Status = status
			return nil
		}
	}
	return fmt.Errorf("call not found: %s", callID)
}

func (s *stubCallRepo) End(ctx context.Context, callID string, status domain.CallStatus) (*domain.Call, error) {
	c, _ := s.GetByCallID(ctx, callID)
	if c == nil {
		return nil, fmt.Errorf("call not found: %s", callID)
	}
	c.Status = status
	c.EndedAt = time.Now()
	return c, nil
}

func (s *stubCallRepo) Exists(ctx context.Context, callID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	c, _ := s.GetByCallID(ctx, callID)
	return c != nil, nil
}

type stubMessageRepo struct {
	messages map[string][]*domain.CallMessage
}

func (s *stubMessageRepo) Create(_ context.Context, m *domain.CallMessage) error {
	s.messages[m.CallID] = append(s.messages[m.CallID], m)
	return nil
}

func (s *stubMessageRepo) CreateBatch(ctx context.Context, ms []*domain.CallMessage) error {
	for _, m := range ms {
		if err := s.Create(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *stubMessageRepo) GetByCallID(_ context.Context, callID string) ([]*domain.CallMessage, error) {
	return s.messages[callID], nil
}

func (s *stubMessageRepo) CountByCallID(_ context.Context, callID string) (int64, error) {
	return int64(len(s.messages[callID])), nil
}

func (s *stubMessageRepo) DeleteByCallID(_ context.Context, callID string) error {
	delete(s.messages, callID)
	return nil
}

type stubSettingsRepo struct {
	rows map[string]*domain.VoiceSettings
	err  error
}

func (s *stubSettingsRepo) Get(_ context.Context, userID string) (*domain.VoiceSettings, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rows[userID], nil
}

func (s *stubSettingsRepo) Upsert(_ context.Context, settings *domain.VoiceSettings) error {
	if s.err != nil {
		return s.err
	}
	s.rows[settings.UserID] = settings
	return nil
}

func (s *stubSettingsRepo) Delete(_ context.Context, userID string) error {
	if s.err != nil {
		return s.err
	}
	delete(s.rows, userID)
	return nil
}

func (s *stubSettingsRepo) List(_ context.Context) ([]*domain.VoiceSettings, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*domain.VoiceSettings, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, row)
	}
	return out, nil
}

type stubTenantRepo struct {
	tenants []*domain.ConsoleTenant
}

func (s *stubTenantRepo) Create(_ context.Context, req *domain.CreateConsoleTenantRequest) (*domain.ConsoleTenant, error) {
	t := &domain.ConsoleTenant{
		ID:           fmt.Sprintf("id-%d", len(s.tenants)+1),
		TenantID:     req.TenantID,
		ConsoleKey:   req.ConsoleKey,
		TenantName:   req.TenantName,
		CustomConfig: req.CustomConfig,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	s.tenants = append(s.tenants, t)
	return t, nil
}

func (s *stubTenantRepo) GetByTenantID(_ context.Context, tenantID string) (*domain.ConsoleTenant, error) {
	for _, t := range s.tenants {
		if t.TenantID == tenantID {
			return t, nil
		}
	}
	return nil, fmt.Errorf("console tenant not found: %s", tenantID)
}

func (s *stubTenantRepo) GetByConsoleKey(_ context.Context, consoleKey string) (*domain.ConsoleTenant, error) {
	for _, t := range s.tenants {
		if t.ConsoleKey == consoleKey {
			return t, nil
		}
	}
	return nil, fmt.Errorf("console tenant not found for key")
}

func (s *stubTenantRepo) GetAll(_ context.Context, includeDisabled bool) ([]*domain.ConsoleTenant, error) {
	out := make([]*domain.ConsoleTenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		if t.Disabled && !includeDisabled {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *stubTenantRepo) Update(_ context.Context, id string, req *domain.UpdateConsoleTenantRequest) (*domain.ConsoleTenant, error) {
	for _, t := range s.tenants {
		if t.ID == id {
			if req.TenantName != nil {
				t.TenantName = *req.TenantName
			}
			if req.CustomConfig != nil {
				t.CustomConfig = *req.CustomConfig
			}
			if req.Disabled != nil {
				t.Disabled = *req.Disabled
			}
			return t, nil
		}
	}
	return nil, fmt.Errorf("console tenant not found: %s", id)
}

func (s *stubTenantRepo) Disable(_ context.Context, id string) error {
	for _, t := range s.tenants {
		if t.ID == id {
			t.Disabled = true
			return nil
		}
	}
	return fmt.Errorf("console tenant not found: %s", id)
}

func (s *stubTenantRepo) ExistsByTenantID(_ context.Context, tenantID string) (bool, error) {
	for _, t := range s.tenants {
		if t.TenantID == tenantID {
			return true, nil
		}
	}
	return false, nil
}

type stubRepoManager struct {
	calls    *stubCallRepo
	messages *stubMessageRepo
	settings *stubSettingsRepo
	tenants  *stubTenantRepo
	pingErr  error
}

func newStubRepoManager() *stubRepoManager {
	return &stubRepoManager{
		calls:    &stubCallRepo{},
		messages: &stubMessageRepo{messages: make(map[string][]*domain.CallMessage)},
		settings: &stubSettingsRepo{rows: make(map[string]*domain.VoiceSettings)},
		tenants:  &stubTenantRepo{},
	}
}

func (m *stubRepoManager) Calls() repository.CallRepository               { return m.calls }
func (m *stubRepoManager) CallMessages() repository.CallMessageRepository { return m.messages }
func (m *stubRepoManager) VoiceSettings() repository.VoiceSettingsRepository {
	return m.settings
}
func (m *stubRepoManager) Tenants() repository.TenantRepository { return m.tenants }

func (m *stubRepoManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos repository.RepositoryManager) error) error {
	return fn(ctx, m)
}

func (m *stubRepoManager) Ping(_ context.Context) error { return m.pingErr }
func (m *stubRepoManager) Close() error                 { return nil }

// newCallTestRouter builds a call handler backed by the stub repositories and
// a real (sessionless) call service.
func newCallTestRouter(t *testing.T, repos *stubRepoManager) *mux.Router {
	t.Helper()

	service := call.NewCallService(config.LoadStreamConfig(), config.LoadTranscriptConfig(), repos, nil, nil)
	t.Cleanup(service.Shutdown)

	h := NewCallHandler(service, repos)
	router := mux.NewRouter()
	h.SetupCallRoutes(router.PathPrefix("/api").Subrouter())
	return router
}

func seedCalls(repos *stubRepoManager, tenantID string, n int) {
	for i := 0; i < n; i++ {
		repos.calls.calls = append(repos.calls.calls, &domain.Call{
			ID:        fmt.Sprintf("row-%d", i),
			CallID:    fmt.Sprintf("call-%d", i),
			TenantID:  tenantID,
			Status:    domain.CallStatusCompleted,
			Direction: domain.CallDirectionInbound,
			StartedAt: time.Now().Add(-time.Hour),
			EndedAt:   time.Now(),
		})
	}
}

func TestGetCalls_Pagination(t *testing.T) {
	repos := newStubRepoManager()
	seedCalls(repos, "tenant-a", 25)
	seedCalls(repos, "tenant-b", 3)
	router := newCallTestRouter(t, repos)

	req := httptest.NewRequest("GET", "/api/calls?tenant_id=tenant-a&page=2&page_size=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp CallListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 25, resp.Total)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 10, resp.PageSize)
	assert.Len(t, resp.Calls, 10)

	// Page past the end yields an empty slice, not an error.
	req = httptest.NewRequest("GET", "/api/calls?tenant_id=tenant-a&page=9", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.Calls)
	assert.Equal(t, 25, resp.Total)
}

func TestGetCalls_RequiresTenant(t *testing.T) {
	router := newCallTestRouter(t, newStubRepoManager())

	req := httptest.NewRequest("GET", "/api/calls", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCalls_InvalidTimeRange(t *testing.T) {
	router := newCallTestRouter(t, newStubRepoManager())

	req := httptest.NewRequest("GET", "/api/calls?tenant_id=tenant-a&start_time=yesterday", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "RFC3339")
}

func TestGetCall_IncludeMessages(t *testing.T) {
	repos := newStubRepoManager()
	seedCalls(repos, "tenant-a", 1)
	repos.messages.messages["call-0"] = []*domain.CallMessage{
		{CallID: "call-0", Sender: domain.MessageSenderCustomer, Kind: domain.MessageKindTranscript, Content: "hello", Confidence: 0.9},
		{CallID: "call-0", Sender: domain.MessageSenderAgent, Kind: domain.MessageKindTranscript, Content: "hi there", Confidence: 0.95},
	}
	router := newCallTestRouter(t, repos)

	req := httptest.NewRequest("GET", "/api/calls/call-0?include_messages=true", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp CallDetailResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "call-0", resp.CallID)
	assert.Len(t, resp.Messages, 2)
}

func TestGetCall_NotFound(t *testing.T) {
	router := newCallTestRouter(t, newStubRepoManager())

	req := httptest.NewRequest("GET", "/api/calls/ghost", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckCallExists(t *testing.T) {
	repos := newStubRepoManager()
	seedCalls(repos, "tenant-a", 1)
	router := newCallTestRouter(t, repos)

	req := httptest.NewRequest("HEAD", "/api/calls/call-0", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest("HEAD", "/api/calls/ghost", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCallMessages_ConfidenceFilter(t *testing.T) {
	repos := newStubRepoManager()
	seedCalls(repos, "tenant-a", 1)
	repos.messages.messages["call-0"] = []*domain.CallMessage{
		{CallID: "call-0", Content: "clear utterance", Confidence: 0.9},
		{CallID: "call-0", Content: "mumble", Confidence: 0.2},
		{CallID: "call-0", Content: "agent text", Confidence: 0}, // no confidence always passes
	}
	router := newCallTestRouter(t, repos)

	req := httptest.NewRequest("GET", "/api/calls/call-0/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Messages []*domain.CallMessage `json:"messages"`
		Total    int                   `json:"total"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Total, "low-confidence transcript should be hidden")

	req = httptest.NewRequest("GET", "/api/calls/call-0/messages?include_low_confidence=true", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Total)
}

func TestExportTranscriptPDF(t *testing.T) {
	repos := newStubRepoManager()
	seedCalls(repos, "tenant-a", 1)
	repos.messages.messages["call-0"] = []*domain.CallMessage{
		{CallID: "call-0", Sender: domain.MessageSenderCustomer, Kind: domain.MessageKindTranscript, Content: "hello", Confidence: 0.9},
	}
	router := newCallTestRouter(t, repos)

	req := httptest.NewRequest("GET", "/api/calls/call-0/transcript.pdf", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")), "body should be a PDF document")
}

func TestGetActiveSessions_Empty(t *testing.T) {
	router := newCallTestRouter(t, newStubRepoManager())

	req := httptest.NewRequest("GET", "/api/calls/active", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ActiveSessionsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Zero(t, resp.Total)
	assert.Empty(t, resp.Sessions)
}

func TestGetSessionStats_NoSession(t *testing.T) {
	router := newCallTestRouter(t, newStubRepoManager())

	req := httptest.NewRequest("GET", "/api/calls/ghost/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendAgentMessage_Validation(t *testing.T) {
	router := newCallTestRouter(t, newStubRepoManager())

	// Empty text is rejected before the session lookup.
	req := httptest.NewRequest("POST", "/api/calls/call-1/message", strings.NewReader(`{"text":""}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Without a session (and without a task bus) delivery fails.
	req = httptest.NewRequest("POST", "/api/calls/call-1/message", strings.NewReader(`{"text":"hello"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStopCall_NoSession(t *testing.T) {
	router := newCallTestRouter(t, newStubRepoManager())

	req := httptest.NewRequest("POST", "/api/calls/ghost/stop", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInitiateCall_Validation(t *testing.T) {
	router := newCallTestRouter(t, newStubRepoManager())

	req := httptest.NewRequest("POST", "/api/calls", strings.NewReader(`{"tenant_id":"tenant-a"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "call_id")

	req = httptest.NewRequest("POST", "/api/calls", strings.NewReader(`{"call_id":"call-1"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "tenant_id")
}
