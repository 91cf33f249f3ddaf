package handler

import (
	"encoding/json"
	"net/http"
	"sync"

	consoleapi "github.com/LumivoxAI/lumivox-telephony-service/internal/adapters/http"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ContactHandler proxies CRM contact lookups to the console API so the
// browser console never holds console credentials. Clients are cached per
// tenant; each carries its own scoped agent token and rate limiter.
type ContactHandler struct {
	consoleBaseURL string
	clients        map[string]*consoleapi.ConsoleClient
	mutex          sync.Mutex
}

// NewContactHandler creates a new contact handler
func NewContactHandler(consoleBaseURL string) *ContactHandler {
	return &ContactHandler{
		consoleBaseURL: consoleBaseURL,
		clients:        make(map[string]*consoleapi.ConsoleClient),
	}
}

// CreateContactNoteRequest represents the request to attach a note to a contact
type CreateContactNoteRequest struct {
	Content string `json:"content"`
}

// clientFor returns the console client scoped to one tenant, creating it on
// first use. Agent tokens carry no expiry, so minting once is enough.
func (h *ContactHandler) clientFor(tenantID string) (*consoleapi.ConsoleClient, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if client, ok := h.clients[tenantID]; ok {
		return client, nil
	}

	token, err := consoleapi.GenerateAgentJWT(tenantID, "console")
	if err != nil {
		return nil, err
	}

	client := consoleapi.NewConsoleClient(h.consoleBaseURL, tenantID)
	client.SetToken(token)
	h.clients[tenantID] = client
	return client, nil
}

// LookupContact godoc
// @Summary Look up a CRM contact by phone number
// @Description Resolve the caller's CRM contact through the console API
// @Tags contacts
// @Accept json
// @Produce json
// @Param phone query string true "Phone number in E.164 format"
// @Param tenant_id query string false "Tenant ID (defaults to the authenticated tenant)"
// @Success 200 {object} consoleapi.Contact "Contact found"
// @Failure 400 {object} map[string]string "Missing phone parameter"
// @Failure 404 {object} map[string]string "Contact not found"
// @Failure 502 {object} map[string]string "Console API unreachable"
// @Router /api/contacts/by-phone [get]
func (h *ContactHandler) LookupContact(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		http.Error(w, "phone parameter is required", http.StatusBadRequest)
		return
	}

	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		tenantID = TenantFromContext(r.Context())
	}

	client, err := h.clientFor(tenantID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	contact, err := client.LookupContactByPhone(r.Context(), phone)
	if err != nil {
		logger.Base().Warn("Contact lookup failed",
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		http.Error(w, "Contact lookup failed", http.StatusBadGateway)
		return
	}
	if contact == nil {
		http.Error(w, "Contact not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(contact)
}

// CreateContactNote godoc
// @Summary Attach a note to a CRM contact
// @Description Create a note on a contact through the console API, typically a call summary
// @Tags contacts
// @Accept json
// @Produce json
// @Param id path string true "Contact ID"
// @Param note body CreateContactNoteRequest true "Note content"
// @Success 201 {object} map[string]string "Note created"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 502 {object} map[string]string "Console API unreachable"
// @Router /api/contacts/{id}/notes [post]
func (h *ContactHandler) CreateContactNote(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	contactID := vars["id"]

	var req CreateContactNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "content is required", http.StatusBadRequest)
		return
	}

	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		tenantID = TenantFromContext(r.Context())
	}

	client, err := h.clientFor(tenantID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := client.CreateContactNote(r.Context(), contactID, req.Content); err != nil {
		logger.Base().Warn("Contact note creation failed",
			zap.String("tenant_id", tenantID),
			zap.String("contact_id", contactID),
			zap.Error(err))
		http.Error(w, "Contact note creation failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"contact_id": contactID, "status": "created"})
}

// SetupContactRoutes sets up all contact proxy routes
func (h *ContactHandler) SetupContactRoutes(router *mux.Router) {
	router.HandleFunc("/contacts/by-phone", h.LookupContact).Methods("GET")
	router.HandleFunc("/contacts/{id}/notes", h.CreateContactNote).Methods("POST")

	logger.Base().Info("Contact routes registered")
}
