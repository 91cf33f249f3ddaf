package handler

import (
	"encoding/json"
	"net/http"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/domain"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/repository"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"github.com/gorilla/mux"
)

// TenantHandler handles HTTP requests for console tenants
type TenantHandler struct {
	tenantRepo repository.TenantRepository
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenantRepo repository.TenantRepository) *TenantHandler {
	return &TenantHandler{
		tenantRepo: tenantRepo,
	}
}

// CreateTenant godoc
// @Summary Create a new tenant
// @Description Register a console tenant with its console key
// @Tags tenants
// @Accept json
// @Produce json
// @Param tenant body domain.CreateConsoleTenantRequest true "Tenant creation request"
// @Success 201 {object} domain.ConsoleTenant "Tenant created successfully"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/tenants [post]
func (h *TenantHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateConsoleTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.TenantID == "" || req.ConsoleKey == "" {
		http.Error(w, "tenant_id and console_key are required", http.StatusBadRequest)
		return
	}

	tenant, err := h.tenantRepo.Create(r.Context(), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(tenant)
}

// GetTenantByTenantID godoc
// @Summary Get tenant by tenant ID
// @Description Retrieve a console tenant by its tenant_id field
// @Tags tenants
// @Accept json
// @Produce json
// @Param tenant_id path string true "Business tenant ID"
// @Success 200 {object} domain.ConsoleTenant "Tenant found"
// @Failure 404 {object} map[string]string "Tenant not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/tenants/by-tenant-id/{tenant_id} [get]
func (h *TenantHandler) GetTenantByTenantID(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tenantID := vars["tenant_id"]

	tenant, err := h.tenantRepo.GetByTenantID(r.Context(), tenantID)
	if err != nil {
		if err.Error() == "console tenant not found: "+tenantID {
			http.Error(w, "Tenant not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tenant)
}

// GetTenantByConsoleKey godoc
// @Summary Get tenant by console key
// @Description Retrieve a console tenant by its console_key field
// @Tags tenants
// @Accept json
// @Produce json
// @Param console_key path string true "Console API key"
// @Success 200 {object} domain.ConsoleTenant "Tenant found"
// @Failure 404 {object} map[string]string "Tenant not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/tenants/by-console-key/{console_key} [get]
func (h *TenantHandler) GetTenantByConsoleKey(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	consoleKey := vars["console_key"]

	tenant, err := h.tenantRepo.GetByConsoleKey(r.Context(), consoleKey)
	if err != nil {
		if err.Error() == "console tenant not found for key" {
			http.Error(w, "Tenant not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tenant)
}

// GetTenants godoc
// @Summary List all tenants
// @Description Retrieve a list of all console tenants
// @Tags tenants
// @Accept json
// @Produce json
// @Param include_disabled query boolean false "Include disabled tenants" default(false)
// @Success 200 {array} domain.ConsoleTenant "List of tenants"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/tenants [get]
func (h *TenantHandler) GetTenants(w http.ResponseWriter, r *http.Request) {
	includeDisabledStr := r.URL.Query().Get("include_disabled")
	includeDisabled := includeDisabledStr == "true"

	tenants, err := h.tenantRepo.GetAll(r.Context(), includeDisabled)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tenants)
}

// UpdateTenant godoc
// @Summary Update an existing tenant
// @Description Update a console tenant's name, custom config, or disabled flag
// @Tags tenants
// @Accept json
// @Produce json
// @Param id path string true "Tenant ID (UUID)" format(uuid)
// @Param tenant body domain.UpdateConsoleTenantRequest true "Tenant update request"
// @Success 200 {object} domain.ConsoleTenant "Tenant updated successfully"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 404 {object} map[string]string "Tenant not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/tenants/{id} [put]
func (h *TenantHandler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	var req domain.UpdateConsoleTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tenant, err := h.tenantRepo.Update(r.Context(), id, &req)
	if err != nil {
		if err.Error() == "console tenant not found: "+id {
			http.Error(w, "Tenant not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tenant)
}

// DisableTenant godoc
// @Summary Disable a tenant
// @Description Disable a console tenant by its ID (soft delete)
// @Tags tenants
// @Accept json
// @Produce json
// @Param id path string true "Tenant ID (UUID)" format(uuid)
// @Success 204 "Tenant disabled successfully"
// @Failure 404 {object} map[string]string "Tenant not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/tenants/{id} [delete]
func (h *TenantHandler) DisableTenant(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	err := h.tenantRepo.Disable(r.Context(), id)
	if err != nil {
		if err.Error() == "console tenant not found: "+id {
			http.Error(w, "Tenant not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CheckTenantExistsByTenantID godoc
// @Summary Check if tenant exists by tenant ID
// @Description Check whether a console tenant with the specified tenant_id exists
// @Tags tenants
// @Accept json
// @Produce json
// @Param tenant_id path string true "Business tenant ID"
// @Success 200 "Tenant exists"
// @Failure 404 "Tenant not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /api/tenants/by-tenant-id/{tenant_id} [head]
func (h *TenantHandler) CheckTenantExistsByTenantID(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tenantID := vars["tenant_id"]

	exists, err := h.tenantRepo.ExistsByTenantID(r.Context(), tenantID)
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

// SetupTenantRoutes sets up all tenant-related routes
func (h *TenantHandler) SetupTenantRoutes(router *mux.Router) {
	// Tenant CRUD routes
	router.HandleFunc("/tenants", h.CreateTenant).Methods("POST")
	router.HandleFunc("/tenants", h.GetTenants).Methods("GET")
	router.HandleFunc("/tenants/{id}", h.UpdateTenant).Methods("PUT")
	router.HandleFunc("/tenants/{id}", h.DisableTenant).Methods("DELETE")

	// Lookup routes
	router.HandleFunc("/tenants/by-tenant-id/{tenant_id}", h.GetTenantByTenantID).Methods("GET")
	router.HandleFunc("/tenants/by-tenant-id/{tenant_id}", h.CheckTenantExistsByTenantID).Methods("HEAD")
	router.HandleFunc("/tenants/by-console-key/{console_key}", h.GetTenantByConsoleKey).Methods("GET")

	logger.Base().Info("Tenant routes registered")
}
