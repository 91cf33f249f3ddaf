package repository

import (
	"context"
	"fmt"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/domain"
	"gorm.io/gorm"
)

// GormTenantRepository implements TenantRepository using GORM
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GORM console tenant repository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// Create creates a new console tenant
func (r *GormTenantRepository) Create(ctx context.Context, req *domain.CreateConsoleTenantRequest) (*domain.ConsoleTenant, error) {
	tenant := &domain.ConsoleTenant{
		TenantID:     req.TenantID,
		ConsoleKey:   req.ConsoleKey,
		TenantName:   req.TenantName,
		CustomConfig: req.CustomConfig,
	}

	if err := r.db.WithContext(ctx).Create(tenant).Error; err != nil {
		return nil, fmt.Errorf("failed to create console tenant: %w", err)
	}

	return tenant, nil
}

// GetByTenantID retrieves a console tenant by tenant ID
func (r *GormTenantRepository) GetByTenantID(ctx context.Context, tenantID string) (*domain.ConsoleTenant, error) {
	var tenant domain.ConsoleTenant
	if err := r.db.WithContext(ctx).First(&tenant, "tenant_id = ?", tenantID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("console tenant not found: %s", tenantID)
		}
		return nil, fmt.Errorf("failed to get console tenant: %w", err)
	}

	return &tenant, nil
}

// GetByConsoleKey retrieves a console tenant by its console key
func (r *GormTenantRepository) GetByConsoleKey(ctx context.Context, consoleKey string) (*domain.ConsoleTenant, error) {
	var tenant domain.ConsoleTenant
	if err := r.db.WithContext(ctx).First(&tenant, "console_key = ?", consoleKey).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("console tenant not found for key")
		}
		return nil, fmt.Errorf("failed to get console tenant by key: %w", err)
	}

	return &tenant, nil
}

// GetAll retrieves all console tenants
func (r *GormTenantRepository) GetAll(ctx context.Context, includeDisabled bool) ([]*domain.ConsoleTenant, error) {
	var tenants []*domain.ConsoleTenant
	query := r.db.WithContext(ctx)

	if !includeDisabled {
		query = query.Where("disabled = ?", false)
	}

	if err := query.Order("created_at DESC").Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("failed to get console tenants: %w", err)
	}

	return tenants, nil
}

// Update updates a console tenant
func (r *GormTenantRepository) Update(ctx context.Context, id string, req *domain.UpdateConsoleTenantRequest) (*domain.ConsoleTenant, error) {
	var tenant domain.ConsoleTenant
	if err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("console tenant not found: %s", id)
		}
		return nil, fmt.Errorf("failed to find console tenant: %w", err)
	}

	updates := make(map[string]interface{})
	if req.TenantName != nil {
		updates["tenant_name"] = *req.TenantName
	}
	if req.CustomConfig != nil {
		updates["custom_config"] = *req.CustomConfig
	}
	if req.Disabled != nil {
		updates["disabled"] = *req.Disabled
	}

	if len(updates) == 0 {
		return &tenant, nil // No changes
	}

	if err := r.db.WithContext(ctx).Model(&tenant).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update console tenant: %w", err)
	}

	return &tenant, nil
}

// Disable soft deletes a console tenant
func (r *GormTenantRepository) Disable(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Model(&domain.ConsoleTenant{}).Where("id = ?", id).Update("disabled", true)
	if result.Error != nil {
		return fmt.Errorf("failed to disable console tenant: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("console tenant not found: %s", id)
	}

	return nil
}

// ExistsByTenantID checks if a console tenant exists by tenant ID
func (r *GormTenantRepository) ExistsByTenantID(ctx context.Context, tenantID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.ConsoleTenant{}).Where("tenant_id = ?", tenantID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check if console tenant exists: %w", err)
	}

	return count > 0, nil
}
