package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListCallsOptions filters ListByTenant queries. Zero values mean no filter.
type ListCallsOptions struct {
	From   time.Time
	To     time.Time
	Status domain.CallStatus
	Limit  int
}

// GormCallRepository implements CallRepository using GORM
type GormCallRepository struct {
	db *gorm.DB
}

// NewGormCallRepository creates a new GORM call repository
func NewGormCallRepository(db *gorm.DB) *GormCallRepository {
	return &GormCallRepository{db: db}
}

// Create creates a new call row
func (r *GormCallRepository) Create(ctx context.Context, call *domain.Call) error {
	if call.CallID == "" {
		return fmt.Errorf("call ID cannot be empty")
	}
	if call.ID == "" {
		call.ID = uuid.New().String()
	}
	now := time.Now()
	if call.StartedAt.IsZero() {
		call.StartedAt = now
	}
	if call.CreatedAt.IsZero() {
		call.CreatedAt = now
	}
	call.UpdatedAt = now
	if call.Status == "" {
		call.Status = domain.CallStatusRinging
	}

	if err := r.db.WithContext(ctx).Create(call).Error; err != nil {
		return fmt.Errorf("failed to create call: %w", err)
	}
	return nil
}

// GetByCallID retrieves a call by its backend call ID. Returns nil without
// an error when the call does not exist.
func (r *GormCallRepository) GetByCallID(ctx context.Context, callID string) (*domain.Call, error) {
	var call domain.Call
	if err := r.db.WithContext(ctx).Where("call_id = ?", callID).First(&call).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get call: %w", err)
	}
	return &call, nil
}

// ListByTenant finds calls for a tenant, newest first
func (r *GormCallRepository) ListByTenant(ctx context.Context, tenantID string, opts ListCallsOptions) ([]*domain.Call, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant ID cannot be empty")
	}

	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if !opts.From.IsZero() && !opts.To.IsZero() {
		query = query.Where("started_at BETWEEN ? AND ?", opts.From, opts.To)
	}
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}
	query = query.Order("started_at DESC")
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}

	var calls []*domain.Call
	if err := query.Find(&calls).Error; err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	return calls, nil
}

// UpdateStatus records a status transition on the call row
func (r *GormCallRepository) UpdateStatus(ctx context.Context, callID string, status domain.CallStatus) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}

	result := r.db.WithContext(ctx).Model(&domain.Call{}).Where("call_id = ?", callID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update call status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("call not found: %s", callID)
	}
	return nil
}

// End closes a call row with its terminal status and returns the final row
func (r *GormCallRepository) End(ctx context.Context, callID string, status domain.CallStatus) (*domain.Call, error) {
	if !status.IsTerminal() {
		return nil, fmt.Errorf("cannot end call %s with non-terminal status %s", callID, status)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":     status,
		"ended_at":   now,
		"updated_at": now,
	}

	result := r.db.WithContext(ctx).Model(&domain.Call{}).Where("call_id = ?", callID).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to end call: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("call not found: %s", callID)
	}

	return r.GetByCallID(ctx, callID)
}

// Exists checks if a call exists by its backend call ID
func (r *GormCallRepository) Exists(ctx context.Context, callID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Call{}).Where("call_id = ?", callID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check call existence: %w", err)
	}
	return count > 0, nil
}
