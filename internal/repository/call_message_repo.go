package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCallMessageRepository implements CallMessageRepository using GORM
type GormCallMessageRepository struct {
	db *gorm.DB
}

// NewGormCallMessageRepository creates a new GORM call message repository
func NewGormCallMessageRepository(db *gorm.DB) *GormCallMessageRepository {
	return &GormCallMessageRepository{db: db}
}

// Create creates a single call message
func (r *GormCallMessageRepository) Create(ctx context.Context, message *domain.CallMessage) error {
	if message.CallID == "" {
		return fmt.Errorf("call ID cannot be empty")
	}
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.Kind == "" {
		message.Kind = domain.MessageKindTranscript
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	message.UpdatedAt = time.Now()

	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("failed to create call message: %w", err)
	}
	return nil
}

// CreateBatch creates multiple call messages in a batch
func (r *GormCallMessageRepository) CreateBatch(ctx context.Context, messages []*domain.CallMessage) error {
	if len(messages) == 0 {
		return nil
	}

	now := time.Now()
	for _, msg := range messages {
		if msg.ID == "" {
			msg.ID = uuid.New().String()
		}
		if msg.Kind == "" {
			msg.Kind = domain.MessageKindTranscript
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = now
		}
		msg.UpdatedAt = now
	}

	if err := r.db.WithContext(ctx).CreateInBatches(messages, 100).Error; err != nil {
		return fmt.Errorf("failed to create call messages: %w", err)
	}
	return nil
}

// GetByCallID retrieves all messages for a call in transcript order
func (r *GormCallMessageRepository) GetByCallID(ctx context.Context, callID string) ([]*domain.CallMessage, error) {
	var messages []*domain.CallMessage
	if err := r.db.WithContext(ctx).
		Where("call_id = ?", callID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to get call messages: %w", err)
	}
	return messages, nil
}

// CountByCallID counts the messages persisted for a call
func (r *GormCallMessageRepository) CountByCallID(ctx context.Context, callID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.CallMessage{}).Where("call_id = ?", callID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count call messages: %w", err)
	}
	return count, nil
}

// DeleteByCallID deletes all messages for a call
func (r *GormCallMessageRepository) DeleteByCallID(ctx context.Context, callID string) error {
	if err := r.db.WithContext(ctx).
		Where("call_id = ?", callID).
		Delete(&domain.CallMessage{}).Error; err != nil {
		return fmt.Errorf("failed to delete call messages: %w", err)
	}
	return nil
}
