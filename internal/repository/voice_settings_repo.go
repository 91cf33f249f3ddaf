package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormVoiceSettingsRepository implements VoiceSettingsRepository using GORM
type GormVoiceSettingsRepository struct {
	db *gorm.DB
}

// NewGormVoiceSettingsRepository creates a new GORM voice settings repository
func NewGormVoiceSettingsRepository(db *gorm.DB) *GormVoiceSettingsRepository {
	return &GormVoiceSettingsRepository{db: db}
}

// Get retrieves voice settings for a user. Returns nil without an error when
// the user has no saved settings.
func (r *GormVoiceSettingsRepository) Get(ctx context.Context, userID string) (*domain.VoiceSettings, error) {
	var settings domain.VoiceSettings
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get voice settings: %w", err)
	}
	return &settings, nil
}

// Upsert writes voice settings for a user; the last write wins.
func (r *GormVoiceSettingsRepository) Upsert(ctx context.Context, settings *domain.VoiceSettings) error {
	if settings.UserID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}
	settings.Normalize()

	now := time.Now()
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = now
	}
	settings.UpdatedAt = now

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"voice_enabled", "selected_voice", "speaking_rate", "language", "updated_at",
		}),
	}).Create(settings).Error
	if err != nil {
		return fmt.Errorf("failed to upsert voice settings: %w", err)
	}
	return nil
}

// Delete removes voice settings for a user
func (r *GormVoiceSettingsRepository) Delete(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.VoiceSettings{}).Error; err != nil {
		return fmt.Errorf("failed to delete voice settings: %w", err)
	}
	return nil
}

// List returns every stored voice settings row. The settings cache replaces
// its contents with this snapshot on reload.
func (r *GormVoiceSettingsRepository) List(ctx context.Context) ([]*domain.VoiceSettings, error) {
	var settings []*domain.VoiceSettings
	if err := r.db.WithContext(ctx).Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to list voice settings: %w", err)
	}
	return settings, nil
}
