package domain

import (
	"time"
)

const (
	DefaultVoice        = "aurora"
	DefaultSpeakingRate = 1.0
	MinSpeakingRate     = 0.5
	MaxSpeakingRate     = 2.0
)

// VoiceSettings is per-user preference state for the voice features. Last
// written values win; there is no server-side invariant beyond that.
type VoiceSettings struct {
	UserID        string    `json:"user_id" db:"user_id" gorm:"column:user_id;primaryKey"`
	VoiceEnabled  bool      `json:"voice_enabled" db:"voice_enabled" gorm:"column:voice_enabled"`
	SelectedVoice string    `json:"selected_voice" db:"selected_voice" gorm:"column:selected_voice"`
	SpeakingRate  float64   `json:"speaking_rate" db:"speaking_rate" gorm:"column:speaking_rate"`
	Language      string    `json:"language" db:"language" gorm:"column:language"`
	CreatedAt     time.Time `json:"created_at" db:"created_at" gorm:"column:created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at" gorm:"column:updated_at"`
}

func (VoiceSettings) TableName() string {
	return "voice_settings"
}

// Normalize clamps out-of-range values and fills defaults so a partial
// write never leaves unusable settings behind.
func (s *VoiceSettings) Normalize() {
	if s.SelectedVoice == "" {
		s.SelectedVoice = DefaultVoice
	}
	if s.SpeakingRate == 0 {
		s.SpeakingRate = DefaultSpeakingRate
	}
	if s.SpeakingRate < MinSpeakingRate {
		s.SpeakingRate = MinSpeakingRate
	}
	if s.SpeakingRate > MaxSpeakingRate {
		s.SpeakingRate = MaxSpeakingRate
	}
}
