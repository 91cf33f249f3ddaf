package domain

import (
	"time"
)

// MessageSender identifies who produced a call message.
type MessageSender string

const (
	MessageSenderCustomer MessageSender = "customer"
	MessageSenderAgent    MessageSender = "agent"
	MessageSenderSystem   MessageSender = "system"
)

// MessageKind distinguishes transcript entries from system/summary/note rows.
type MessageKind string

const (
	MessageKindTranscript MessageKind = "transcript"
	MessageKindSystem     MessageKind = "system"
	MessageKindSummary    MessageKind = "summary"
	MessageKindNote       MessageKind = "note"
)

// CallMessage is a transcript/system/summary/note entry tied to a call.
// Created incrementally as utterances finalize; immutable once persisted.
type CallMessage struct {
	ID           string        `json:"id" db:"id" gorm:"column:id;primaryKey"`
	CallID       string        `json:"call_id" db:"call_id" gorm:"column:call_id;index"`
	Sender       MessageSender `json:"sender" db:"sender" gorm:"column:sender"`
	Kind         MessageKind   `json:"kind" db:"kind" gorm:"column:kind"`
	Content      string        `json:"content" db:"content" gorm:"column:content"`
	Confidence   float64       `json:"confidence" db:"confidence" gorm:"column:confidence"`
	AudioStartMs int64         `json:"audio_start_ms" db:"audio_start_ms" gorm:"column:audio_start_ms"`
	AudioEndMs   int64         `json:"audio_end_ms" db:"audio_end_ms" gorm:"column:audio_end_ms"`
	Metadata     JSONB         `json:"metadata,omitempty" db:"metadata" gorm:"column:metadata;type:jsonb"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at" gorm:"column:updated_at"`
}

func (CallMessage) TableName() string {
	return "call_messages"
}
