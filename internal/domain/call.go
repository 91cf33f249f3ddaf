package domain

import (
	"time"
)

// CallStatus represents the lifecycle stage of a call. The backend is the
// source of truth; the tracker only applies transitions it recognizes.
type CallStatus string

const (
	CallStatusRinging    CallStatus = "ringing"
	CallStatusAnswered   CallStatus = "answered"
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
)

// IsTerminal reports whether the status has no outgoing transitions.
func (s CallStatus) IsTerminal() bool {
	return s == CallStatusCompleted || s == CallStatusFailed
}

// CallDirection represents who initiated the call.
type CallDirection string

const (
	CallDirectionInbound  CallDirection = "inbound"
	CallDirectionOutbound CallDirection = "outbound"
)

// Call represents one phone conversation session tracked end-to-end by the
// telephony client. Created on call start, closed on completion.
type Call struct {
	ID         string        `json:"id" db:"id" gorm:"column:id;primaryKey"`
	CallID     string        `json:"call_id" db:"call_id" gorm:"column:call_id;uniqueIndex"`
	TenantID   string        `json:"tenant_id" db:"tenant_id" gorm:"column:tenant_id;index"`
	Status     CallStatus    `json:"status" db:"status" gorm:"column:status"`
	Direction  CallDirection `json:"direction" db:"direction" gorm:"column:direction"`
	FromNumber string        `json:"from_number" db:"from_number" gorm:"column:from_number"`
	ToNumber   string        `json:"to_number" db:"to_number" gorm:"column:to_number"`
	Language   string        `json:"language" db:"language" gorm:"column:language"`
	Model      string        `json:"model" db:"model" gorm:"column:model"`
	StartedAt  time.Time     `json:"started_at" db:"started_at" gorm:"column:started_at"`
	EndedAt    time.Time     `json:"ended_at" db:"ended_at" gorm:"column:ended_at"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at" gorm:"column:created_at"`
	UpdatedAt  time.Time     `json:"updated_at" db:"updated_at" gorm:"column:updated_at"`
}

func (Call) TableName() string {
	return "calls"
}

// DurationSeconds returns the elapsed call time in whole seconds, zero when
// the call has not ended.
func (c *Call) DurationSeconds() int64 {
	if c.EndedAt.IsZero() || c.StartedAt.IsZero() {
		return 0
	}
	return int64(c.EndedAt.Sub(c.StartedAt).Seconds())
}
