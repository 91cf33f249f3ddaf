package task

import (
	"context"
)

// TaskType defines the type of cross-instance task
type TaskType string

const (
	TaskTypeStopCall    TaskType = "stop_call"    // Stop a call owned by another instance
	TaskTypeAgentSay    TaskType = "agent_say"    // Deliver an operator message to the owning instance
	TaskTypeReloadCache TaskType = "reload_cache" // Reload the voice settings cache from the database
)

// CallTask represents a cross-instance task payload. CallID is empty for
// tasks that address every instance, such as cache reloads.
type CallTask struct {
	Type     TaskType `json:"type"`
	CallID   string   `json:"call_id,omitempty"`
	TenantID string   `json:"tenant_id,omitempty"`
	Payload  []byte   `json:"payload,omitempty"` // JSON payload of the original request
}

// AgentSayPayload is the Payload of an agent_say task.
type AgentSayPayload struct {
	Text string `json:"text"`
}

// Bus defines the interface for the task bus
type Bus interface {
	Publish(ctx context.Context, task CallTask) error
	Subscribe(ctx context.Context, handler func(CallTask)) error
}
