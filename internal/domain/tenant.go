package domain

import (
	"time"
)

// ConsoleTenant is an organization account allowed to use the console
// service. The console key authenticates server-to-server API calls.
type ConsoleTenant struct {
	ID           string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID     string    `json:"tenant_id" gorm:"type:varchar(255);uniqueIndex:uni_console_tenants_tenant_id;not null"`
	ConsoleKey   string    `json:"console_key" gorm:"type:varchar(255);not null"`
	TenantName   string    `json:"tenant_name" gorm:"type:varchar(255);not null"`
	CustomConfig JSONB     `json:"custom_config" gorm:"type:jsonb"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
	Disabled     bool      `json:"disabled" gorm:"default:false"`
}

// TableName sets the table name for ConsoleTenant
func (ConsoleTenant) TableName() string {
	return "console_tenants"
}

// CreateConsoleTenantRequest represents the request to create a new tenant
type CreateConsoleTenantRequest struct {
	TenantID     string `json:"tenant_id" validate:"required"`
	ConsoleKey   string `json:"console_key" validate:"required"`
	TenantName   string `json:"tenant_name" validate:"required"`
	CustomConfig JSONB  `json:"custom_config,omitempty"`
}

// UpdateConsoleTenantRequest represents the request to update a tenant
type UpdateConsoleTenantRequest struct {
	TenantName   *string `json:"tenant_name,omitempty"`
	CustomConfig *JSONB  `json:"custom_config,omitempty"`
	Disabled     *bool   `json:"disabled,omitempty"`
}
