package repository

import (
	"context"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/domain"
	"gorm.io/gorm"
)

// CallRepository defines the interface for call row operations
type CallRepository interface {
	// Create operations
	Create(ctx context.Context, call *domain.Call) error

	// Read operations
	GetByCallID(ctx context.Context, callID string) (*domain.Call, error)
	ListByTenant(ctx context.Context, tenantID string, opts ListCallsOptions) ([]*domain.Call, error)

	// Update operations
	UpdateStatus(ctx context.Context, callID string, status domain.CallStatus) error
	End(ctx context.Context, callID string, status domain.CallStatus) (*domain.Call, error)

	// Utility operations
	Exists(ctx context.Context, callID string) (bool, error)
}

// CallMessageRepository defines the interface for transcript message operations
type CallMessageRepository interface {
	Create(ctx context.Context, message *domain.CallMessage) error
	CreateBatch(ctx context.Context, messages []*domain.CallMessage) error
	GetByCallID(ctx context.Context, callID string) ([]*domain.CallMessage, error)
	CountByCallID(ctx context.Context, callID string) (int64, error)
	DeleteByCallID(ctx context.Context, callID string) error
}

// VoiceSettingsRepository defines the interface for per-user voice settings
type VoiceSettingsRepository interface {
	Get(ctx context.Context, userID string) (*domain.VoiceSettings, error)
	Upsert(ctx context.Context, settings *domain.VoiceSettings) error
	Delete(ctx context.Context, userID string) error
	List(ctx context.Context) ([]*domain.VoiceSettings, error)
}

// TenantRepository defines the interface for console tenant operations
type TenantRepository interface {
	Create(ctx context.Context, req *domain.CreateConsoleTenantRequest) (*domain.ConsoleTenant, error)
	GetByTenantID(ctx context.Context, tenantID string) (*domain.ConsoleTenant, error)
	GetByConsoleKey(ctx context.Context, consoleKey string) (*domain.ConsoleTenant, error)
	GetAll(ctx context.Context, includeDisabled bool) ([]*domain.ConsoleTenant, error)
	Update(ctx context.Context, id string, req *domain.UpdateConsoleTenantRequest) (*domain.ConsoleTenant, error)

	// Disable is a soft delete; tenant rows are never removed.
	Disable(ctx context.Context, id string) error
	ExistsByTenantID(ctx context.Context, tenantID string) (bool, error)
}

// RepositoryManager combines all repositories
type RepositoryManager interface {
	Calls() CallRepository
	CallMessages() CallMessageRepository
	VoiceSettings() VoiceSettingsRepository
	Tenants() TenantRepository

	// Transaction support
	WithTx(ctx context.Context, fn func(ctx context.Context, repos RepositoryManager) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connection
	Close() error
}

// GormRepositoryManager implements RepositoryManager using GORM
type GormRepositoryManager struct {
	db                *gorm.DB
	callRepo          *GormCallRepository
	callMessageRepo   *GormCallMessageRepository
	voiceSettingsRepo *GormVoiceSettingsRepository
	tenantRepo        *GormTenantRepository
}

// NewGormRepositoryManager creates a new GORM repository manager
func NewGormRepositoryManager(db *gorm.DB) *GormRepositoryManager {
	return &GormRepositoryManager{
		db:                db,
		callRepo:          NewGormCallRepository(db),
		callMessageRepo:   NewGormCallMessageRepository(db),
		voiceSettingsRepo: NewGormVoiceSettingsRepository(db),
		tenantRepo:        NewGormTenantRepository(db),
	}
}

// Calls returns the call repository
func (m *GormRepositoryManager) Calls() CallRepository {
	return m.callRepo
}

// CallMessages returns the call message repository
func (m *GormRepositoryManager) CallMessages() CallMessageRepository {
	return m.callMessageRepo
}

// VoiceSettings returns the voice settings repository
func (m *GormRepositoryManager) VoiceSettings() VoiceSettingsRepository {
	return m.voiceSettingsRepo
}

// Tenants returns the console tenant repository
func (m *GormRepositoryManager) Tenants() TenantRepository {
	return m.tenantRepo
}

// WithTx executes a function within a database transaction
func (m *GormRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos RepositoryManager) error) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewGormRepositoryManager(tx))
	})
}

// Ping checks the database connection
func (m *GormRepositoryManager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (m *GormRepositoryManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
