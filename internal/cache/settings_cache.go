package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/domain"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"github.com/jinzhu/copier"
	"go.uber.org/zap"
)

var (
	instance *SettingsCache
	once     sync.Once
)

// SettingsCache provides thread-safe per-user voice settings with a
// database-backed refresh path. Reads and writes hand out deep copies so
// callers can never mutate cached state.
type SettingsCache struct {
	settings   map[string]*domain.VoiceSettings // user_id -> settings
	mutex      sync.RWMutex
	updateChan chan []*domain.VoiceSettings
	ctx        context.Context
	cancel     context.CancelFunc
	isStarted  bool
	startMutex sync.Mutex
}

// NewSettingsCache returns the settings cache (internally managed as singleton)
func NewSettingsCache() *SettingsCache {
	once.Do(func() {
		instance = createSettingsCache()
	})
	return instance
}

// createSettingsCache is the internal constructor for the singleton
func createSettingsCache() *SettingsCache {
	ctx, cancel := context.WithCancel(context.Background())

	cache := &SettingsCache{
		settings:   make(map[string]*domain.VoiceSettings),
		mutex:      sync.RWMutex{},
		updateChan: make(chan []*domain.VoiceSettings, 1000),
		ctx:        ctx,
		cancel:     cancel,
	}

	cache.startAsyncProcessor()

	logger.Base().Info("SettingsCache initialized (empty cache, waiting for database load)")
	return cache
}

// Get retrieves settings for a user (thread-safe read)
func (c *SettingsCache) Get(userID string) (*domain.VoiceSettings, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	settings, exists := c.settings[userID]
	if !exists {
		return nil, fmt.Errorf("voice settings not cached for user: %s", userID)
	}
	return c.copySettings(settings), nil
}

// GetAll retrieves all cached settings (thread-safe read)
func (c *SettingsCache) GetAll() []*domain.VoiceSettings {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	all := make([]*domain.VoiceSettings, 0, len(c.settings))
	for _, settings := range c.settings {
		all = append(all, c.copySettings(settings))
	}
	return all
}

// Upsert stores settings for a user; the last write wins (thread-safe write)
func (c *SettingsCache) Upsert(settings *domain.VoiceSettings) error {
	if settings == nil {
		return fmt.Errorf("settings cannot be nil")
	}
	if settings.UserID == "" {
		return fmt.Errorf("settings have empty user ID")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	settings.UpdatedAt = time.Now()
	c.settings[settings.UserID] = c.copySettings(settings)

	logger.Base().Debug("Voice settings cached", zap.String("user_id", settings.UserID))
	return nil
}

// Delete removes cached settings for a user (thread-safe write)
func (c *SettingsCache) Delete(userID string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.settings[userID]; !exists {
		return fmt.Errorf("voice settings not cached for user: %s", userID)
	}
	delete(c.settings, userID)

	logger.Base().Debug("Voice settings evicted", zap.String("user_id", userID))
	return nil
}

// Count returns the number of cached users (thread-safe read)
func (c *SettingsCache) Count() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.settings)
}

// copySettings creates a deep copy so callers cannot mutate cached state.
// Uses github.com/jinzhu/copier so newly added fields are covered automatically.
func (c *SettingsCache) copySettings(original *domain.VoiceSettings) *domain.VoiceSettings {
	if original == nil {
		return nil
	}

	var settingsCopy domain.VoiceSettings
	if err := copier.CopyWithOption(&settingsCopy, original, copier.Option{DeepCopy: true}); err != nil {
		logger.Base().Warn("Failed to copy voice settings", zap.Error(err))
		return original
	}

	return &settingsCopy
}

// UpdateSettingsAsync performs an asynchronous bulk replace with all provided
// settings. This is the single method for the database load path.
func (c *SettingsCache) UpdateSettingsAsync(settings []*domain.VoiceSettings) error {
	if settings == nil {
		settings = make([]*domain.VoiceSettings, 0)
	}

	select {
	case <-c.ctx.Done():
		return fmt.Errorf("cache is shutdown")
	default:
	}

	select {
	case c.updateChan <- settings:
		return nil
	case <-c.ctx.Done():
		return fmt.Errorf("cache is shutdown")
	default:
		return fmt.Errorf("update queue is full, please try again later")
	}
}

// startAsyncProcessor starts the background goroutine to process updates
func (c *SettingsCache) startAsyncProcessor() {
	c.startMutex.Lock()
	defer c.startMutex.Unlock()

	if c.isStarted {
		return
	}

	c.isStarted = true

	go func() {
		for {
			select {
			case <-c.ctx.Done():
				return
			case settings := <-c.updateChan:
				c.processUpdate(settings)
			}
		}
	}()
}

// processUpdate replaces the cache contents with the provided batch
func (c *SettingsCache) processUpdate(batch []*domain.VoiceSettings) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	oldCount := len(c.settings)
	newSettings := make(map[string]*domain.VoiceSettings)
	seenUsers := make(map[string]bool)

	for _, settings := range batch {
		if settings == nil || settings.UserID == "" {
			logger.Base().Warn("Skipping invalid settings in update batch")
			continue
		}
		if seenUsers[settings.UserID] {
			continue
		}
		seenUsers[settings.UserID] = true

		settings.UpdatedAt = time.Now()
		newSettings[settings.UserID] = c.copySettings(settings)
	}

	c.settings = newSettings

	logger.Base().Info("Async settings update completed",
		zap.Int("old_count", oldCount),
		zap.Int("new_count", len(c.settings)),
		zap.Int("provided_count", len(batch)))
}

// Shutdown gracefully shuts down the settings cache
func (c *SettingsCache) Shutdown() {
	c.cancel()
	close(c.updateChan)
	logger.Base().Info("SettingsCache shutdown completed")
}

// ShutdownGlobal gracefully shuts down the global singleton instance
func ShutdownGlobal() {
	if instance != nil {
		instance.Shutdown()
		instance = nil
		once = sync.Once{}
	}
}
