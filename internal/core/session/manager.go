package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/redis"
	"go.uber.org/zap"
)

const SessionTTL = 1 * time.Hour

// SessionInfo records which instance owns a live call. The registry lets
// any instance answer "who is handling this call" without broadcasting.
type SessionInfo struct {
	CallID     string    `json:"callId"`
	InstanceID string    `json:"instanceId"`
	TenantID   string    `json:"tenantId"`
	Language   string    `json:"language"`
	Model      string    `json:"model"`
	StartTime  time.Time `json:"startTime"`
}

type Manager struct {
	redisSvc   redis.RedisServiceInterface
	instanceID string
}

func NewManager(redisSvc redis.RedisServiceInterface, instanceID string) *Manager {
	return &Manager{
		redisSvc:   redisSvc,
		instanceID: instanceID,
	}
}

// InstanceID returns the identity this manager registers sessions under.
func (m *Manager) InstanceID() string {
	return m.instanceID
}

// Register records a live call session in Redis
func (m *Manager) Register(ctx context.Context, info SessionInfo) error {
	info.InstanceID = m.instanceID
	if info.StartTime.IsZero() {
		info.StartTime = time.Now()
	}

	data, _ := json.Marshal(info)
	key := m.redisSvc.GenerateKey(redis.CALL_SESSION, info.CallID)

	err := m.redisSvc.SetValue(ctx, key, string(data), SessionTTL)
	if err == nil {
		logger.Base().Info("Session registered in Redis", zap.String("call_id", info.CallID), zap.String("instance_id", m.instanceID))
	}
	return err
}

// Unregister removes a call session from Redis
func (m *Manager) Unregister(ctx context.Context, callID string) error {
	key := m.redisSvc.GenerateKey(redis.CALL_SESSION, callID)
	return m.redisSvc.DelValue(ctx, key)
}

// Lookup returns the session for a call, or nil when no instance owns it.
func (m *Manager) Lookup(ctx context.Context, callID string) (*SessionInfo, error) {
	key := m.redisSvc.GenerateKey(redis.CALL_SESSION, callID)

	val, err := m.redisSvc.GetValue(ctx, key)
	if err != nil {
		if err == redis.ErrKeyNotExist {
			return nil, nil
		}
		return nil, err
	}

	var info SessionInfo
	if err := json.Unmarshal([]byte(val), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Owns reports whether this instance registered the call.
func (m *Manager) Owns(ctx context.Context, callID string) (bool, error) {
	info, err := m.Lookup(ctx, callID)
	if err != nil || info == nil {
		return false, err
	}
	return info.InstanceID == m.instanceID, nil
}

// Touch extends the TTL of a session that is still active. Sessions of
// long calls would otherwise expire under the sweeper's feet.
func (m *Manager) Touch(ctx context.Context, callID string) error {
	info, err := m.Lookup(ctx, callID)
	if err != nil || info == nil {
		return err
	}

	data, _ := json.Marshal(info)
	key := m.redisSvc.GenerateKey(redis.CALL_SESSION, callID)
	return m.redisSvc.SetValue(ctx, key, string(data), SessionTTL)
}
