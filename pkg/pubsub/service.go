package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
	PubID     string `mapstructure:"pub_id"`
}

type PubSubService struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	config *PubSubConfig
}

// CallMetricsEvent is the per-call metrics payload published when a call
// reaches a terminal status. Downstream billing and analytics consume it.
type CallMetricsEvent struct {
	ID            string     `json:"id"`
	CallID        string     `json:"call_id"`
	TenantID      string     `json:"tenant_id"`
	Direction     string     `json:"direction"`
	Language      string     `json:"language"`
	Model         string     `json:"model"`
	Status        string     `json:"status"`
	StartAt       time.Time  `json:"start_at"`
	EndAt         *time.Time `json:"end_at,omitempty"`
	Duration      int64      `json:"duration"`
	MessageCount  int        `json:"message_count"`
	CustomerTurns int        `json:"customer_turns"`
	AgentTurns    int        `json:"agent_turns"`
	SpokenSeconds int64      `json:"spoken_seconds"`
	CapturedSecs  int64      `json:"captured_seconds"`
	Reconnects    int64      `json:"reconnects"`
	CreatedAt     time.Time  `json:"created_at"`
}

func NewPubSubService(ctx context.Context, cfg *PubSubConfig) (*PubSubService, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("PubSub project ID is required")
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create PubSub client: %w", err)
	}

	topic := client.Topic(cfg.TopicName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to check if topic exists: %w", err)
	}

	if !exists {
		logger.Base().Info("Topic does not exist, creating", zap.String("topic_name", cfg.TopicName))
		topic, err = client.CreateTopic(ctx, cfg.TopicName)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to create topic %s: %w", cfg.TopicName, err)
		}
		logger.Base().Info("Topic created successfully", zap.String("topic_name", cfg.TopicName))
	}

	return &PubSubService{
		client: client,
		topic:  topic,
		config: cfg,
	}, nil
}

// PublishCallMetricsEvent publishes aggregated call metrics to Pub/Sub
func (p *PubSubService) PublishCallMetricsEvent(ctx context.Context, metrics CallMetricsEvent) error {
	if metrics.ID == "" {
		metrics.ID = uuid.New().String()
	}
	if metrics.CreatedAt.IsZero() {
		metrics.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal call metrics event: %w", err)
	}

	taskID := uuid.New().String()

	// The name attribute carries the publisher prefix so subscription
	// filters can split environments on one topic.
	namePrefix := p.config.PubID
	if namePrefix != "" {
		namePrefix += ":"
	}

	message := &pubsub.Message{
		Attributes: map[string]string{
			"name": fmt.Sprintf("%s%s", namePrefix, taskID),
		},
		Data: data,
	}

	result := p.topic.Publish(ctx, message)
	if _, err := result.Get(ctx); err != nil {
		logger.Base().Error("Failed to publish call metrics",
			zap.String("call_id", metrics.CallID),
			zap.String("tenant_id", metrics.TenantID),
			zap.String("task_id", taskID),
			zap.Error(err))
		return fmt.Errorf("failed to publish call metrics message: %w", err)
	}

	logger.Base().Info("Published call metrics",
		zap.String("id", metrics.ID),
		zap.String("call_id", metrics.CallID),
		zap.String("tenant_id", metrics.TenantID),
		zap.String("status", metrics.Status),
		zap.Int64("duration", metrics.Duration),
		zap.String("task_id", taskID))

	return nil
}

func (p *PubSubService) Close() error {
	if p.topic != nil {
		p.topic.Stop()
	}
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
