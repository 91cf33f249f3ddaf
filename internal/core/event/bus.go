package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"go.uber.org/zap"
)

// EventHandler represents a function that handles events
type EventHandler func(event *TelephonyEvent)

// EventMiddleware represents middleware that can wrap event handlers
type EventMiddleware func(next EventHandler) EventHandler

// subscriberBuffer is the per-subscription queue depth. A subscriber that
// falls further behind than this starts dropping events.
const subscriberBuffer = 64

// EventBus defines the interface for event bus operations. Each subscriber
// drains its own queue in publish order, so per-subscriber ordering matches
// message-arrival order.
type EventBus interface {
	Publish(eventType EventType, callID string, data interface{}) error
	PublishEvent(event *TelephonyEvent) error
	Subscribe(eventType EventType, handler EventHandler) (string, error)
	SubscribeWithTimeout(eventType EventType, handler EventHandler, timeout time.Duration) (string, error)
	Unsubscribe(subscriptionID string) error
	Use(middleware EventMiddleware)
	Close() error
	GetStats() BusStats
}

// BusStats contains statistics about the event bus
type BusStats struct {
	TotalEvents     int64            `json:"total_events"`
	DroppedEvents   int64            `json:"dropped_events"`
	EventsByType    map[string]int64 `json:"events_by_type"`
	ActiveHandlers  int              `json:"active_handlers"`
	SubscriberCount map[string]int   `json:"subscriber_count"`
}

// subscription owns one ordered delivery queue and its drain goroutine.
type subscription struct {
	id        string
	eventType EventType
	queue     chan *TelephonyEvent
	done      chan struct{}
}

// DefaultEventBus is the default implementation of EventBus
type DefaultEventBus struct {
	subscribers map[EventType]map[string]*subscription
	middleware  []EventMiddleware
	nextID      int64
	mutex       sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	stats       BusStats
	statsMutex  sync.RWMutex
}

// NewEventBus creates a new event bus instance
func NewEventBus() EventBus {
	ctx, cancel := context.WithCancel(context.Background())

	return &DefaultEventBus{
		subscribers: make(map[EventType]map[string]*subscription),
		middleware:  make([]EventMiddleware, 0),
		ctx:         ctx,
		cancel:      cancel,
		stats: BusStats{
			EventsByType:    make(map[string]int64),
			SubscriberCount: make(map[string]int),
		},
	}
}

// Publish publishes an event with the given type, call scope and data
func (b *DefaultEventBus) Publish(eventType EventType, callID string, data interface{}) error {
	event := NewTelephonyEvent(eventType, callID)
	if data != nil {
		event.Data = data
	}
	return b.PublishEvent(event)
}

// PublishEvent enqueues a complete event on every matching subscription.
// Delivery is asynchronous but ordered per subscriber.
func (b *DefaultEventBus) PublishEvent(event *TelephonyEvent) error {
	select {
	case <-b.ctx.Done():
		return fmt.Errorf("event bus is closed")
	default:
	}

	b.mutex.RLock()
	subs, exists := b.subscribers[event.Type]
	if !exists || len(subs) == 0 {
		b.mutex.RUnlock()
		logger.Base().Debug("No subscribers for event type", zap.String("type", string(event.Type)), zap.String("call_id", event.CallID))
		return nil
	}

	subsCopy := make([]*subscription, 0, len(subs))
	for _, sub := range subs {
		subsCopy = append(subsCopy, sub)
	}
	b.mutex.RUnlock()

	b.updateStats(event.Type)

	for _, sub := range subsCopy {
		select {
		case sub.queue <- event:
		case <-sub.done:
		default:
			b.countDropped()
			logger.Base().Warn("Subscriber queue full, dropping event",
				zap.String("type", string(event.Type)),
				zap.String("call_id", event.CallID),
				zap.String("subscription_id", sub.id))
		}
	}

	return nil
}

// Subscribe subscribes to events of a specific type and returns the
// subscription ID used for Unsubscribe.
func (b *DefaultEventBus) Subscribe(eventType EventType, handler EventHandler) (string, error) {
	return b.SubscribeWithTimeout(eventType, handler, 0)
}

// SubscribeWithTimeout subscribes with a per-event handler timeout.
func (b *DefaultEventBus) SubscribeWithTimeout(eventType EventType, handler EventHandler, timeout time.Duration) (string, error) {
	select {
	case <-b.ctx.Done():
		return "", fmt.Errorf("event bus is closed")
	default:
	}

	if handler == nil {
		return "", fmt.Errorf("handler cannot be nil")
	}

	b.mutex.Lock()
	b.nextID++
	sub := &subscription{
		id:        fmt.Sprintf("%s#%d", eventType, b.nextID),
		eventType: eventType,
		queue:     make(chan *TelephonyEvent, subscriberBuffer),
		done:      make(chan struct{}),
	}
	if _, ok := b.subscribers[eventType]; !ok {
		b.subscribers[eventType] = make(map[string]*subscription)
	}
	b.subscribers[eventType][sub.id] = sub
	b.mutex.Unlock()

	b.statsMutex.Lock()
	b.stats.SubscriberCount[string(eventType)]++
	b.stats.ActiveHandlers++
	b.statsMutex.Unlock()

	finalHandler := handler
	if timeout > 0 {
		finalHandler = b.withTimeout(handler, timeout)
	}

	go b.drain(sub, finalHandler)

	logger.Base().Debug("Subscribed to event type", zap.String("event_type", string(eventType)), zap.String("subscription_id", sub.id))
	return sub.id, nil
}

// drain delivers queued events to the handler in order until the
// subscription ends.
func (b *DefaultEventBus) drain(sub *subscription, handler EventHandler) {
	for {
		select {
		case <-sub.done:
			return
		case <-b.ctx.Done():
			return
		case ev := <-sub.queue:
			b.deliver(sub, handler, ev)
		}
	}
}

func (b *DefaultEventBus) deliver(sub *subscription, handler EventHandler, event *TelephonyEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.Base().Error("Event handler panic",
				zap.String("type", string(event.Type)),
				zap.String("subscription_id", sub.id),
				zap.Any("panic", r))
		}
	}()

	b.mutex.RLock()
	mw := b.middleware
	b.mutex.RUnlock()

	finalHandler := handler
	for i := len(mw) - 1; i >= 0; i-- {
		finalHandler = mw[i](finalHandler)
	}
	finalHandler(event)
}

// Unsubscribe removes the subscription with the given ID.
func (b *DefaultEventBus) Unsubscribe(subscriptionID string) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for eventType, subs := range b.subscribers {
		if sub, ok := subs[subscriptionID]; ok {
			close(sub.done)
			delete(subs, subscriptionID)

			b.statsMutex.Lock()
			b.stats.SubscriberCount[string(eventType)]--
			b.stats.ActiveHandlers--
			b.statsMutex.Unlock()

			logger.Base().Debug("Unsubscribed", zap.String("subscription_id", subscriptionID))
			return nil
		}
	}

	return fmt.Errorf("subscription not found: %s", subscriptionID)
}

// Use adds middleware to the event bus
func (b *DefaultEventBus) Use(middleware EventMiddleware) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.middleware = append(b.middleware, middleware)
}

// Close closes the event bus and stops all drain goroutines.
func (b *DefaultEventBus) Close() error {
	b.cancel()

	b.mutex.Lock()
	defer b.mutex.Unlock()

	for _, subs := range b.subscribers {
		for _, sub := range subs {
			close(sub.done)
		}
	}
	b.subscribers = make(map[EventType]map[string]*subscription)
	b.middleware = make([]EventMiddleware, 0)

	logger.Base().Info("Event bus closed")
	return nil
}

// GetStats returns current bus statistics
func (b *DefaultEventBus) GetStats() BusStats {
	b.statsMutex.RLock()
	defer b.statsMutex.RUnlock()

	stats := BusStats{
		TotalEvents:     b.stats.TotalEvents,
		DroppedEvents:   b.stats.DroppedEvents,
		EventsByType:    make(map[string]int64),
		ActiveHandlers:  b.stats.ActiveHandlers,
		SubscriberCount: make(map[string]int),
	}

	for k, v := range b.stats.EventsByType {
		stats.EventsByType[k] = v
	}

	for k, v := range b.stats.SubscriberCount {
		stats.SubscriberCount[k] = v
	}

	return stats
}

// withTimeout wraps a handler with timeout functionality
func (b *DefaultEventBus) withTimeout(handler EventHandler, timeout time.Duration) EventHandler {
	return func(event *TelephonyEvent) {
		done := make(chan struct{})

		go func() {
			defer close(done)
			handler(event)
		}()

		select {
		case <-done:
		case <-time.After(timeout):
			logger.Base().Warn("Event handler timeout", zap.String("type", string(event.Type)), zap.Duration("timeout", timeout))
		case <-b.ctx.Done():
		}
	}
}

// updateStats updates event statistics
func (b *DefaultEventBus) updateStats(eventType EventType) {
	b.statsMutex.Lock()
	defer b.statsMutex.Unlock()

	b.stats.TotalEvents++
	b.stats.EventsByType[string(eventType)]++
}

func (b *DefaultEventBus) countDropped() {
	b.statsMutex.Lock()
	defer b.statsMutex.Unlock()

	b.stats.DroppedEvents++
}
