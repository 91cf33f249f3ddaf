package event

import (
	"fmt"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"go.uber.org/zap"
)

// LoggingMiddleware provides logging for all events. TTS audio segments
// arrive many times per second, so those log at debug level only.
func LoggingMiddleware(next EventHandler) EventHandler {
	return func(event *TelephonyEvent) {
		start := time.Now()

		if event.Type == TTSAudioSegment {
			next(event)
			logger.Base().Debug("Event handler completed", zap.String("type", string(event.Type)), zap.String("call_id", event.CallID), zap.Duration("duration", time.Since(start)))
			return
		}

		logger.Base().Info("Processing event", zap.String("type", string(event.Type)), zap.String("call_id", event.CallID))
		defer func() {
			duration := time.Since(start)
			if event.IsError() {
				logger.Base().Error("Event handler failed", zap.String("type", string(event.Type)), zap.String("call_id", event.CallID), zap.Error(event.Error))
			} else {
				logger.Base().Info("Event handler completed", zap.String("type", string(event.Type)), zap.String("call_id", event.CallID), zap.Duration("duration", duration))
			}
		}()

		next(event)
	}
}

// RecoveryMiddleware provides panic recovery for event handlers
func RecoveryMiddleware(next EventHandler) EventHandler {
	return func(event *TelephonyEvent) {
		defer func() {
			if r := recover(); r != nil {
				logger.Base().Error("Panic in event handler", zap.String("type", string(event.Type)), zap.String("call_id", event.CallID), zap.Any("panic", r))
			}
		}()

		next(event)
	}
}

// TimeoutMiddleware provides timeout functionality for event handlers
func TimeoutMiddleware(timeout time.Duration) EventMiddleware {
	return func(next EventHandler) EventHandler {
		return func(event *TelephonyEvent) {
			done := make(chan struct{})

			go func() {
				defer close(done)
				next(event)
			}()

			select {
			case <-done:
				// Handler completed successfully
			case <-time.After(timeout):
				logger.Base().Warn("Event handler timeout", zap.String("type", string(event.Type)), zap.String("call_id", event.CallID), zap.Duration("timeout", timeout))
			}
		}
	}
}

// ValidationMiddleware validates events before processing
func ValidationMiddleware(next EventHandler) EventHandler {
	return func(event *TelephonyEvent) {
		if event == nil {
			logger.Base().Error("Received nil event")
			return
		}

		if event.Type == "" {
			logger.Base().Error("Event type is empty", zap.String("call_id", event.CallID))
			return
		}

		if event.CallID == "" {
			logger.Base().Error("Call ID is empty", zap.String("type", string(event.Type)))
			return
		}

		if err := validateEventData(event); err != nil {
			logger.Base().Error("Invalid event data", zap.String("type", string(event.Type)), zap.String("call_id", event.CallID), zap.Error(err))
			return
		}

		next(event)
	}
}

// validateEventData validates event-specific data
func validateEventData(event *TelephonyEvent) error {
	switch event.Type {
	case CallStatusChanged:
		if data, ok := event.GetStatusData(); ok {
			if data.Current == "" {
				return fmt.Errorf("current status is required for %s", event.Type)
			}
		} else {
			return fmt.Errorf("status data is required for %s", event.Type)
		}

	case TranscriptMessage:
		if data, ok := event.GetTranscriptData(); ok {
			if data.Sender == "" {
				return fmt.Errorf("sender is required for %s", event.Type)
			}
		} else {
			return fmt.Errorf("transcript data is required for %s", event.Type)
		}

	case TTSAudioSegment:
		if data, ok := event.GetTTSAudioData(); ok {
			if len(data.Audio) == 0 {
				return fmt.Errorf("audio payload is required for %s", event.Type)
			}
		} else {
			return fmt.Errorf("audio data is required for %s", event.Type)
		}
	}

	return nil
}

// CreateDefaultMiddlewareChain creates a default middleware chain with common middleware
func CreateDefaultMiddlewareChain() []EventMiddleware {
	return []EventMiddleware{
		RecoveryMiddleware,
		ValidationMiddleware,
		LoggingMiddleware,
	}
}
