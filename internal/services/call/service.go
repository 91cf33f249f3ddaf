// Package call owns the active call sessions: one CallSession per live call,
// wiring the vendor stream, transcript accumulation, lifecycle tracking and
// the audio pipelines together, and tearing everything down exactly once.
package call

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/google/uuid"
	"go.uber.org/zap"

	consoleapi "github.com/LumivoxAI/lumivox-telephony-service/internal/adapters/http"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/audio"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/cache"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/config"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/core/callstate"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/core/event"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/core/session"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/core/stream"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/core/task"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/core/transcript"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/domain"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/repository"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/storage"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/pubsub"
)

const (
	// Worker pool shared by all background persistence tasks.
	persistPoolCap = 32

	// Budget for one background DB write or metrics publish.
	persistTimeout = 10 * time.Second

	// Budget for Redis registry operations on the start/stop paths.
	registryTimeout = 5 * time.Second
)

// ErrSessionLimit is returned by StartCall when this instance is at its
// concurrent session cap.
var ErrSessionLimit = errors.New("session limit reached")

// StartCallRequest carries everything needed to bring up a call session.
type StartCallRequest struct {
	CallID    string               `json:"call_id"`
	TenantID  string               `json:"tenant_id"`
	UserID    string               `json:"user_id,omitempty"`
	Direction domain.CallDirection `json:"direction,omitempty"`
	From      string               `json:"from,omitempty"`
	To        string               `json:"to,omitempty"`
	Language  string               `json:"language,omitempty"`
	Model     string               `json:"model,omitempty"`

	// Token authenticates the vendor stream. Minted from SECRET_KEY when
	// empty.
	Token string `json:"-"`
}

// CallService manages the active call sessions on this instance.
type CallService struct {
	streamCfg     *config.StreamConfig
	transcriptCfg *config.TranscriptConfig
	repoManager   repository.RepositoryManager
	sessions      map[string]*CallSession
	maxSessions   int // 0 means no cap
	mutex         sync.RWMutex

	// Event bus for per-call fan-out to console relays
	eventBus event.EventBus

	// Lifecycle tracking for all active calls
	tracker *callstate.Tracker

	// PubSub service for per-call metrics publishing
	pubsubService *pubsub.PubSubService

	// Session registry and task bus for multi-instance coordination
	sessionManager *session.Manager
	taskBus        task.Bus

	// Per-user voice settings, loaded from the database
	settingsCache *cache.SettingsCache

	// Worker pool for async persistence
	persistPool gopool.Pool
}

// NewCallService creates the call service. The session manager and task bus
// are optional; without them the instance runs standalone.
func NewCallService(streamCfg *config.StreamConfig, transcriptCfg *config.TranscriptConfig, repoManager repository.RepositoryManager, sessionManager *session.Manager, taskBus task.Bus) *CallService {
	eventBus := event.NewEventBus()

	service := &CallService{
		streamCfg:      streamCfg,
		transcriptCfg:  transcriptCfg,
		repoManager:    repoManager,
		sessions:       make(map[string]*CallSession),
		eventBus:       eventBus,
		tracker:        callstate.NewTracker(eventBus),
		sessionManager: sessionManager,
		taskBus:        taskBus,
		settingsCache:  cache.NewSettingsCache(),
	}

	service.persistPool = gopool.NewPool("call-persist", persistPoolCap, gopool.NewConfig())
	service.persistPool.SetPanicHandler(func(_ context.Context, r interface{}) {
		logger.Base().Error("Persistence task panic", zap.Any("panic", r))
	})

	// Mirror every applied non-terminal transition onto the call row.
	// Terminal transitions are written by the teardown path instead, which
	// also stamps ended_at.
	service.tracker.Subscribe(func(change callstate.StatusChange) {
		if change.Current.IsTerminal() || repoManager == nil {
			return
		}
		service.persistPool.Go(func() {
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			if err := repoManager.Calls().UpdateStatus(ctx, change.CallID, change.Current); err != nil {
				logger.Base().Error("Failed to persist call status",
					zap.String("call_id", change.CallID),
					zap.String("status", string(change.Current)),
					zap.Error(err))
			}
		})
	})

	// Initialize PubSub service for call metrics publishing
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	topicName := os.Getenv("PUBSUB_TOPIC_NAME")
	pubID := os.Getenv("PUBSUB_PUB_ID")

	if projectID != "" && topicName != "" && pubID != "" {
		pubsubConfig := &pubsub.PubSubConfig{
			ProjectID: projectID,
			TopicName: topicName,
			PubID:     pubID,
		}
		pubsubService, err := pubsub.NewPubSubService(context.Background(), pubsubConfig)
		if err != nil {
			logger.Base().Error("Failed to initialize PubSub service", zap.Error(err))
		} else {
			service.pubsubService = pubsubService
			logger.Base().Info("PubSub service initialized for call metrics")
		}
	} else {
		logger.Base().Info("PubSub not configured (requires PUBSUB_PROJECT_ID, PUBSUB_TOPIC_NAME, PUBSUB_PUB_ID)")
	}

	return service
}

// StartTaskProcessor subscribes to the cross-instance task bus. Called
// explicitly after construction so every handler is configured before the
// first task arrives.
func (s *CallService) StartTaskProcessor(ctx context.Context) error {
	if s.taskBus != nil {
		logger.Base().Info("Starting distributed task processor subscription")
		return s.taskBus.Subscribe(ctx, s.handleCallTask)
	}
	return nil
}

// StartCall brings up the session for one call: transcript accumulator,
// playback queue, capture pipeline and the vendor stream, registered in the
// session registry and tracked from the ringing state.
func (s *CallService) StartCall(ctx context.Context, req StartCallRequest) (*CallSession, error) {
	if req.CallID == "" {
		return nil, fmt.Errorf("call ID is required")
	}

	s.mutex.RLock()
	_, exists := s.sessions[req.CallID]
	s.mutex.RUnlock()
	if exists {
		return nil, fmt.Errorf("call %s is already active", req.CallID)
	}

	s.applyDefaults(&req)

	token := req.Token
	if token == "" {
		var err error
		token, err = consoleapi.GenerateAgentJWT(req.TenantID, "telephony")
		if err != nil {
			return nil, fmt.Errorf("failed to mint stream token: %w", err)
		}
	}

	now := time.Now()
	sess := &CallSession{
		ID:           uuid.New().String(),
		CallID:       req.CallID,
		TenantID:     req.TenantID,
		UserID:       req.UserID,
		Direction:    req.Direction,
		FromNumber:   req.From,
		ToNumber:     req.To,
		Language:     req.Language,
		Model:        req.Model,
		CreatedAt:    now,
		lastActivity: now,
	}

	sess.Accumulator = transcript.NewAccumulator(req.CallID, s.transcriptCfg, func(msg transcript.Message) {
		s.handleTranscriptFlush(sess, msg)
	})
	sess.Playback = audio.NewPlayback(req.CallID, audio.DefaultPlaybackCapacity)
	sess.Stream = stream.NewClient(s.streamCfg, token, req.CallID, req.Language, req.Model, s.buildHandlers(sess))

	capture, err := audio.NewCapture(req.CallID, sess.Stream, s.streamCfg.AudioFramesPerSecond)
	if err != nil {
		sess.Accumulator.Close()
		sess.Playback.Close()
		return nil, fmt.Errorf("failed to create capture pipeline: %w", err)
	}
	sess.Capture = capture

	s.mutex.Lock()
	if _, exists := s.sessions[req.CallID]; exists {
		s.mutex.Unlock()
		sess.Accumulator.Close()
		sess.Playback.Close()
		sess.Capture.Close()
		return nil, fmt.Errorf("call %s is already active", req.CallID)
	}
	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		active := len(s.sessions)
		s.mutex.Unlock()
		sess.Accumulator.Close()
		sess.Playback.Close()
		sess.Capture.Close()
		return nil, fmt.Errorf("cannot start call %s: %w (%d active)", req.CallID, ErrSessionLimit, active)
	}
	s.sessions[req.CallID] = sess
	s.mutex.Unlock()

	s.tracker.Register(req.CallID, req.TenantID, domain.CallStatusRinging)

	// The call row is written before the stream opens so transcript
	// messages never reference a call the database has not seen.
	if s.repoManager != nil {
		dbCtx, cancel := context.WithTimeout(context.Background(), registryTimeout)
		createErr := s.repoManager.Calls().Create(dbCtx, &domain.Call{
			ID:         sess.ID,
			CallID:     req.CallID,
			TenantID:   req.TenantID,
			Status:     domain.CallStatusRinging,
			Direction:  req.Direction,
			FromNumber: req.From,
			ToNumber:   req.To,
			Language:   req.Language,
			Model:      req.Model,
			StartedAt:  now,
		})
		cancel()
		if createErr != nil {
			logger.Base().Error("Failed to persist call row", zap.String("call_id", req.CallID), zap.Error(createErr))
		}
	}

	// Register session for multi-instance routing if manager is available
	if s.sessionManager != nil {
		go func() {
			regCtx, cancel := context.WithTimeout(context.Background(), registryTimeout)
			defer cancel()
			if err := s.sessionManager.Register(regCtx, session.SessionInfo{
				CallID:    sess.CallID,
				TenantID:  sess.TenantID,
				Language:  sess.Language,
				Model:     sess.Model,
				StartTime: sess.CreatedAt,
			}); err != nil {
				logger.Base().Warn("Failed to register call session", zap.String("call_id", sess.CallID), zap.Error(err))
			}
		}()
	}

	if !sess.Stream.Start(ctx) {
		s.StopCall(req.CallID, domain.CallStatusFailed)
		return nil, fmt.Errorf("failed to open telephony stream for call %s", req.CallID)
	}

	s.eventBus.Publish(event.CallStarted, req.CallID, nil)
	logger.Base().Info("Call session started",
		zap.String("call_id", req.CallID),
		zap.String("tenant_id", req.TenantID),
		zap.String("language", req.Language),
		zap.String("model", req.Model))
	return sess, nil
}

// applyDefaults fills language and model from the user's cached voice
// settings, then from the service defaults.
func (s *CallService) applyDefaults(req *StartCallRequest) {
	if req.Direction == "" {
		req.Direction = domain.CallDirectionInbound
	}
	if req.Language == "" && req.UserID != "" && s.settingsCache != nil {
		if settings, err := s.settingsCache.Get(req.UserID); err == nil && settings.VoiceEnabled && settings.Language != "" {
			req.Language = settings.Language
		}
	}
	if req.Language == "" {
		req.Language = config.DefaultLanguage
	}
	if req.Model == "" {
		req.Model = config.DefaultModel
	}
}

// buildHandlers wires stream frames into the session's pipelines. Handlers
// run on the stream's read loop, so per-call processing keeps arrival order.
func (s *CallService) buildHandlers(sess *CallSession) stream.Handlers {
	return stream.Handlers{
		OnConnected: func(frame *stream.ConnectedFrame) {
			sess.UpdateLastActivity()
			s.eventBus.Publish(event.StreamConnected, sess.CallID, &event.StreamEventData{CallID: sess.CallID})
		},

		OnStatus: func(frame *stream.StatusFrame) {
			sess.UpdateLastActivity()
			s.handleStatusFrame(sess, frame)
		},

		OnTranscript: func(sender domain.MessageSender, frame *stream.TranscriptFrame) {
			sess.UpdateLastActivity()
			if !frame.IsFinal {
				return
			}
			sess.Accumulator.Add(transcript.Fragment{
				Sender:       string(sender),
				Text:         frame.Text,
				Confidence:   frame.Confidence,
				AudioStartMs: frame.AudioStartMs,
				AudioEndMs:   frame.AudioEndMs,
			})
		},

		OnTTSAudio: func(payload []byte, frame *stream.TTSAudioFrame) {
			sess.UpdateLastActivity()
			sess.Playback.Enqueue(frame.Sequence, payload, frame.DurationMs)
			if archive := storage.GetCallArchive(); archive != nil {
				archive.Append(sess.CallID, payload, frame.DurationMs)
			}
			s.eventBus.Publish(event.TTSAudioSegment, sess.CallID, &event.TTSAudioEventData{
				CallID:     sess.CallID,
				Sequence:   frame.Sequence,
				Audio:      payload,
				DurationMs: frame.DurationMs,
			})
		},

		OnSpeechStart: func(frame *stream.BoundaryFrame) {
			sess.UpdateLastActivity()
			s.eventBus.Publish(event.SpeechStarted, sess.CallID, nil)
		},

		OnUtteranceEnd: func(frame *stream.BoundaryFrame) {
			sess.UpdateLastActivity()
			s.eventBus.Publish(event.UtteranceEnded, sess.CallID, nil)
		},

		OnStreamError: func(frame *stream.ErrorFrame) {
			s.eventBus.Publish(event.StreamError, sess.CallID, &event.StreamEventData{
				CallID: sess.CallID,
				Reason: frame.Message,
			})
		},

		OnDisconnected: func(closeCode int, reconnecting bool) {
			evType := event.StreamDisconnected
			if reconnecting {
				evType = event.StreamReconnecting
			}
			s.eventBus.Publish(evType, sess.CallID, &event.StreamEventData{
				CallID:       sess.CallID,
				CloseCode:    closeCode,
				Reconnecting: reconnecting,
			})
		},

		OnReconnected: func(attempt int) {
			sess.UpdateLastActivity()
			s.eventBus.Publish(event.StreamConnected, sess.CallID, &event.StreamEventData{CallID: sess.CallID})
		},
	}
}

// handleStatusFrame applies a backend status update. A terminal status tears
// the session down; the tracker already rejected out-of-order updates.
func (s *CallService) handleStatusFrame(sess *CallSession, frame *stream.StatusFrame) {
	next := domain.CallStatus(frame.Status)
	if !s.tracker.Apply(sess.CallID, next) {
		return
	}
	if next.IsTerminal() {
		go s.StopCall(sess.CallID, next)
	}
}

// handleTranscriptFlush turns one flushed utterance into a CallMessage. It
// runs under the accumulator lock, so the DB write goes to the worker pool.
func (s *CallService) handleTranscriptFlush(sess *CallSession, msg transcript.Message) {
	sess.recordTurn(domain.MessageSender(msg.Sender))

	s.eventBus.Publish(event.TranscriptMessage, sess.CallID, &event.TranscriptEventData{
		CallID:       msg.CallID,
		Sender:       msg.Sender,
		Content:      msg.Content,
		Confidence:   msg.Confidence,
		AudioStartMs: msg.AudioStartMs,
		AudioEndMs:   msg.AudioEndMs,
	})

	if s.repoManager == nil {
		return
	}

	createdAt := msg.EndedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	record := &domain.CallMessage{
		ID:           uuid.New().String(),
		CallID:       msg.CallID,
		Sender:       domain.MessageSender(msg.Sender),
		Kind:         domain.MessageKindTranscript,
		Content:      msg.Content,
		Confidence:   msg.Confidence,
		AudioStartMs: msg.AudioStartMs,
		AudioEndMs:   msg.AudioEndMs,
		CreatedAt:    createdAt,
	}

	s.persistPool.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.repoManager.CallMessages().Create(ctx, record); err != nil {
			logger.Base().Error("Failed to store call message",
				zap.String("call_id", msg.CallID),
				zap.String("sender", msg.Sender),
				zap.Error(err))
		}
	})
}

// StopCall tears down one call session. Safe to call more than once: the
// session is removed from the map first, so duplicate stops find nothing.
func (s *CallService) StopCall(callID string, finalStatus domain.CallStatus) {
	s.mutex.Lock()
	sess, exists := s.sessions[callID]
	if !exists {
		s.mutex.Unlock()
		logger.Base().Debug("Stop for unknown or already stopped call", zap.String("call_id", callID))
		return
	}
	// Remove from map immediately to prevent duplicate cleanup
	delete(s.sessions, callID)
	s.mutex.Unlock()

	if !sess.markClosed() {
		return
	}

	callDuration := time.Since(sess.CreatedAt)
	logger.Base().Info("🧹 Stopping call session", zap.String("call_id", callID), zap.Duration("duration", callDuration))

	// Flush whatever the last speaker still had buffered.
	sess.Accumulator.Close()

	// At most one stop frame goes out; pending reconnect timers die here.
	sess.Stream.Stop()

	sess.Capture.Close()
	sess.Playback.Close()

	status := finalStatus
	if !status.IsTerminal() {
		status = domain.CallStatusCompleted
	}
	if state, ok := s.tracker.Get(callID); ok {
		if state.Status.IsTerminal() {
			status = state.Status
		} else {
			s.tracker.Apply(callID, status)
		}
	}

	// Unregister session from the registry if manager is available
	if s.sessionManager != nil {
		go func() {
			regCtx, cancel := context.WithTimeout(context.Background(), registryTimeout)
			defer cancel()
			if err := s.sessionManager.Unregister(regCtx, callID); err != nil {
				logger.Base().Warn("Failed to unregister call session", zap.String("call_id", callID), zap.Error(err))
			}
		}()
	}

	if archive := storage.GetCallArchive(); archive != nil {
		archive.Finalize(callID)
	}

	s.finalizeCall(sess, status)
	s.tracker.Remove(callID)
}

// finalizeCall persists the terminal state and publishes the per-call
// metrics event on the worker pool.
func (s *CallService) finalizeCall(sess *CallSession, status domain.CallStatus) {
	streamStats := sess.Stream.GetStats()
	spokenSecs := int64(sess.Playback.SpokenDuration().Seconds())
	capturedSecs := int64(sess.Capture.CapturedDuration().Seconds())
	messages, customerTurns, agentTurns := sess.turnCounts()

	s.persistPool.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		startedAt := sess.CreatedAt
		endedAt := time.Now()
		if s.repoManager != nil {
			call, err := s.repoManager.Calls().End(ctx, sess.CallID, status)
			if err != nil {
				logger.Base().Error("Failed to persist call end", zap.String("call_id", sess.CallID), zap.Error(err))
			} else if call != nil {
				startedAt = call.StartedAt
				endedAt = call.EndedAt
			}
		}

		if s.pubsubService == nil {
			return
		}

		duration := int64(endedAt.Sub(startedAt).Seconds())
		if duration < 0 {
			duration = 0
		}
		end := endedAt
		metricsEvent := pubsub.CallMetricsEvent{
			CallID:        sess.CallID,
			TenantID:      sess.TenantID,
			Direction:     string(sess.Direction),
			Language:      sess.Language,
			Model:         sess.Model,
			Status:        string(status),
			StartAt:       startedAt,
			EndAt:         &end,
			Duration:      duration,
			MessageCount:  int(messages),
			CustomerTurns: int(customerTurns),
			AgentTurns:    int(agentTurns),
			SpokenSeconds: spokenSecs,
			CapturedSecs:  capturedSecs,
			Reconnects:    int64(streamStats.Reconnects),
		}
		if err := s.pubsubService.PublishCallMetricsEvent(ctx, metricsEvent); err != nil {
			logger.Base().Error("Failed to publish call metrics", zap.String("call_id", sess.CallID), zap.Error(err))
		}
	})
}

// SendAgentMessage injects an operator text message into a locally owned call.
func (s *CallService) SendAgentMessage(callID, text string) error {
	sess := s.GetSession(callID)
	if sess == nil {
		return fmt.Errorf("no active session for call %s", callID)
	}
	if err := sess.Stream.SendAgentMessage(text); err != nil {
		return err
	}
	sess.UpdateLastActivity()
	return nil
}

// RelayAgentMessage delivers an operator message to whichever instance owns
// the call: locally when the session is here, via the task bus otherwise.
func (s *CallService) RelayAgentMessage(ctx context.Context, callID, text string) error {
	if s.GetSession(callID) != nil {
		return s.SendAgentMessage(callID, text)
	}

	if s.taskBus == nil {
		return fmt.Errorf("no active session for call %s", callID)
	}
	owner, err := s.lookupOwner(ctx, callID)
	if err != nil {
		return err
	}
	if owner == nil {
		return fmt.Errorf("no active session for call %s", callID)
	}

	payload, _ := json.Marshal(task.AgentSayPayload{Text: text})
	return s.taskBus.Publish(ctx, task.CallTask{
		Type:     task.TaskTypeAgentSay,
		CallID:   callID,
		TenantID: owner.TenantID,
		Payload:  payload,
	})
}

// RequestStop stops the call wherever it lives: locally when the session is
// here, via the task bus when another instance registered it.
func (s *CallService) RequestStop(ctx context.Context, callID string) error {
	if s.GetSession(callID) != nil {
		s.StopCall(callID, domain.CallStatusCompleted)
		return nil
	}

	if s.taskBus == nil {
		return fmt.Errorf("no active session for call %s", callID)
	}
	owner, err := s.lookupOwner(ctx, callID)
	if err != nil {
		return err
	}
	if owner == nil {
		return fmt.Errorf("no active session for call %s", callID)
	}

	logger.Base().Info("Broadcasting stop for remote call",
		zap.String("call_id", callID),
		zap.String("owner_instance", owner.InstanceID))
	return s.taskBus.Publish(ctx, task.CallTask{
		Type:     task.TaskTypeStopCall,
		CallID:   callID,
		TenantID: owner.TenantID,
	})
}

func (s *CallService) lookupOwner(ctx context.Context, callID string) (*session.SessionInfo, error) {
	if s.sessionManager == nil {
		return nil, nil
	}
	return s.sessionManager.Lookup(ctx, callID)
}

// ForwardCallerAudio paces one console microphone frame toward the vendor
// stream.
func (s *CallService) ForwardCallerAudio(ctx context.Context, callID string, payload []byte) error {
	sess := s.GetSession(callID)
	if sess == nil {
		return fmt.Errorf("no active session for call %s", callID)
	}
	sess.UpdateLastActivity()
	return sess.Capture.Forward(ctx, payload)
}

// GetSession returns the local session for a call, nil when not owned here.
func (s *CallService) GetSession(callID string) *CallSession {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.sessions[callID]
}

// GetAllSessions returns a copy of the active session map.
func (s *CallService) GetAllSessions() map[string]*CallSession {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	sessions := make(map[string]*CallSession, len(s.sessions))
	for id, sess := range s.sessions {
		sessions[id] = sess
	}
	return sessions
}

func (s *CallService) GetSessionCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.sessions)
}

// SetMaxSessions caps the concurrent sessions this instance accepts. Zero
// removes the cap.
func (s *CallService) SetMaxSessions(n int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.maxSessions = n
}

// GetSessionStats returns the live diagnostics view for one call.
func (s *CallService) GetSessionStats(callID string) (SessionStats, error) {
	sess := s.GetSession(callID)
	if sess == nil {
		return SessionStats{}, fmt.Errorf("no active session for call %s", callID)
	}

	stats := sess.Stats()
	if state, ok := s.tracker.Get(callID); ok {
		stats.Status = state.Status
	}
	return stats, nil
}

// GetEventBus returns the event bus console relays subscribe on.
func (s *CallService) GetEventBus() event.EventBus {
	return s.eventBus
}

// GetTracker returns the call state tracker.
func (s *CallService) GetTracker() *callstate.Tracker {
	return s.tracker
}

// CleanupExpiredSessions stops sessions whose stream has been silent longer
// than the inactivity timeout and refreshes the registry TTL of the rest.
func (s *CallService) CleanupExpiredSessions(inactivityTimeout time.Duration) int {
	// Collect expired call IDs while holding the lock
	s.mutex.RLock()
	now := time.Now()
	var expiredIDs []string
	var activeIDs []string

	for id, sess := range s.sessions {
		inactiveFor := now.Sub(sess.LastActivity())
		if inactiveFor > inactivityTimeout {
			expiredIDs = append(expiredIDs, id)
			logger.Base().Info("🗑 Call inactive for too long", zap.String("call_id", id), zap.Duration("inactive_for", inactiveFor))
		} else {
			activeIDs = append(activeIDs, id)
		}
	}
	s.mutex.RUnlock()

	// Stop sessions after releasing the lock to avoid deadlock
	for _, id := range expiredIDs {
		s.StopCall(id, domain.CallStatusFailed)
	}

	// Calls that outlive the registry TTL stay routable only if touched.
	if s.sessionManager != nil && len(activeIDs) > 0 {
		go func(ids []string) {
			regCtx, cancel := context.WithTimeout(context.Background(), registryTimeout)
			defer cancel()
			for _, id := range ids {
				if err := s.sessionManager.Touch(regCtx, id); err != nil {
					logger.Base().Debug("Failed to refresh session TTL", zap.String("call_id", id), zap.Error(err))
				}
			}
		}(activeIDs)
	}

	if len(expiredIDs) > 0 {
		logger.Base().Info("Cleaned up expired call sessions", zap.Int("cleaned_count", len(expiredIDs)))
	}
	return len(expiredIDs)
}

// StartCleanupRoutine starts a background routine to reap expired sessions
func (s *CallService) StartCleanupRoutine(ctx context.Context, checkInterval, inactivityTimeout time.Duration) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	logger.Base().Info("Started cleanup routine", zap.Duration("check_interval", checkInterval), zap.Duration("inactivity_timeout", inactivityTimeout))
	for {
		select {
		case <-ctx.Done():
			logger.Base().Info("🛑 Cleanup routine stopped")
			return
		case <-ticker.C:
			s.CleanupExpiredSessions(inactivityTimeout)
		}
	}
}

// handleCallTask processes one cross-instance task.
func (s *CallService) handleCallTask(t task.CallTask) {
	logger.Base().Info("Processing call task", zap.String("type", string(t.Type)), zap.String("call_id", t.CallID))

	switch t.Type {
	case task.TaskTypeStopCall:
		if s.GetSession(t.CallID) == nil {
			// Not on this instance, ignore
			return
		}
		s.StopCall(t.CallID, domain.CallStatusCompleted)

	case task.TaskTypeAgentSay:
		if s.GetSession(t.CallID) == nil {
			return
		}
		var payload task.AgentSayPayload
		if err := json.Unmarshal(t.Payload, &payload); err != nil {
			logger.Base().Error("Failed to unmarshal agent message payload", zap.String("call_id", t.CallID), zap.Error(err))
			return
		}
		if err := s.SendAgentMessage(t.CallID, payload.Text); err != nil {
			logger.Base().Error("Failed to deliver relayed agent message", zap.String("call_id", t.CallID), zap.Error(err))
		}

	case task.TaskTypeReloadCache:
		s.ReloadVoiceSettings()
	}
}

// ReloadVoiceSettings replaces the settings cache with the database contents.
// Called at boot and on reload_cache tasks.
func (s *CallService) ReloadVoiceSettings() {
	if s.repoManager == nil || s.settingsCache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	all, err := s.repoManager.VoiceSettings().List(ctx)
	if err != nil {
		logger.Base().Error("Failed to load voice settings from database", zap.Error(err))
		return
	}
	if err := s.settingsCache.UpdateSettingsAsync(all); err != nil {
		logger.Base().Warn("Failed to queue voice settings update", zap.Error(err))
		return
	}
	logger.Base().Info("Voice settings cache reload queued", zap.Int("count", len(all)))
}

// Shutdown stops every active session and releases the shared services.
func (s *CallService) Shutdown() {
	s.mutex.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mutex.RUnlock()

	for _, id := range ids {
		s.StopCall(id, domain.CallStatusCompleted)
	}

	if s.pubsubService != nil {
		if err := s.pubsubService.Close(); err != nil {
			logger.Base().Warn("Failed to close PubSub service", zap.Error(err))
		}
	}
	s.eventBus.Close()

	logger.Base().Info("Call service shut down", zap.Int("closed_sessions", len(ids)))
}
