package call

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/audio"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/core/stream"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/core/transcript"
	"github.com/LumivoxAI/lumivox-telephony-service/internal/domain"
)

// CallSession bundles everything owned by one active call: the vendor stream,
// the transcript accumulator, the TTS playback queue and the microphone
// capture pipeline. The service tears the whole bundle down exactly once; the
// AtomicClosed flag guards the teardown path.
type CallSession struct {
	ID         string // call row primary key
	CallID     string
	TenantID   string
	UserID     string
	Direction  domain.CallDirection
	FromNumber string
	ToNumber   string
	Language   string
	Model      string
	CreatedAt  time.Time

	Stream      *stream.Client
	Accumulator *transcript.Accumulator
	Playback    *audio.Playback
	Capture     *audio.Capture

	AtomicClosed int32 // 0=active, 1=closed

	lastActivity  time.Time
	messageCount  int64
	customerTurns int64
	agentTurns    int64

	mutex sync.RWMutex
}

// SessionStats is the live view of one call session for diagnostics.
type SessionStats struct {
	CallID        string               `json:"call_id"`
	TenantID      string               `json:"tenant_id,omitempty"`
	Status        domain.CallStatus    `json:"status,omitempty"`
	Direction     domain.CallDirection `json:"direction"`
	Language      string               `json:"language"`
	Model         string               `json:"model"`
	StartedAt     time.Time            `json:"started_at"`
	LastActivity  time.Time            `json:"last_activity"`
	Messages      int64                `json:"messages"`
	CustomerTurns int64                `json:"customer_turns"`
	AgentTurns    int64                `json:"agent_turns"`
	Stream        stream.ClientStats   `json:"stream"`
	Playback      audio.PlaybackStats  `json:"playback"`
	Capture       audio.CaptureStats   `json:"capture"`
}

// UpdateLastActivity marks the session as recently active. Every inbound
// frame goes through here so the expiry sweeper only reaps silent calls.
func (s *CallSession) UpdateLastActivity() {
	if s == nil {
		return
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastActivity = time.Now()
}

// LastActivity returns when the session last saw an inbound frame.
func (s *CallSession) LastActivity() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActivity
}

// IsClosed returns whether the session has been torn down.
func (s *CallSession) IsClosed() bool {
	return atomic.LoadInt32(&s.AtomicClosed) == 1
}

// markClosed flips the closed flag. Returns true only for the caller that
// performed the flip, so cleanup runs once even under concurrent stops.
func (s *CallSession) markClosed() bool {
	return atomic.CompareAndSwapInt32(&s.AtomicClosed, 0, 1)
}

// recordTurn counts one flushed transcript message per speaker.
func (s *CallSession) recordTurn(sender domain.MessageSender) {
	atomic.AddInt64(&s.messageCount, 1)
	switch sender {
	case domain.MessageSenderCustomer:
		atomic.AddInt64(&s.customerTurns, 1)
	case domain.MessageSenderAgent:
		atomic.AddInt64(&s.agentTurns, 1)
	}
}

func (s *CallSession) turnCounts() (messages, customer, agent int64) {
	return atomic.LoadInt64(&s.messageCount),
		atomic.LoadInt64(&s.customerTurns),
		atomic.LoadInt64(&s.agentTurns)
}

// Stats snapshots the session counters. Status is filled in by the service
// from the state tracker.
func (s *CallSession) Stats() SessionStats {
	messages, customer, agent := s.turnCounts()
	return SessionStats{
		CallID:        s.CallID,
		TenantID:      s.TenantID,
		Direction:     s.Direction,
		Language:      s.Language,
		Model:         s.Model,
		StartedAt:     s.CreatedAt,
		LastActivity:  s.LastActivity(),
		Messages:      messages,
		CustomerTurns: customer,
		AgentTurns:    agent,
		Stream:        s.Stream.GetStats(),
		Playback:      s.Playback.GetStats(),
		Capture:       s.Capture.GetStats(),
	}
}
