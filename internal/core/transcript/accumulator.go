// Package transcript converts the stream of per-fragment speech recognition
// results into coherent per-speaker messages. Fragments from the same speaker
// accumulate into one buffer; the buffer is flushed on a speaker change, after
// a silence timeout, or when the call ends.
package transcript

import (
	"strings"
	"sync"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/internal/config"
	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"go.uber.org/zap"
)

// FlushReason indicates why an accumulated utterance was emitted.
type FlushReason string

const (
	FlushSpeakerChange FlushReason = "speaker_change"
	FlushSilence       FlushReason = "silence"
	FlushClose         FlushReason = "close"
)

// Fragment is one final recognition result from the stream.
type Fragment struct {
	Sender       string
	Text         string
	Confidence   float64
	AudioStartMs int64
	AudioEndMs   int64
}

// Message is one flushed utterance, covering a maximal same-speaker run of
// fragments.
type Message struct {
	CallID       string
	Sender       string
	Content      string
	Confidence   float64
	AudioStartMs int64
	AudioEndMs   int64
	StartedAt    time.Time
	EndedAt      time.Time
	Fragments    int
	Reason       FlushReason
}

// FlushFunc receives flushed messages. It runs with the accumulator lock held
// and must not call back into the accumulator.
type FlushFunc func(msg Message)

// Accumulator holds the single open buffer for one call. At most one buffer
// is open at a time; the prior speaker's buffer is flushed before a new
// speaker's utterance begins.
type Accumulator struct {
	callID  string
	policy  JoinPolicy
	timeout time.Duration
	onFlush FlushFunc

	mu            sync.Mutex
	buffer        string
	sender        string
	startedAt     time.Time
	lastAt        time.Time
	confidenceSum float64
	audioStartMs  int64
	audioEndMs    int64
	fragments     int
	timer         *time.Timer
	closed        bool
}

// NewAccumulator creates an accumulator for one call.
func NewAccumulator(callID string, cfg *config.TranscriptConfig, onFlush FlushFunc) *Accumulator {
	policy := DefaultJoinPolicy()
	timeout := config.DefaultSilenceTimeout
	if cfg != nil {
		policy = JoinPolicy{
			TerminalRunes: cfg.TerminalRunes,
			Separator:     cfg.Separator,
			InsertPeriod:  cfg.InsertPeriod,
		}
		timeout = cfg.SilenceTimeout
	}

	return &Accumulator{
		callID:  callID,
		policy:  policy,
		timeout: timeout,
		onFlush: onFlush,
	}
}

// Add appends a final fragment to the buffer. A fragment from a different
// speaker flushes the current buffer first. Whitespace-only fragments are
// ignored and do not re-arm the silence timer.
func (a *Accumulator) Add(frag Fragment) {
	if strings.TrimSpace(frag.Text) == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}

	if a.fragments > 0 && frag.Sender != a.sender {
		a.flushLocked(FlushSpeakerChange)
	}

	now := time.Now()
	if a.fragments == 0 {
		a.sender = frag.Sender
		a.startedAt = now
		a.audioStartMs = frag.AudioStartMs
	}
	a.buffer = a.policy.Join(a.buffer, frag.Text)
	a.fragments++
	a.confidenceSum += frag.Confidence
	if frag.AudioEndMs > a.audioEndMs {
		a.audioEndMs = frag.AudioEndMs
	}
	a.lastAt = now

	a.armTimerLocked()
}

// Pending returns the open buffer contents and whether a buffer is open.
func (a *Accumulator) Pending() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buffer, a.fragments > 0
}

// Close flushes any open buffer and stops the silence timer. Further Add
// calls are ignored. Close is idempotent.
func (a *Accumulator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	a.closed = true

	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if a.fragments > 0 {
		a.flushLocked(FlushClose)
	}
}

// handleSilenceTimeout fires when no fragment has arrived for the configured
// timeout. The closed flag and the last-fragment time are re-checked under
// the lock: a timer callback that lost the race to Stop must not flush.
func (a *Accumulator) handleSilenceTimeout() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.fragments == 0 {
		return
	}

	if time.Since(a.lastAt) < a.timeout {
		// A fragment landed while this callback was pending.
		a.armTimerLocked()
		return
	}

	a.flushLocked(FlushSilence)
}

func (a *Accumulator) armTimerLocked() {
	if a.timeout <= 0 {
		return
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.timeout, a.handleSilenceTimeout)
}

func (a *Accumulator) flushLocked(reason FlushReason) {
	msg := Message{
		CallID:       a.callID,
		Sender:       a.sender,
		Content:      a.buffer,
		AudioStartMs: a.audioStartMs,
		AudioEndMs:   a.audioEndMs,
		StartedAt:    a.startedAt,
		EndedAt:      a.lastAt,
		Fragments:    a.fragments,
		Reason:       reason,
	}
	if a.fragments > 0 {
		msg.Confidence = a.confidenceSum / float64(a.fragments)
	}

	a.buffer = ""
	a.sender = ""
	a.startedAt = time.Time{}
	a.lastAt = time.Time{}
	a.confidenceSum = 0
	a.audioStartMs = 0
	a.audioEndMs = 0
	a.fragments = 0
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}

	logger.Base().Debug("Transcript buffer flushed",
		zap.String("call_id", msg.CallID),
		zap.String("sender", msg.Sender),
		zap.String("reason", string(reason)),
		zap.Int("fragments", msg.Fragments))

	if a.onFlush != nil {
		a.onFlush(msg)
	}
}
