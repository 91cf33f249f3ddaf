package audio

import (
	"sync/atomic"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"go.uber.org/zap"
)

// DefaultPlaybackCapacity bounds the per-call TTS queue (~5s of 20ms frames).
const DefaultPlaybackCapacity = 256

// Segment is one decoded agent TTS audio segment.
type Segment struct {
	Sequence   int
	Payload    []byte
	DurationMs int64
}

// PlaybackStats is a snapshot of the playback counters.
type PlaybackStats struct {
	Pending  int           `json:"pending"`
	Enqueued int64         `json:"enqueued"`
	Dropped  int64         `json:"dropped"`
	Spoken   time.Duration `json:"spoken"`
}

// Playback is the per-call queue of agent TTS segments. The stream client
// enqueues segments as they arrive; the console relay drains them. Segments
// keep their arrival order. When the queue is full the oldest segment is
// dropped so playback stays close to realtime.
type Playback struct {
	callID string
	queue  chan Segment
	done   chan struct{}

	closed   int32
	enqueued int64
	dropped  int64
	spokenMs int64
}

// NewPlayback creates the TTS queue for one call. capacity <= 0 uses the
// default.
func NewPlayback(callID string, capacity int) *Playback {
	if capacity <= 0 {
		capacity = DefaultPlaybackCapacity
	}
	return &Playback{
		callID: callID,
		queue:  make(chan Segment, capacity),
		done:   make(chan struct{}),
	}
}

// Enqueue adds one TTS segment. Silence frames are skipped; they carry no
// speech and would distort the spoken-duration accounting.
func (p *Playback) Enqueue(sequence int, payload []byte, durationMs int64) {
	if atomic.LoadInt32(&p.closed) == 1 {
		return
	}
	if len(payload) == 0 || IsSilenceFrame(payload) {
		return
	}
	if durationMs <= 0 {
		durationMs = int64(FrameDuration / time.Millisecond)
	}

	seg := Segment{Sequence: sequence, Payload: payload, DurationMs: durationMs}
	for {
		select {
		case p.queue <- seg:
			atomic.AddInt64(&p.enqueued, 1)
			atomic.AddInt64(&p.spokenMs, durationMs)
			return
		default:
		}

		// Queue full: give up the oldest segment and retry once.
		select {
		case <-p.queue:
			count := atomic.AddInt64(&p.dropped, 1)
			if count%100 == 1 {
				logger.Base().Warn("Playback queue full, dropping oldest TTS segment",
					zap.String("call_id", p.callID),
					zap.Int64("dropped", count))
			}
		default:
		}
	}
}

// Drain exposes the segment channel for the console relay. Consumers must
// also select on Done: the channel is never closed.
func (p *Playback) Drain() <-chan Segment {
	return p.queue
}

// Done is closed when playback shuts down.
func (p *Playback) Done() <-chan struct{} {
	return p.done
}

// SpokenDuration returns how much agent speech has been queued for the call.
func (p *Playback) SpokenDuration() time.Duration {
	return time.Duration(atomic.LoadInt64(&p.spokenMs)) * time.Millisecond
}

// GetStats returns a snapshot of the playback counters.
func (p *Playback) GetStats() PlaybackStats {
	return PlaybackStats{
		Pending:  len(p.queue),
		Enqueued: atomic.LoadInt64(&p.enqueued),
		Dropped:  atomic.LoadInt64(&p.dropped),
		Spoken:   p.SpokenDuration(),
	}
}

// Close stops intake and wakes every drainer. Safe to call more than once.
func (p *Playback) Close() {
	if !atomic.CompareAndSwapInt32(&p.closed, 0, 1) {
		return
	}
	close(p.done)
	logger.Base().Debug("Playback queue closed",
		zap.String("call_id", p.callID),
		zap.Int64("enqueued", atomic.LoadInt64(&p.enqueued)),
		zap.Int64("dropped", atomic.LoadInt64(&p.dropped)))
}
