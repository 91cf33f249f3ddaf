// Package audio holds the thin voice I/O wrappers for a call: the capture
// pipeline pacing customer microphone frames toward the telephony stream,
// and the playback queue draining agent TTS segments toward the console.
package audio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LumivoxAI/lumivox-telephony-service/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"layeh.com/gopus"
)

const (
	// SampleRate is the Opus clock rate used on every leg of the call.
	SampleRate = 48000
	// ChannelsMono: telephony audio is mono end to end.
	ChannelsMono = 1
	// FrameDuration is the nominal Opus frame length.
	FrameDuration = 20 * time.Millisecond

	// DefaultFramesPerSecond matches the 20ms frame cadence.
	DefaultFramesPerSecond = 50

	// Decode buffer covers 40ms so variable-size frames fit.
	maxDecodeSamples = (SampleRate / 1000) * 40

	// Frames shorter than this are DTX/comfort noise and carry no speech.
	minOpusFrameBytes = 3

	captureBurst = 5
)

// IsSilenceFrame reports whether an Opus payload is a DTX/CN or empty frame.
func IsSilenceFrame(payload []byte) bool {
	if len(payload) == 1 && (payload[0] == 0xF8 || payload[0] == 0x48) {
		return true
	}
	if len(payload) <= minOpusFrameBytes {
		for _, b := range payload {
			if b != 0 {
				return false
			}
		}
		return true
	}
	return false
}

// StreamSink receives paced microphone frames; implemented by the stream client.
type StreamSink interface {
	SendAudio(payload []byte) error
}

// CaptureStats is a snapshot of the capture counters.
type CaptureStats struct {
	Forwarded      int64         `json:"forwarded"`
	Skipped        int64         `json:"skipped"`
	DecodeFailures int64         `json:"decode_failures"`
	Captured       time.Duration `json:"captured"`
}

// Capture decodes and paces customer microphone frames on their way to the
// telephony stream. Frames are decoded locally to validate them and account
// for spoken duration; the original Opus payload is what goes upstream.
type Capture struct {
	callID  string
	sink    StreamSink
	limiter *rate.Limiter

	// gopus decoders are not safe for concurrent use.
	decoderMutex sync.Mutex
	decoder      *gopus.Decoder

	closed         int32
	forwarded      int64
	skipped        int64
	decodeFailures int64
	pcmSamples     int64
}

// NewCapture creates the capture pipeline for one call. framesPerSecond <= 0
// falls back to the 20ms cadence.
func NewCapture(callID string, sink StreamSink, framesPerSecond int) (*Capture, error) {
	if sink == nil {
		return nil, fmt.Errorf("capture sink is required")
	}
	if framesPerSecond <= 0 {
		framesPerSecond = DefaultFramesPerSecond
	}

	decoder, err := gopus.NewDecoder(SampleRate, ChannelsMono)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &Capture{
		callID:  callID,
		sink:    sink,
		limiter: rate.NewLimiter(rate.Limit(framesPerSecond), captureBurst),
		decoder: decoder,
	}, nil
}

// Forward validates, paces and sends one microphone frame upstream. Silence
// frames and undecodable frames are dropped without error; pacing honors ctx.
func (c *Capture) Forward(ctx context.Context, payload []byte) error {
	if atomic.LoadInt32(&c.closed) == 1 {
		return fmt.Errorf("capture closed for call %s", c.callID)
	}
	if len(payload) < minOpusFrameBytes || IsSilenceFrame(payload) {
		atomic.AddInt64(&c.skipped, 1)
		return nil
	}

	pcm, err := c.decodeFrame(payload)
	if err != nil {
		failures := atomic.AddInt64(&c.decodeFailures, 1)
		if failures%100 == 1 {
			logger.Base().Warn("Dropping undecodable microphone frame",
				zap.String("call_id", c.callID),
				zap.Int("payload_bytes", len(payload)),
				zap.Int64("failures", failures),
				zap.Error(err))
		}
		return nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	// The pipeline may have been closed while we waited.
	if atomic.LoadInt32(&c.closed) == 1 {
		return fmt.Errorf("capture closed for call %s", c.callID)
	}

	if err := c.sink.SendAudio(payload); err != nil {
		return fmt.Errorf("failed to forward microphone frame: %w", err)
	}

	count := atomic.AddInt64(&c.forwarded, 1)
	atomic.AddInt64(&c.pcmSamples, int64(len(pcm)))
	if count%500 == 0 {
		logger.Base().Debug("Microphone frames forwarded",
			zap.String("call_id", c.callID),
			zap.Int64("frames", count))
	}
	return nil
}

func (c *Capture) decodeFrame(payload []byte) ([]int16, error) {
	c.decoderMutex.Lock()
	defer c.decoderMutex.Unlock()
	return c.decoder.Decode(payload, maxDecodeSamples, false)
}

// CapturedDuration returns how much customer speech has been forwarded.
func (c *Capture) CapturedDuration() time.Duration {
	samples := atomic.LoadInt64(&c.pcmSamples)
	return time.Duration(samples) * time.Second / SampleRate
}

// GetStats returns a snapshot of the capture counters.
func (c *Capture) GetStats() CaptureStats {
	return CaptureStats{
		Forwarded:      atomic.LoadInt64(&c.forwarded),
		Skipped:        atomic.LoadInt64(&c.skipped),
		DecodeFailures: atomic.LoadInt64(&c.decodeFailures),
		Captured:       c.CapturedDuration(),
	}
}

// Close stops intake. Safe to call more than once.
func (c *Capture) Close() {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		logger.Base().Debug("Capture pipeline closed",
			zap.String("call_id", c.callID),
			zap.Int64("forwarded", atomic.LoadInt64(&c.forwarded)))
	}
}
