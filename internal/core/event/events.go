package event

import (
	"time"
)

// EventType represents the type of event
type EventType string

const (
	// Call lifecycle
	CallStarted       EventType = "call.started"
	CallStatusChanged EventType = "call.status_changed"
	CallEnded         EventType = "call.ended"

	// Vendor stream lifecycle
	StreamConnected    EventType = "stream.connected"
	StreamDisconnected EventType = "stream.disconnected"
	StreamReconnecting EventType = "stream.reconnecting"
	StreamError        EventType = "stream.error"

	// Transcript pipeline
	TranscriptMessage EventType = "transcript.message"
	SpeechStarted     EventType = "transcript.speech_start"
	UtteranceEnded    EventType = "transcript.utterance_end"

	// Agent audio
	TTSAudioSegment EventType = "audio.tts_segment"

	// Internal/system events
	HandlerPanic EventType = "handler.panic"
)

// TelephonyEvent is the envelope carried across the bus. CallID scopes the
// event to one call; Data holds the typed payload.
type TelephonyEvent struct {
	Type      EventType   `json:"type"`
	CallID    string      `json:"call_id"`
	TenantID  string      `json:"tenant_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     error       `json:"-"`
}

// StatusEventData carries a call state transition.
type StatusEventData struct {
	CallID   string `json:"call_id"`
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// TranscriptEventData carries one flushed utterance.
type TranscriptEventData struct {
	CallID       string  `json:"call_id"`
	Sender       string  `json:"sender"`
	Content      string  `json:"content"`
	Confidence   float64 `json:"confidence"`
	AudioStartMs int64   `json:"audio_start_ms"`
	AudioEndMs   int64   `json:"audio_end_ms"`
}

// TTSAudioEventData carries one decoded agent audio segment.
type TTSAudioEventData struct {
	CallID     string `json:"call_id"`
	Sequence   int    `json:"sequence"`
	Audio      []byte `json:"-"`
	DurationMs int64  `json:"duration_ms"`
}

// StreamEventData carries stream connectivity details.
type StreamEventData struct {
	CallID       string `json:"call_id"`
	Reason       string `json:"reason,omitempty"`
	CloseCode    int    `json:"close_code,omitempty"`
	Reconnecting bool   `json:"reconnecting"`
}

// NewTelephonyEvent creates an event scoped to a call.
func NewTelephonyEvent(eventType EventType, callID string) *TelephonyEvent {
	return &TelephonyEvent{
		Type:      eventType,
		CallID:    callID,
		Timestamp: time.Now(),
	}
}

// WithTenantID adds tenant ID to the event
func (e *TelephonyEvent) WithTenantID(tenantID string) *TelephonyEvent {
	e.TenantID = tenantID
	return e
}

// WithData adds data to the event
func (e *TelephonyEvent) WithData(data interface{}) *TelephonyEvent {
	e.Data = data
	return e
}

// WithError adds error to the event
func (e *TelephonyEvent) WithError(err error) *TelephonyEvent {
	e.Error = err
	return e
}

// IsError returns true if the event contains an error
func (e *TelephonyEvent) IsError() bool {
	return e.Error != nil
}

// GetStatusData returns status event data if available
func (e *TelephonyEvent) GetStatusData() (*StatusEventData, bool) {
	if data, ok := e.Data.(*StatusEventData); ok {
		return data, true
	}
	return nil, false
}

// GetTranscriptData returns transcript event data if available
func (e *TelephonyEvent) GetTranscriptData() (*TranscriptEventData, bool) {
	if data, ok := e.Data.(*TranscriptEventData); ok {
		return data, true
	}
	return nil, false
}

// GetTTSAudioData returns TTS audio event data if available
func (e *TelephonyEvent) GetTTSAudioData() (*TTSAudioEventData, bool) {
	if data, ok := e.Data.(*TTSAudioEventData); ok {
		return data, true
	}
	return nil, false
}

// GetStreamData returns stream event data if available
func (e *TelephonyEvent) GetStreamData() (*StreamEventData, bool) {
	if data, ok := e.Data.(*StreamEventData); ok {
		return data, true
	}
	return nil, false
}
