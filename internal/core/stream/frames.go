package stream

// Frame type discriminators received from the telephony backend.
const (
	FrameTelephonyConnected = "telephony_connected"
	FrameCallStatusUpdate   = "call_status_update"
	FrameCustomerTranscript = "customer_transcript"
	FrameAgentTTSAudio      = "agent_tts_audio"
	FrameAgentTranscript    = "agent_transcript"
	FrameSpeechStart        = "speech_start"
	FrameUtteranceEnd       = "utterance_end"
	FrameTelephonyError     = "telephony_error"
	FramePong               = "pong"
)

// Frame type discriminators sent to the telephony backend.
const (
	FrameInit         = "init"
	FrameStop         = "stop"
	FrameAgentMessage = "agent_message"
	FrameAudio        = "audio"
	FramePing         = "ping"
)

// frameHead carries only the discriminator for two-phase decoding.
type frameHead struct {
	Type string `json:"type"`
}

// ConnectedFrame acknowledges a successful stream initialization.
type ConnectedFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	CallID    string `json:"call_id,omitempty"`
}

// StatusFrame reports a call lifecycle change from the backend.
type StatusFrame struct {
	Type   string `json:"type"`
	CallID string `json:"call_id,omitempty"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// TranscriptFrame carries one recognition result for either speaker.
type TranscriptFrame struct {
	Type         string  `json:"type"`
	CallID       string  `json:"call_id,omitempty"`
	Text         string  `json:"text"`
	IsFinal      bool    `json:"is_final"`
	Confidence   float64 `json:"confidence,omitempty"`
	AudioStartMs int64   `json:"audio_start_ms,omitempty"`
	AudioEndMs   int64   `json:"audio_end_ms,omitempty"`
}

// TTSAudioFrame carries one base64-encoded agent audio segment.
type TTSAudioFrame struct {
	Type       string `json:"type"`
	CallID     string `json:"call_id,omitempty"`
	Audio      string `json:"audio"`
	Sequence   int    `json:"sequence,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// BoundaryFrame marks a speech boundary (speech_start / utterance_end).
type BoundaryFrame struct {
	Type    string `json:"type"`
	CallID  string `json:"call_id,omitempty"`
	AudioMs int64  `json:"audio_ms,omitempty"`
}

// ErrorFrame is a protocol-level error reported by the backend.
type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// PongFrame answers a client ping.
type PongFrame struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// InitFrame names the call and requested language/model on open.
type InitFrame struct {
	Type     string `json:"type"`
	CallID   string `json:"call_id"`
	Language string `json:"language,omitempty"`
	Model    string `json:"model,omitempty"`
}

// StopFrame tells the backend the operator is ending the stream.
type StopFrame struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
}

// AgentMessageFrame injects an agent text message into the call.
type AgentMessageFrame struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Text   string `json:"text"`
}

// AudioFrame carries one base64-encoded captured audio segment upstream.
type AudioFrame struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// PingFrame keeps the stream alive.
type PingFrame struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp,omitempty"`
}
