package config

import (
	"time"
)

const (
	// Handshake budget for the vendor stream; connect failures past this
	// resolve the start flag to false instead of erroring.
	DefaultConnectTimeout = 5 * time.Second

	// Fixed reconnect delays. Abnormal close codes wait longer than
	// operator/normal closes.
	DefaultReconnectDelayNormal   = 2 * time.Second
	DefaultReconnectDelayAbnormal = 5 * time.Second

	DefaultPingInterval    = 15 * time.Second
	DefaultWriteTimeout    = 5 * time.Second
	DefaultMaxMessageBytes = 1 << 20
)

// StreamConfig holds configuration for the vendor telephony stream.
type StreamConfig struct {
	// Base URL of the STT/TTS backend, e.g. wss://stream.example.com
	WSBaseURL string
	// Path of the streaming endpoint
	StreamPath string

	ConnectTimeout         time.Duration
	ReconnectDelayNormal   time.Duration
	ReconnectDelayAbnormal time.Duration
	PingInterval           time.Duration
	WriteTimeout           time.Duration
	MaxMessageBytes        int64

	// Pacing for outbound audio frames, expressed as frames per second.
	// Zero disables pacing.
	AudioFramesPerSecond int
}

// LoadStreamConfig loads stream configuration from environment variables.
func LoadStreamConfig() *StreamConfig {
	return &StreamConfig{
		WSBaseURL:  getEnv("TELEPHONY_WS_URL", "ws://localhost:8090"),
		StreamPath: getEnv("TELEPHONY_WS_PATH", "/api/ws/telephony/stream"),

		ConnectTimeout:         getEnvAsMillis("STREAM_CONNECT_TIMEOUT_MS", DefaultConnectTimeout),
		ReconnectDelayNormal:   getEnvAsMillis("STREAM_RECONNECT_NORMAL_MS", DefaultReconnectDelayNormal),
		ReconnectDelayAbnormal: getEnvAsMillis("STREAM_RECONNECT_ABNORMAL_MS", DefaultReconnectDelayAbnormal),
		PingInterval:           getEnvAsMillis("STREAM_PING_INTERVAL_MS", DefaultPingInterval),
		WriteTimeout:           getEnvAsMillis("STREAM_WRITE_TIMEOUT_MS", DefaultWriteTimeout),
		MaxMessageBytes:        int64(getEnvAsInt("STREAM_MAX_MESSAGE_BYTES", int(DefaultMaxMessageBytes))),

		AudioFramesPerSecond: getEnvAsInt("STREAM_AUDIO_FRAMES_PER_SECOND", int(time.Second/DefaultFrameDuration)),
	}
}
