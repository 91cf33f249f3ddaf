package config

import (
	"fmt"
	"os"
	"time"
)

// ServiceConfig is the top-level service configuration.
type ServiceConfig struct {
	Port       string
	InstanceID string

	// SecretKey signs console API bearer tokens and the agent JWT used on
	// the stream handshake. Empty disables API auth (development mode).
	SecretKey string

	// Console platform base URL for tenant/contact lookups
	ConsoleAPIURL string

	// ICE configuration for the console's browser voice client
	STUNServers      []string
	TwilioAccountSID string
	TwilioAuthToken  string

	// Call recording archive
	ArchiveEnabled     bool
	ArchiveStorageType string
	ArchiveStoragePath string

	// Session sweeper knobs
	CleanupInterval   time.Duration
	InactivityTimeout time.Duration

	MaxSessions int

	// RateLimitRPS throttles API requests per client. Zero disables.
	RateLimitRPS int
}

// LoadServiceConfig loads the service configuration from environment
// variables.
func LoadServiceConfig() *ServiceConfig {
	cfg := &ServiceConfig{
		Port:       getEnv("TELEPHONY_SERVICE_PORT", "8082"),
		InstanceID: resolveInstanceID(),

		SecretKey:     os.Getenv("SECRET_KEY"),
		ConsoleAPIURL: getEnv("CONSOLE_API_URL", "http://localhost:8080"),

		STUNServers: []string{
			"stun:stun.l.google.com:19302",
			"stun:stun1.l.google.com:19302",
		},
		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),

		ArchiveEnabled:     getEnvAsBool("CALL_ARCHIVE_ENABLED", false),
		ArchiveStorageType: getEnv("CALL_ARCHIVE_STORAGE_TYPE", "gcs"),
		ArchiveStoragePath: getEnv("CALL_ARCHIVE_STORAGE_PATH", ""),

		CleanupInterval:   getEnvAsMillis("SESSION_CLEANUP_INTERVAL_MS", 2*time.Minute),
		InactivityTimeout: getEnvAsMillis("SESSION_INACTIVITY_TIMEOUT_MS", 5*time.Minute),

		MaxSessions:  getEnvAsInt("MAX_CALL_SESSIONS", 50),
		RateLimitRPS: getEnvAsInt("API_RATE_LIMIT_RPS", 20),
	}

	if stunServers := os.Getenv("STUN_SERVERS"); stunServers != "" {
		cfg.STUNServers = splitString(stunServers, ",")
	}

	return cfg
}

// resolveInstanceID picks a stable identity for this instance: pod name on
// Kubernetes via the hostname, a timestamp fallback elsewhere.
func resolveInstanceID() string {
	if id := os.Getenv("INSTANCE_ID"); id != "" {
		return id
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return fmt.Sprintf("telephony-service-%d", time.Now().UnixNano())
}
