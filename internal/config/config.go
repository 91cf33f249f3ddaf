// Package config holds component configuration loaded from environment
// variables. The .env file is loaded in main.go for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// Audio constants
	DefaultSampleRate    = 48000
	DefaultChannelsMono  = 1
	DefaultFrameDuration = 20 * time.Millisecond

	// Defaults applied when a call carries no hints
	DefaultLanguage = "en"
	DefaultModel    = "telephony-rt-1"

	// Header carrying the tenant scope on platform API calls
	TenantHeader = "X-Tenant-ID"

	// Message confidence below this is hidden from transcript reads
	DefaultConfidenceThreshold = 0.4
)

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsMillis reads an integer number of milliseconds
func getEnvAsMillis(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

// splitString splits a string by delimiter and trims whitespace
func splitString(s, delimiter string) []string {
	parts := strings.Split(s, delimiter)
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
