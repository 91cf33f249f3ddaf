package config

import (
	"time"
)

const (
	// A buffer with no new fragments for this long is flushed even without
	// a speaker change.
	DefaultSilenceTimeout = 2 * time.Second

	// Runes treated as sentence-terminal when joining fragments.
	DefaultTerminalRunes = ".!?。！？"
)

// TranscriptConfig holds configuration for transcript accumulation. The
// joining heuristic is policy, not contract: deployments can tune the
// terminal-rune set and separator.
type TranscriptConfig struct {
	SilenceTimeout time.Duration
	TerminalRunes  string
	Separator      string
	InsertPeriod   bool
}

// LoadTranscriptConfig loads transcript configuration from environment variables.
func LoadTranscriptConfig() *TranscriptConfig {
	return &TranscriptConfig{
		SilenceTimeout: getEnvAsMillis("TRANSCRIPT_SILENCE_TIMEOUT_MS", DefaultSilenceTimeout),
		TerminalRunes:  getEnv("TRANSCRIPT_TERMINAL_RUNES", DefaultTerminalRunes),
		Separator:      getEnv("TRANSCRIPT_JOIN_SEPARATOR", " "),
		InsertPeriod:   getEnvAsBool("TRANSCRIPT_INSERT_PERIOD", true),
	}
}
