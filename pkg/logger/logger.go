package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu          sync.Mutex
	globalBase  *zap.Logger
	globalSugar *zap.SugaredLogger
)

// Init builds the global zap logger. env is "production"/"prod" for JSON
// output or anything else for the console development encoder. LOG_LEVEL
// (debug/info/warn/error) overrides the config default. Stdlib log output is
// redirected so stray log.Printf calls land in the same stream.
func Init(env string) (*zap.Logger, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalBase != nil {
		return globalBase, nil
	}

	var cfg zap.Config
	if strings.EqualFold(env, "prod") || strings.EqualFold(env, "production") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		var parsed zapcore.Level
		if err := parsed.UnmarshalText([]byte(strings.ToLower(lvl))); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(parsed)
		}
	}

	base, err := cfg.Build(zap.Fields(zap.String("service", "lumivox-telephony")))
	if err != nil {
		return nil, err
	}

	zap.ReplaceGlobals(base)
	_ = zap.RedirectStdLog(base)

	globalBase = base
	globalSugar = base.Sugar()
	return globalBase, nil
}

// Base returns the global logger, initializing a development logger on first
// use when Init was never called.
func Base() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()

	if globalBase == nil {
		base, err := zap.NewDevelopment()
		if err != nil {
			base = zap.NewNop()
		}
		globalBase = base
		globalSugar = base.Sugar()
	}
	return globalBase
}

// L returns the global sugared logger.
func L() *zap.SugaredLogger {
	Base()
	return globalSugar
}

// Sync flushes any buffered log entries. Safe to call on shutdown.
func Sync() {
	mu.Lock()
	defer mu.Unlock()

	if globalSugar != nil {
		_ = globalSugar.Sync()
	}
	if globalBase != nil {
		_ = globalBase.Sync()
	}
}

// GORMWriter adapts zap to gorm.io/gorm/logger.Writer, which only speaks
// Printf. GORM routes slow-query and error lines through here.
type GORMWriter struct{}

// Printf implements the gorm logger.Writer interface.
func (w GORMWriter) Printf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	msg = strings.TrimSuffix(msg, "\n")
	msg = strings.TrimSuffix(msg, "\r\n")
	Base().Warn(msg)
}

// NewGORMWriter creates a new GORM writer adapter.
func NewGORMWriter() GORMWriter {
	return GORMWriter{}
}
