package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	defaultLogger     zerolog.Logger
	defaultLoggerOnce sync.Once
	defaultLoggerMu   sync.RWMutex
)

func initDefaultLogger() {
	var out io.Writer = os.Stderr
	if isatty() {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
	}
	defaultLogger = zerolog.New(out).
		Level(parseLevel(os.Getenv("AUDIOPOLICY_LOG_LEVEL"))).
		With().
		Timestamp().
		Logger()
}

func isatty() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}

// GetDefaultLogger returns the process-wide logger. Components derive their
// own loggers from it with With().Str("component", ...).Logger().
func GetDefaultLogger() zerolog.Logger {
	defaultLoggerOnce.Do(initDefaultLogger)
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

// GetSubsystemLogger returns a logger tagged with a subsystem name.
func GetSubsystemLogger(subsystem string) zerolog.Logger {
	return GetDefaultLogger().With().Str("subsystem", subsystem).Logger()
}

// SetLevel changes the default logger level at runtime.
func SetLevel(level string) {
	defaultLoggerOnce.Do(initDefaultLogger)
	defaultLoggerMu.Lock()
	defaultLogger = defaultLogger.Level(parseLevel(level))
	defaultLoggerMu.Unlock()
}
