package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ParseLevel maps a configured level name onto a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New creates a logger writing JSON when format is "json", console output otherwise
func New(w io.Writer, level, format string) zerolog.Logger {
	if strings.EqualFold(format, "json") {
		return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(ParseLevel(level)).With().Timestamp().Logger()
}

// Setup configures the global logger for a command binary and returns it
func Setup(level, format string) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(level))
	log.Logger = New(os.Stdout, level, format)
	return log.Logger
}
