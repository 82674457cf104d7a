package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger. verbose forces debug level.
func Init(level string, verbose bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(ParseLevel(level, verbose))

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// ParseLevel maps debug|info|warn|error to a zerolog level; unknown means info.
func ParseLevel(level string, verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	switch strings.ToLower(level) {
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

// WithComponent creates a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// Stage logs a pipeline stage banner.
func Stage(n int, name string) {
	log.Info().Int("stage", n).Msgf("━━━ STAGE %d: %s ━━━", n, name)
}

// SanitizeKey masks a credential for logging.
func SanitizeKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
