// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Format selects the log encoding.
type Format string

const (
	// FormatAuto uses console output on a terminal and JSON otherwise.
	FormatAuto Format = "auto"

	// FormatJSON always writes JSON lines.
	FormatJSON Format = "json"

	// FormatConsole always writes human-readable output.
	FormatConsole Format = "console"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Format selects JSON or console output (default: auto).
	Format Format

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Format: FormatAuto,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var output = out
	if usePretty(cfg.Format, out) {
		output = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ValidateLevel reports whether level names a known log level.
func ValidateLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("unknown log level %q", level)
	}
}

// ValidateFormat reports whether format names a known output format.
func ValidateFormat(format string) error {
	switch Format(strings.ToLower(format)) {
	case "", FormatAuto, FormatJSON, FormatConsole:
		return nil
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func usePretty(format Format, w io.Writer) bool {
	switch Format(strings.ToLower(string(format))) {
	case FormatConsole:
		return true
	case FormatJSON:
		return false
	default:
		return IsTerminal(w)
	}
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache hits, joined in-flight lookups
//   - Admission waits and acquired slots
//   - Individual lookup results
//
// Info: Normal operation events
//   - Enrichment start, batch progress, summary
//   - Server startup/shutdown
//
// Warn: Conditions that don't fail a request
//   - 429 throttling and retries
//   - Fallback records after failed lookups
//   - Non-2xx TMDB responses
//   - Rejected inbound requests
//
// Error: Error conditions requiring attention
//   - Startup and configuration failures
//   - Unexpected handler errors
//
// Context Fields:
//   - title: input title of a lookup
//   - credential: SHA-256 fingerprint of the TMDB key, never the key itself
//   - status: HTTP status code
//   - error_class: client, server, rate_limit, network, decode
//   - attempt: throttle retry attempt
//   - duration: request or run duration
