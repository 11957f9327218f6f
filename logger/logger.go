// Package logger provides structured logging built on log/slog, with
// sensitive-data masking applied to every record before it is written.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/corekit/redact"
)

// Config controls logger construction. The zero value yields a JSON
// logger at info level writing to stdout with default masking.
type Config struct {
	// Level is the minimum level to emit: debug, info, warn, or error.
	// Invalid or empty values fall back to info.
	Level string

	// Format selects the handler: "json" (default) or "text".
	Format string

	// Output is the destination writer. Defaults to os.Stdout.
	Output io.Writer

	// Masker overrides the masker applied to records. Defaults to the
	// built-in catalog.
	Masker *redact.Masker
}

// Setup builds a structured logger from the configuration, wraps it in a
// redacting handler, and installs it as the slog default so package-level
// slog functions route through it.
func Setup(cfg Config) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo

		tmpLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmpLogger.Warn("invalid log level configured, using default level",
			"configured_level", cfg.Level,
			"default_level", "info")
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		handler = slog.NewJSONHandler(output, opts)
	}

	masker := cfg.Masker
	if masker == nil {
		masker = redact.NewMasker()
	}

	log := slog.New(NewRedactingHandler(handler, masker))
	slog.SetDefault(log)

	return log, nil
}
