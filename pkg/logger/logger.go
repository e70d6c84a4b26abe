package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const serviceName = "progress-mailer"

// Setup configures the default slog logger on stdout.
func Setup(env, level string) {
	slog.SetDefault(New(os.Stdout, env, level))
}

// New builds a logger for env: JSON output in production and staging,
// text output otherwise. level is one of debug, info, warn, error
// (defaults to info).
func New(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	switch strings.ToLower(env) {
	case "production", "staging":
		handler = slog.NewJSONHandler(w, opts).WithAttrs([]slog.Attr{
			slog.String("service", serviceName),
			slog.String("env", strings.ToLower(env)),
		})
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
