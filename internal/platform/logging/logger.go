package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pscheid92/startupai/internal/platform/correlation"
	"github.com/pscheid92/startupai/internal/platform/version"
)

// Logger is the application-wide structured logger instance.
var Logger *slog.Logger

// InitLogger installs the process-wide logger writing to stdout.
// level: "debug", "info", "warn", "error" (defaults to "info")
// format: "json" or "text" (defaults to "text")
func InitLogger(level, format string) {
	Logger = New(os.Stdout, level, format)
	slog.SetDefault(Logger)
}

// New builds a correlation-aware logger tagged with the service name.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(correlation.NewHandler(handler)).With("service", version.Service)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
