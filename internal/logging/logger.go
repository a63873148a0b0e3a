package logging

import (
	"log/slog"
	"os"
)

// Setup installs the global slog logger: JSON on stdout, fanned out to any
// extra handlers (for example a DBHandler).
func Setup(level slog.Level, extra ...slog.Handler) *slog.Logger {
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	if len(extra) > 0 {
		handler = NewMultiHandler(append([]slog.Handler{handler}, extra...)...)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps APP_ENV to a level: debug for development, info otherwise.
func ParseLevel(env string) slog.Level {
	if env == "development" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
