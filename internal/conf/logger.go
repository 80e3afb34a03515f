package conf

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevelFromEnv reads LOG_LEVEL, with DEBUG=true forcing debug
func LogLevelFromEnv() string {
	if os.Getenv("DEBUG") == "true" {
		return "debug"
	}
	if level := strings.ToLower(os.Getenv("LOG_LEVEL")); level != "" {
		return level
	}
	return "info"
}

// SetupLogger installs the default slog logger at the level from the environment.
// Call it before LoadFromEnv so warnings about bad values honor LOG_LEVEL.
func SetupLogger(writer io.Writer) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{
		Level: parseLevel(LogLevelFromEnv()),
	}))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
