package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger builds the process logger: human-readable text on stderr
// fanned out with JSON appended to logFile. The returned cleanup closes
// the file. When the file cannot be opened the logger degrades to
// stderr-only rather than failing startup.
func SetupLogger(logFile string, level slog.Level) (*slog.Logger, func() error) {
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		slog.Error("failed to open log file, using stderr only", "error", err, "file", logFile)
		stderrOnly := slog.New(newTextHandler(os.Stderr, level))
		return stderrOnly, func() error { return nil }
	}

	return newFanoutLogger(os.Stderr, file, level), file.Close
}

// SetupLoggerWithWriters builds the same fanout over injected writers, for
// tests.
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	return newFanoutLogger(stderr, file, level)
}

func newFanoutLogger(stderr, file io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slogmulti.Fanout(
		newTextHandler(stderr, level),
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}),
	))
}

func newTextHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}
