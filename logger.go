package duplex

import (
	"log/slog"
	"os"
)

// Logger is the interface for structured logging.
// It is designed to be compatible with *slog.Logger from the standard library.
// Applications can provide their own implementation or use the default logger.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, args ...any)
	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, args ...any)
	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, args ...any)
	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, args ...any)
}

var (
	logLevel = new(slog.LevelVar)
	logger   = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})).
			With("component", "duplex")
)

// SetVerbose switches the default logger between info and debug level.
// Connections created with LoggerOption are not affected.
func SetVerbose(verbose bool) {
	if verbose {
		logLevel.Set(slog.LevelDebug)
		return
	}
	logLevel.Set(slog.LevelInfo)
}

// Verbose reports whether the default logger emits debug records.
func Verbose() bool {
	return logLevel.Level() <= slog.LevelDebug
}

// defaultLogger returns the package logger used when no LoggerOption is given.
func defaultLogger() Logger {
	return logger
}
