package wire

import (
	"log/slog"

	"github.com/rs/zerolog"
)

// Logger is the interface for structured logging.
// It is designed to be compatible with *slog.Logger from the standard library.
// Applications can provide their own implementation, wrap a zerolog logger
// with ZerologLogger, or use the default slog logger.
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

// defaultLogger returns the default slog logger from the standard library.
func defaultLogger() Logger {
	return slog.Default()
}

type zerologLogger struct {
	l zerolog.Logger
}

// ZerologLogger adapts a zerolog.Logger to Logger. Key-value pairs become
// event fields.
func ZerologLogger(l zerolog.Logger) Logger {
	return zerologLogger{l: l}
}

func (z zerologLogger) Debug(msg string, args ...any) { z.l.Debug().Fields(args).Msg(msg) }

func (z zerologLogger) Info(msg string, args ...any) { z.l.Info().Fields(args).Msg(msg) }

func (z zerologLogger) Warn(msg string, args ...any) { z.l.Warn().Fields(args).Msg(msg) }

func (z zerologLogger) Error(msg string, args ...any) { z.l.Error().Fields(args).Msg(msg) }
