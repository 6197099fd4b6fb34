package observability

import (
	"log/slog"
	"os"
)

// Logger is the process-wide structured logger. The package helpers
// initialize a development logger on first use so startup code can log
// before InitLogger runs.
var Logger *slog.Logger

// InitLogger sets up the logger: JSON in production for log aggregation,
// text everywhere else.
func InitLogger(production bool) {
	InitLoggerWithLevel(production, slog.LevelInfo)
}

// InitLoggerWithLevel sets up the logger at an explicit level.
func InitLoggerWithLevel(production bool, level slog.Level) {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if production {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

func base() *slog.Logger {
	if Logger == nil {
		InitLogger(false)
	}
	return Logger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) { base().Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { base().Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { base().Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { base().Error(msg, args...) }

// Fatal logs at error level and exits. Reserved for unrecoverable startup
// failures.
func Fatal(msg string, args ...any) {
	base().Error(msg, args...)
	os.Exit(1)
}

// ForCycle returns a logger that stamps every record with the trading cycle
// ID, so one cycle's records can be pulled out of interleaved logs.
func ForCycle(cycleID string) *slog.Logger {
	return base().With("cycle_id", cycleID)
}

// ForTicker returns a logger that stamps every record with the ticker.
func ForTicker(ticker string) *slog.Logger {
	return base().With("ticker", ticker)
}
