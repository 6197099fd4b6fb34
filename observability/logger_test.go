package observability

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestInitLogger_Development(t *testing.T) {
	InitLogger(false)

	if Logger == nil {
		t.Error("Logger should not be nil after initialization")
	}
}

func TestInitLogger_Production(t *testing.T) {
	InitLogger(true)

	if Logger == nil {
		t.Error("Logger should not be nil after initialization")
	}
}

func TestInitLoggerWithLevel(t *testing.T) {
	InitLoggerWithLevel(false, slog.LevelDebug)

	if Logger == nil {
		t.Error("Logger should not be nil after initialization")
	}
}

func TestLoggingFunctions(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	Logger = slog.New(handler)

	t.Run("Info", func(t *testing.T) {
		buf.Reset()
		Info("test info message", "key", "value")
		if !strings.Contains(buf.String(), "test info message") {
			t.Error("Info should log the message")
		}
		if !strings.Contains(buf.String(), "key=value") {
			t.Error("Info should log the key-value pair")
		}
	})

	t.Run("Warn", func(t *testing.T) {
		buf.Reset()
		Warn("test warn message")
		if !strings.Contains(buf.String(), "test warn message") {
			t.Error("Warn should log the message")
		}
	})

	t.Run("Error", func(t *testing.T) {
		buf.Reset()
		Error("test error message")
		if !strings.Contains(buf.String(), "test error message") {
			t.Error("Error should log the message")
		}
	})

	t.Run("Debug", func(t *testing.T) {
		buf.Reset()
		Debug("test debug message")
		if !strings.Contains(buf.String(), "test debug message") {
			t.Error("Debug should log the message")
		}
	})
}

func TestScopedLoggers(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	Logger = slog.New(handler)

	t.Run("ForTicker", func(t *testing.T) {
		buf.Reset()
		ForTicker("AAPL").Info("msg")
		if !strings.Contains(buf.String(), "ticker=AAPL") {
			t.Error("ForTicker should attach the ticker field")
		}
	})

	t.Run("ForCycle", func(t *testing.T) {
		buf.Reset()
		ForCycle("abc-123").Info("msg")
		if !strings.Contains(buf.String(), "cycle_id=abc-123") {
			t.Error("ForCycle should attach the cycle_id field")
		}
	})
}

func TestLazyInitialization(t *testing.T) {
	Logger = nil
	Info("triggers lazy init")

	if Logger == nil {
		t.Error("logging with a nil Logger should initialize it")
	}
}
