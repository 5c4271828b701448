package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
)

func setupTestLogger(level string) (*StandardLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewStandardLoggerWithWriter(level, &buf), &buf
}

func TestNewLogger(t *testing.T) {
	dev := NewLogger("debug", "development")
	assert.Equal(t, logrus.DebugLevel, dev.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, dev.Formatter)

	prod := NewLogger("warn", "production")
	assert.Equal(t, logrus.WarnLevel, prod.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, prod.Formatter)
}

func TestParseLogrusLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"WARN", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"info", logrus.InfoLevel},
		{"unknown", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLogrusLevel(tt.input))
		})
	}
}

func TestGetSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, getSlogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, getSlogLevel("warning"))
	assert.Equal(t, slog.LevelError, getSlogLevel("error"))
	assert.Equal(t, slog.LevelInfo, getSlogLevel("invalid"))
}

func TestStandardLogger_ScopedLoggers(t *testing.T) {
	logger, buf := setupTestLogger("info")

	logger.WithComponent("warmup").Info("component message")
	logger.WithOperation("verify").Info("operation message")
	logger.WithForecastKey("forecast:go:rust:h14").Info("key message")
	logger.WithError(errors.New("redis down")).Error("error message")

	out := buf.String()
	assert.Contains(t, out, `"component":"warmup"`)
	assert.Contains(t, out, `"operation":"verify"`)
	assert.Contains(t, out, `"forecast_key":"forecast:go:rust:h14"`)
	assert.Contains(t, out, `"error":"redis down"`)
}

func TestStandardLogger_Events(t *testing.T) {
	logger, buf := setupTestLogger("debug")

	logger.LogStartup("trendcast", "1.0.0", 8080)
	logger.LogShutdown("trendcast", "signal")
	logger.LogCacheOperation("get", "forecast:a:b:h7", true, 3)
	logger.LogDatabaseOperation("insert", "verified_forecasts", 5, 1)
	logger.LogWarmup("forecast:a:b:h7", "ready", false, 120)

	out := buf.String()
	assert.Contains(t, out, `"event":"startup"`)
	assert.Contains(t, out, `"event":"shutdown"`)
	assert.Contains(t, out, `"event":"cache"`)
	assert.Contains(t, out, `"table":"verified_forecasts"`)
	assert.Contains(t, out, `"event":"warmup"`)
	assert.Contains(t, out, `"status":"ready"`)
}

func TestStandardLogger_LevelFiltering(t *testing.T) {
	logger, buf := setupTestLogger("info")
	logger.LogCacheOperation("get", "k", false, 1)
	assert.Empty(t, buf.String())
}

func TestNewOTLPLogger_Disabled(t *testing.T) {
	logger, err := NewOTLPLogger(OTLPConfig{Enabled: false, ServiceName: "trendcast"})
	require.NoError(t, err)
	assert.NotNil(t, logger.Logger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, logger.Shutdown(ctx))
}

func TestNewStandardOTLPLogger_Disabled(t *testing.T) {
	logger, otlp := NewStandardOTLPLogger(OTLPConfig{Enabled: false, ServiceName: "trendcast", LogLevel: "info"})
	assert.NotNil(t, logger.Logger())
	require.NotNil(t, otlp)
	assert.NoError(t, otlp.Shutdown(context.Background()))
}

type recordingOTLPLogger struct {
	otellog.Logger
	records []otellog.Record
}

func (m *recordingOTLPLogger) Enabled(ctx context.Context, params otellog.EnabledParameters) bool {
	return true
}

func (m *recordingOTLPLogger) Emit(ctx context.Context, record otellog.Record) {
	m.records = append(m.records, record)
}

func recordAttrs(r otellog.Record) map[string]string {
	out := map[string]string{}
	r.WalkAttributes(func(kv otellog.KeyValue) bool {
		out[kv.Key] = kv.Value.AsString()
		return true
	})
	return out
}

func TestOTLPHandler_Handle(t *testing.T) {
	mock := &recordingOTLPLogger{}
	logger := slog.New(NewOTLPHandler(mock, slog.LevelInfo))

	logger.With("component", "warmup").WithGroup("cache").Info("stored", "key", "forecast:a:b:h7")
	logger.Debug("dropped")

	require.Len(t, mock.records, 1)
	r := mock.records[0]
	assert.Equal(t, "stored", r.Body().AsString())
	assert.Equal(t, otellog.SeverityInfo, r.Severity())

	attrs := recordAttrs(r)
	assert.Equal(t, "warmup", attrs["component"])
	assert.Equal(t, "forecast:a:b:h7", attrs["cache.key"])
}

func TestOTLPHandler_WithAttrsDoesNotLeak(t *testing.T) {
	mock := &recordingOTLPLogger{}
	base := NewOTLPHandler(mock, slog.LevelDebug)
	_ = base.WithAttrs([]slog.Attr{slog.String("component", "a")})

	slog.New(base).Info("plain")
	require.Len(t, mock.records, 1)
	assert.NotContains(t, recordAttrs(mock.records[0]), "component")
}

func TestConvertSlogLevelToSeverity(t *testing.T) {
	assert.Equal(t, otellog.SeverityDebug, convertSlogLevelToSeverity(slog.LevelDebug))
	assert.Equal(t, otellog.SeverityInfo, convertSlogLevelToSeverity(slog.LevelInfo))
	assert.Equal(t, otellog.SeverityWarn, convertSlogLevelToSeverity(slog.LevelWarn))
	assert.Equal(t, otellog.SeverityError, convertSlogLevelToSeverity(slog.LevelError))
	assert.Equal(t, otellog.SeverityInfo, convertSlogLevelToSeverity(slog.Level(10)))
}
