package core

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides structured logging capabilities
// This abstraction allows swapping logging implementations
type Logger interface {
	// Error logs an error message
	Error(args ...interface{})

	// Info logs an informational message
	Info(args ...interface{})

	// Debug logs a debug message
	Debug(args ...interface{})

	// WithFields returns a new logger with structured fields
	// This enables structured logging with key-value pairs
	WithFields(fields map[string]interface{}) Logger

	// WithContext returns a new logger with context values
	// Extracts request ID and other context values automatically
	WithContext(ctx context.Context) Logger
}

// LoggerConfig configures logger behavior
type LoggerConfig struct {
	// JSONOutput enables JSON structured output
	JSONOutput bool
	// Level sets the minimum log level (DEBUG, INFO, ERROR)
	Level string
}

// zapLogger implements Logger on top of a zap SugaredLogger
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &zapLogger{sugar: zap.NewNop().Sugar()}
}

// NewLogger creates a new logger with configuration.
// Errors go to stderr, everything else to stdout.
func NewLogger(config LoggerConfig) Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder

	var encoder zapcore.Encoder
	if config.JSONOutput {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	minLevel := parseLevel(config.Level)
	lowPriority := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= minLevel && l < zapcore.ErrorLevel
	})
	highPriority := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= minLevel && l >= zapcore.ErrorLevel
	})

	tee := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), lowPriority),
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), highPriority),
	)
	return &zapLogger{sugar: zap.New(tee, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()}
}

// NewLoggerFromZap wraps an existing zap logger
func NewLoggerFromZap(l *zap.Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return &zapLogger{sugar: l.Sugar()}
}

// parseLevel maps DEBUG/INFO/ERROR to zap levels, defaulting to DEBUG
func parseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "INFO":
		return zapcore.InfoLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.DebugLevel
	}
}

// Error logs an error message
func (l *zapLogger) Error(args ...interface{}) {
	l.sugar.Error(args...)
}

// Info logs an informational message
func (l *zapLogger) Info(args ...interface{}) {
	l.sugar.Info(args...)
}

// Debug logs a debug message
func (l *zapLogger) Debug(args ...interface{}) {
	l.sugar.Debug(args...)
}

// WithFields returns a new logger with structured fields
// Fields are included in all subsequent log entries
func (l *zapLogger) WithFields(fields map[string]interface{}) Logger {
	if len(fields) == 0 {
		return l
	}
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return &zapLogger{sugar: l.sugar.With(kv...)}
}

// WithContext returns a new logger with context values
// Automatically extracts request ID and other context values
func (l *zapLogger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return l
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		return &zapLogger{sugar: l.sugar.With("request_id", requestID)}
	}
	return l
}
