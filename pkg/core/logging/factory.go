// ============================================================================
// hark - Local Wake-Word Listening Pipeline
// ============================================================================
//
// Package:     logging
// Description: Factory functions for creating component loggers
// Author:      Tim Voss
// Created:     2026-08-30
// License:     MIT
// ============================================================================

package logging

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerConfig holds configuration for creating loggers
type LoggerConfig struct {
	// Component name, attached to every entry
	Name string

	// Log level (debug, info, warn, error)
	Level string

	// Output format: "json" or "text" (default: text)
	Format string

	// Output destination (default: stderr)
	Output io.Writer
}

// DefaultLoggerConfig returns a default configuration
func DefaultLoggerConfig(name string) LoggerConfig {
	return LoggerConfig{
		Name:   name,
		Level:  "info",
		Format: "text",
	}
}

var (
	defaultMu     sync.RWMutex
	defaultLevel  = "info"
	defaultFormat = "text"
)

// SetDefaults sets the level and format used by New for all subsequent loggers
func SetDefaults(level, format string) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if level != "" {
		defaultLevel = level
	}
	if format != "" {
		defaultFormat = format
	}
}

// Logger is a named structured logger with key-value pairs
type Logger struct {
	sugar *zap.SugaredLogger
	name  string
}

// NewLogger creates a logger from an explicit configuration
func NewLogger(cfg LoggerConfig) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder

	var enc zapcore.Encoder
	if cfg.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(out), zapLevel(ParseLevel(cfg.Level)))
	zl := zap.New(core).Named(cfg.Name)

	return &Logger{
		sugar: zl.Sugar(),
		name:  cfg.Name,
	}
}

// New creates a named logger with the process-wide defaults
func New(name string) *Logger {
	defaultMu.RLock()
	level, format := defaultLevel, defaultFormat
	defaultMu.RUnlock()

	cfg := DefaultLoggerConfig(name)
	cfg.Level = level
	cfg.Format = format
	return NewLogger(cfg)
}

// Name returns the component name of the logger
func (l *Logger) Name() string {
	return l.name
}

// With returns a logger with additional key-value context
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{
		sugar: l.sugar.With(keysAndValues...),
		name:  l.name,
	}
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

// Info logs an info message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// Sync flushes buffered entries
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// zapLevel converts a Level to the zap equivalent
func zapLevel(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
