// Package logging provides a tiny abstraction over slog so the orchestration
// packages can depend on a minimal interface (Logger) while callers plug in
// any structured logger. A richer SwarmLogger adds contextual helpers
// (conversation, component) for operational deployments.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger is the minimal logging interface used throughout the module.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NoOpLogger discards all log messages. Useful for tests or when logging is disabled.
type NoOpLogger struct{}

// Debug implements Logger.
func (NoOpLogger) Debug(string, ...any) {}

// Info implements Logger.
func (NoOpLogger) Info(string, ...any) {}

// Warn implements Logger.
func (NoOpLogger) Warn(string, ...any) {}

// Error implements Logger.
func (NoOpLogger) Error(string, ...any) {}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct{ *slog.Logger }

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger { return &SlogAdapter{Logger: logger} }

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger { return NewSlogAdapter(slog.Default()) }

// Config configures construction of a SwarmLogger.
type Config struct {
	Level     slog.Level
	Format    string // json or text
	Output    io.Writer
	AddSource bool
	Component string
}

// DefaultConfig returns a baseline JSON info-level configuration.
func DefaultConfig() *Config {
	return &Config{Level: slog.LevelInfo, Format: "json", Output: os.Stdout}
}

// SwarmLogger wraps slog.Logger adding cheap contextual cloning helpers for
// the identifiers that matter operationally: component, conversation, swarm.
type SwarmLogger struct {
	logger         *slog.Logger
	component      string
	conversationID string
	swarmName      string
}

// NewSwarmLogger builds a SwarmLogger from a config (or defaults if nil).
func NewSwarmLogger(cfg *Config) *SwarmLogger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	return &SwarmLogger{logger: slog.New(handler), component: cfg.Component}
}

// WithComponent sets the logical component (engine, router, memory, ...).
func (l *SwarmLogger) WithComponent(c string) *SwarmLogger {
	nl := *l
	nl.component = c
	return &nl
}

// WithConversation attaches conversation and swarm identifiers.
func (l *SwarmLogger) WithConversation(conversationID, swarmName string) *SwarmLogger {
	nl := *l
	nl.conversationID = conversationID
	nl.swarmName = swarmName
	return &nl
}

func (l *SwarmLogger) attrs(args []any) []any {
	out := make([]any, 0, len(args)+6)
	if l.component != "" {
		out = append(out, "component", l.component)
	}
	if l.conversationID != "" {
		out = append(out, "conversation_id", l.conversationID)
	}
	if l.swarmName != "" {
		out = append(out, "swarm", l.swarmName)
	}
	return append(out, args...)
}

func (l *SwarmLogger) log(level slog.Level, msg string, args ...any) {
	l.logger.Log(context.Background(), level, msg, l.attrs(args)...)
}

// Debug logs at debug level.
func (l *SwarmLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }

// Info logs at info level.
func (l *SwarmLogger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args...) }

// Warn logs at warn level.
func (l *SwarmLogger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args...) }

// Error logs at error level.
func (l *SwarmLogger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }
