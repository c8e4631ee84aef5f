// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-cryptoprovider.
//
// go-cryptoprovider is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package logger

import (
	"context"
	"strings"
	"time"
)

// Level represents the log level
type Level int

const (
	// LevelDebug is for resolution traces and engine calls
	LevelDebug Level = iota
	// LevelInfo is for provider lifecycle events
	LevelInfo
	// LevelWarn is for degraded engines and configuration fallbacks
	LevelWarn
	// LevelError is for failed initializations and operations
	LevelError
)

// String returns the string representation of the log level
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name, ignoring case. Unknown names yield
// LevelInfo and false.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO", "":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// Logger is the structured logging interface used by the registry, the
// engines and the CLI.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// DebugContext and ErrorContext add the context's correlation ID.
	DebugContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)

	// With creates a child logger with the given fields
	With(fields ...Field) Logger

	// WithError creates a child logger with an error field
	WithError(err error) Logger
}

// Field represents a structured logging field
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an int field
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a bool field
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Error creates an error field
func Error(err error) Field {
	return Field{Key: "error", Value: err}
}

// Any creates a field with any value
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Provider names the provider a record is about.
func Provider(name string) Field {
	return Field{Key: "provider", Value: name}
}

// Algorithm names the algorithm a record is about.
func Algorithm(name string) Field {
	return Field{Key: "algorithm", Value: name}
}

// Priority records a registration priority.
func Priority(p int) Field {
	return Field{Key: "priority", Value: p}
}

type noOpLogger struct{}

// NewNoOpLogger returns a Logger that discards everything.
func NewNoOpLogger() Logger {
	return noOpLogger{}
}

func (noOpLogger) Debug(string, ...Field)                         {}
func (noOpLogger) Info(string, ...Field)                          {}
func (noOpLogger) Warn(string, ...Field)                          {}
func (noOpLogger) Error(string, ...Field)                         {}
func (noOpLogger) DebugContext(context.Context, string, ...Field) {}
func (noOpLogger) ErrorContext(context.Context, string, ...Field) {}
func (n noOpLogger) With(...Field) Logger                         { return n }
func (n noOpLogger) WithError(error) Logger                       { return n }
