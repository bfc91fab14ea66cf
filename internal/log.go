// Package internal carries cross-cutting infrastructure shared by the
// analysis engines.
package internal

import (
	"log"
	"os"
)

// LogLevel orders logging verbosity.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// Logger is a leveled, component-tagged wrapper over the standard log
// package. Components keep the "[Name]" prefix convention so pipeline
// stages are greppable in mixed output.
type Logger struct {
	component string
	level     LogLevel
}

// NewLogger creates a logger for one pipeline component, reading the
// verbosity from the LOG_LEVEL environment variable (INFO by default).
func NewLogger(component string) *Logger {
	return &Logger{component: component, level: levelFromEnv()}
}

func levelFromEnv() LogLevel {
	switch os.Getenv("LOG_LEVEL") {
	case "ERROR":
		return LogLevelError
	case "WARN":
		return LogLevelWarn
	case "DEBUG":
		return LogLevelDebug
	default:
		return LogLevelInfo
	}
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.emit(LogLevelError, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.emit(LogLevelWarn, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.emit(LogLevelInfo, format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.emit(LogLevelDebug, format, args...)
}

func (l *Logger) emit(level LogLevel, format string, args ...interface{}) {
	if level > l.level {
		return
	}
	log.Printf("["+l.component+"] "+format, args...)
}

// Level returns the configured verbosity.
func (l *Logger) Level() LogLevel {
	return l.level
}
