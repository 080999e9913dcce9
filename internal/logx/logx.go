// Package logx builds the leveled loggers used across the module.
package logx

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pion/logging"
)

// ParseLevel maps a -loglevel flag value to a pion log level.
func ParseLevel(s string) (logging.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disabled", "off", "none":
		return logging.LogLevelDisabled, nil
	case "error":
		return logging.LogLevelError, nil
	case "warn", "warning":
		return logging.LogLevelWarn, nil
	case "info":
		return logging.LogLevelInfo, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "trace":
		return logging.LogLevelTrace, nil
	}
	return logging.LogLevelDisabled, fmt.Errorf("unknown log level %q", s)
}

// NewFactory returns a logger factory writing to w at the given level.
// A nil writer means stderr.
func NewFactory(level logging.LogLevel, w io.Writer) logging.LoggerFactory {
	if w == nil {
		w = os.Stderr
	}
	return &logging.DefaultLoggerFactory{
		Writer:          w,
		DefaultLogLevel: level,
		ScopeLevels:     make(map[string]logging.LogLevel),
	}
}

// Discard is a factory whose loggers print nothing. Tests and callers
// that pass no factory use it.
func Discard() logging.LoggerFactory {
	return NewFactory(logging.LogLevelDisabled, io.Discard)
}

// Scoped returns a logger for scope, falling back to Discard when
// factory is nil.
func Scoped(factory logging.LoggerFactory, scope string) logging.LeveledLogger {
	if factory == nil {
		factory = Discard()
	}
	return factory.NewLogger(scope)
}
