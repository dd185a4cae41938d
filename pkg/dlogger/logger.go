// Package dlogger exposes a simple zap logger, with log levels
package dlogger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// LogLevelInfo sets the log level to info
	LogLevelInfo = "info"

	// LogLevelDebug sets the log level to debug
	LogLevelDebug = "debug"

	// LogLevelWarn only reports capped resources and errors
	LogLevelWarn = "warn"

	// LogLevelNone sets logger to no logging
	LogLevelNone = "none"
)

const (
	// EncodingJSON is the zap production encoding
	EncodingJSON = "json"

	// EncodingConsole prints plain text lines, closer to what workflow engines show their users
	EncodingConsole = "console"
)

// Option tunes the logger built by GetLogger
type Option func(*settings)

type settings struct {
	encoding    string
	outputPaths []string
}

// WithEncoding selects the "json" or "console" encoding. Defaults to json.
func WithEncoding(encoding string) Option {
	return func(s *settings) {
		if encoding == "" {
			return
		}
		s.encoding = encoding
	}
}

// WithOutputPaths redirects log output. Defaults to stderr, so stdout remains usable by callers.
func WithOutputPaths(paths ...string) Option {
	return func(s *settings) {
		if len(paths) == 0 {
			return
		}
		s.outputPaths = paths
	}
}

// GetLogger returns a zap logger with the specified level
func GetLogger(logLevel string, opts ...Option) (*zap.Logger, error) {
	if logLevel == LogLevelNone {
		return zap.NewNop(), nil
	}
	s := settings{
		encoding:    EncodingJSON,
		outputPaths: []string{"stderr"},
	}
	for _, apply := range opts {
		apply(&s)
	}

	var zapConfig zap.Config
	switch s.encoding {
	case EncodingJSON:
		zapConfig = zap.NewProductionConfig()
	case EncodingConsole:
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Development = false
		zapConfig.DisableStacktrace = true
		zapConfig.EncoderConfig.CallerKey = ""
	default:
		return nil, fmt.Errorf("unsupported log encoding %q", s.encoding)
	}
	var lvl zapcore.Level
	err := lvl.UnmarshalText([]byte(logLevel))
	if err != nil {
		return nil, err
	}
	zapConfig.Level = zap.NewAtomicLevelAt(lvl)
	zapConfig.OutputPaths = s.outputPaths
	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	return logger, nil
}
