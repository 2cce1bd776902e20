// Package logging holds the zap setup shared by the iio library and the CLI.
//
// Library code logs at Debug only and through Global, which discards
// everything until a program installs a real logger with ReplaceGlobal.
package logging

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalMu     sync.RWMutex
	globalLogger = zap.NewNop()
)

// ReplaceGlobal replaces the global logger.
func ReplaceGlobal(logger *zap.Logger) {
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

// Global returns the global logger.
func Global() *zap.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// Component returns a named child of the global logger.
func Component(name string) *zap.Logger {
	return Global().Named(name)
}

// Format selects the encoder.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// NewLoggerConfig returns the default config: console output to stderr
// without stack traces.
func NewLoggerConfig() zap.Config {
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding: string(FormatConsole),
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// NewLogger returns a named Info+ logger.
func NewLogger(name string) *zap.Logger {
	return mustBuild(NewLoggerConfig()).Named(name)
}

// NewDebugLogger returns a named Debug+ logger.
func NewDebugLogger(name string) *zap.Logger {
	cfg := NewLoggerConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	return mustBuild(cfg).Named(name)
}

// New builds a logger from a level name ("debug", "info", "warn", "error")
// and a format.
func New(name, level string, format Format) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := NewLoggerConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	switch format {
	case "", FormatConsole:
		cfg.Encoding = string(FormatConsole)
	case FormatJSON:
		cfg.Encoding = string(FormatJSON)
		cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	default:
		return nil, errors.Errorf("unknown log format %q", format)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return logger.Named(name), nil
}

// ParseLevel accepts zap level names in any case; "warning" is an alias for
// "warn".
func ParseLevel(level string) (zapcore.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return lvl, errors.Wrapf(err, "log level %q", level)
	}
	return lvl, nil
}

func mustBuild(cfg zap.Config) *zap.Logger {
	logger, err := cfg.Build()
	if err != nil {
		// stderr is always openable; a failure here is a broken process.
		panic(err)
	}
	return logger
}
