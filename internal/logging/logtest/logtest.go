// Package logtest builds zap loggers for tests.
package logtest

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// NewLogger returns a Debug+ logger that writes through tb.
func NewLogger(tb testing.TB) *zap.Logger {
	return zaptest.NewLogger(tb, zaptest.Level(zap.DebugLevel))
}

// NewObservedLogger is like NewLogger but also records entries in memory.
func NewObservedLogger(tb testing.TB) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	tee := zapcore.NewTee(NewLogger(tb).Core(), core)
	return zap.New(tee), logs
}
