// Package alog wires the core's structured logging onto zap, the teacher's
// own direct logging dependency. It intentionally stays thin: no log sink
// configuration, file rotation, or syslog wiring — those are the excluded
// peripheral "logging sinks" facility. What remains is the logger
// construction helper every package below calls to get a *zap.Logger
// scoped to its own name.
package alog

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.Mutex
	base *zap.Logger
)

// Configure installs the process-wide base logger. Tests typically call
// this once with a development config; callers that never configure get a
// no-op logger from New so the core is silent by default.
func Configure(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
}

// New returns a named logger scoped to component (e.g. "collection",
// "posting", "typodict"). Safe to call before Configure; returns a no-op
// logger in that case.
func New(component string) *zap.Logger {
	mu.Lock()
	l := base
	mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	return l.Named(component)
}

// Development returns a human-readable logger suitable for tests and the
// cmd/antflyctl demonstration entrypoint.
func Development() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
