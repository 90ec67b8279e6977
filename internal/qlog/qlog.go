// Copyright 2025 The QLever Authors.
//
// Package qlog is a thin facade over zerolog, shaped after the teacher's
// erigon-lib/log/v3 call sites (Info/Warn/Error/Debug with trailing
// key-value pairs), so that components log the same way the teacher's
// snapshot sync and state readers do.
package qlog

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
	With().Timestamp().Logger()

// Logger wraps a zerolog.Logger bound to a component name, printed as a
// "[component]" prefix to match the teacher's "[prefix] message" style.
type Logger struct {
	prefix string
	zl     zerolog.Logger
}

// New returns a Logger for the named component.
func New(component string) Logger {
	return Logger{prefix: component, zl: base.With().Str("component", component).Logger()}
}

func (l Logger) Debug(msg string, kv ...any) { l.zl.Debug().Str("msg", msg).Fields(toMap(kv)).Send() }
func (l Logger) Info(msg string, kv ...any)  { l.zl.Info().Str("msg", msg).Fields(toMap(kv)).Send() }
func (l Logger) Warn(msg string, kv ...any)  { l.zl.Warn().Str("msg", msg).Fields(toMap(kv)).Send() }
func (l Logger) Error(msg string, kv ...any) { l.zl.Error().Str("msg", msg).Fields(toMap(kv)).Send() }

func toMap(kv []any) map[string]any {
	if len(kv) == 0 {
		return nil
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}

// SetLevel adjusts the global minimum log level, used by the CLI's
// --verbosity flag.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
