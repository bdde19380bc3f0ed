// testing.go
package logger

import (
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// NewObserved returns a Logger that records entries in memory at or above level.
// This is useful for tests that assert on emitted log entries.
func NewObserved(level LogLevel) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapLevel(level))
	return NewWithCore(core), logs
}

// FieldValue returns the value of key in an observed entry's context, if present
func FieldValue(entry observer.LoggedEntry, key string) (any, bool) {
	for _, f := range entry.Context {
		if f.Key != key {
			continue
		}
		switch f.Type {
		case zapcore.StringType:
			return f.String, true
		case zapcore.Int64Type, zapcore.Int32Type, zapcore.Uint64Type, zapcore.DurationType:
			return f.Integer, true
		case zapcore.BoolType:
			return f.Integer == 1, true
		default:
			return f.Interface, true
		}
	}
	return nil, false
}
