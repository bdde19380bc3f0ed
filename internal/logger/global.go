// global.go
package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var globalLogger atomic.Pointer[Logger]

// SetGlobal replaces the process wide logger
func SetGlobal(l Logger) {
	if l == nil {
		globalLogger.Store(nil)
		return
	}
	globalLogger.Store(&l)
}

// InitGlobal builds a logger from cfg and installs it as the global logger
func InitGlobal(cfg Config) (Logger, error) {
	l, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	SetGlobal(l)
	return l, nil
}

// Global returns the process wide logger.
// Before SetGlobal or InitGlobal it falls back to a zap development console logger.
func Global() Logger {
	if l := globalLogger.Load(); l != nil {
		return *l
	}

	z, err := zap.NewDevelopment(zap.AddCallerSkip(1))
	if err != nil {
		return NewNop()
	}
	fallback := Logger(newZapLogger(z))
	if globalLogger.CompareAndSwap(nil, &fallback) {
		return fallback
	}
	return *globalLogger.Load()
}
