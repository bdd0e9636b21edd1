package logger

import (
	"context"
	"sync"
)

var (
	globalLock sync.RWMutex
	global     Logger = &Noop{}
)

// SetGlobalLogger replaces the process-wide logger. Call once at startup,
// before any goroutine logs.
func SetGlobalLogger(l Logger) {
	if l == nil {
		return
	}

	globalLock.Lock()
	defer globalLock.Unlock()
	global = l
}

func getGlobal() Logger {
	globalLock.RLock()
	defer globalLock.RUnlock()
	return global
}

func Debug(ctx context.Context, msg string, fields ...KeyValue) {
	getGlobal().Debug(ctx, msg, fields...)
}

func Info(ctx context.Context, msg string, fields ...KeyValue) {
	getGlobal().Info(ctx, msg, fields...)
}

func Warn(ctx context.Context, msg string, fields ...KeyValue) {
	getGlobal().Warn(ctx, msg, fields...)
}

func Error(ctx context.Context, msg string, fields ...KeyValue) {
	getGlobal().Error(ctx, msg, fields...)
}

func Access(ctx context.Context, data AccessLogData) {
	getGlobal().Access(ctx, data)
}

// Noop discards everything. Default before SetGlobalLogger is called,
// so library code can log without nil checks.
type Noop struct{}

var _ Logger = (*Noop)(nil)

func (n *Noop) Debug(context.Context, string, ...KeyValue) {}
func (n *Noop) Info(context.Context, string, ...KeyValue)  {}
func (n *Noop) Warn(context.Context, string, ...KeyValue)  {}
func (n *Noop) Error(context.Context, string, ...KeyValue) {}
func (n *Noop) Access(context.Context, AccessLogData)      {}
