// Package klog is the kernel's structured logging sink, backed by zap
// so every call site carries a level and a component tag instead of
// hand-formatted text. Its single core writes to whatever io.Writer
// the boot path installs: the UART driver in production, a buffer in
// tests.
package klog

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global *zap.SugaredLogger = zap.NewNop().Sugar()

// Init installs w as the log sink. Called once during boot after the
// UART collaborator (internal/uart) is ready; before that, log calls
// are no-ops.
func Init(w io.Writer, level zapcore.Level) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "" // no wall clock before the timer is up
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(w),
		level,
	)
	global = zap.New(core).Sugar()
}

// Logger is a component-scoped view over the global sink. It resolves
// the sink on every call rather than capturing it, so package-level
// `var log = klog.With(...)` declarations made before Init still reach
// the real sink afterward.
type Logger struct {
	component string
}

// With returns a Logger that tags every entry with component.
func With(component string) Logger {
	return Logger{component: component}
}

func (l Logger) sugar() *zap.SugaredLogger {
	return global.With("component", l.component)
}

func (l Logger) Debugf(format string, args ...any) { l.sugar().Debugf(format, args...) }
func (l Logger) Infof(format string, args ...any)  { l.sugar().Infof(format, args...) }
func (l Logger) Warnf(format string, args ...any)  { l.sugar().Warnf(format, args...) }
func (l Logger) Errorf(format string, args ...any) { l.sugar().Errorf(format, args...) }

// Sync flushes any buffered log entries. kerrors.Fatal does not call
// it; the fatal path logs and halts without a flush.
func Sync() {
	_ = global.Sync()
}
