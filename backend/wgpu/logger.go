package wgpu

import (
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/edgefx"
)

// loggerPtr holds a logger set through Device.SetLogger. Nil means the
// edgefx package logger.
var loggerPtr atomic.Pointer[slog.Logger]

// slogger returns the current package logger.
// All logging in this package goes through this function.
func slogger() *slog.Logger {
	if l := loggerPtr.Load(); l != nil {
		return l
	}
	return edgefx.Logger()
}

// setLogger updates the package-level logger. Nil restores the edgefx
// package logger.
func setLogger(l *slog.Logger) {
	loggerPtr.Store(l)
}
