// Package debug provides conditional debug logging for pscope.
//
// Debug logging is enabled by setting the PSCOPE_DEBUG environment variable:
//
//	PSCOPE_DEBUG=1 pscope count --select P11
//
// Messages go to stderr, or to the file named by PSCOPE_DEBUG_FILE (useful
// while the TUI owns the terminal). When disabled (default), all functions
// are no-ops.
//
// Usage:
//
//	debug.Log("fetched %d nodes", n)
//	debug.LogTiming("FetchHierarchy", elapsed)
package debug

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	enabled atomic.Bool
	logger  atomic.Pointer[zap.SugaredLogger]
)

func init() {
	if os.Getenv("PSCOPE_DEBUG") != "" {
		SetEnabled(true)
	}
}

// newLogger builds a console logger writing to path ("stderr" or a file).
func newLogger(path string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000")
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building debug logger: %w", err)
	}
	return l.Named("pscope"), nil
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled allows programmatic control of debug logging.
// The logger is created on first enable.
func SetEnabled(e bool) {
	if e && logger.Load() == nil {
		path := os.Getenv("PSCOPE_DEBUG_FILE")
		if path == "" {
			path = "stderr"
		}
		l, err := newLogger(path)
		if err != nil {
			l = zap.NewNop()
		}
		logger.Store(l.Sugar())
	}
	enabled.Store(e)
}

// SetOutput redirects debug output to a file. Used by the TUI so log lines
// do not corrupt the alt screen.
func SetOutput(path string) error {
	l, err := newLogger(path)
	if err != nil {
		return err
	}
	logger.Store(l.Sugar())
	return nil
}

// SetLogger installs l as the debug sink and enables logging. Tests use it
// with an observer core.
func SetLogger(l *zap.Logger) {
	logger.Store(l.Sugar())
	enabled.Store(true)
}

// Sync flushes buffered output.
func Sync() {
	if l := logger.Load(); l != nil {
		_ = l.Sync()
	}
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if !enabled.Load() {
		return
	}
	logger.Load().Debugf(format, args...)
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !enabled.Load() {
		return
	}
	logger.Load().Debugw(name+" done", "took", d)
}

// LogIf writes a debug message only if the condition is true.
func LogIf(cond bool, format string, args ...any) {
	if !cond {
		return
	}
	Log(format, args...)
}

// Warn records a recoverable failure. Warnings are debug output too: they
// never reach the user.
func Warn(format string, args ...any) {
	if !enabled.Load() {
		return
	}
	logger.Load().Warnf(format, args...)
}
