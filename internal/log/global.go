package log

import "sync/atomic"

var process atomic.Pointer[Logger]

// SetDefaultLogger installs the logger the CLI configured from its flags.
// Packages that receive no logger use it.
func SetDefaultLogger(logger *Logger) {
	process.Store(logger)
}

// DefaultLogger returns the installed logger, installing Default() on first
// use when the CLI has not configured one.
func DefaultLogger() *Logger {
	if l := process.Load(); l != nil {
		return l
	}
	process.CompareAndSwap(nil, Default())
	return process.Load()
}

// OrDefault returns l, or the process logger when l is nil.
func OrDefault(l *Logger) *Logger {
	if l != nil {
		return l
	}
	return DefaultLogger()
}
