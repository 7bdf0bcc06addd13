// Package monitoring holds the diagnostic loggers used by the generator.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger so tests can capture or mute loader and writer output.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Warnf logs through Logf with a "warning: " prefix. It is used for
// conditions that do not stop a run, such as a truncated template record.
func Warnf(format string, v ...interface{}) {
	Logf("warning: "+format, v...)
}
