package monitoring

import (
	"log"
	"sync"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

var (
	debugMu    sync.Mutex
	debugDepth int
)

// Debugf logs through Logf only while at least one DebugScope is held.
// Extraction code calls it freely; the output is silent by default.
func Debugf(format string, v ...interface{}) {
	debugMu.Lock()
	on := debugDepth > 0
	debugMu.Unlock()
	if on {
		Logf("debug: "+format, v...)
	}
}

// DebugScope raises debug verbosity for the lifetime of one extraction and
// returns a release func that must be called (normally deferred) to restore
// the previous level, including on failure paths. Scopes nest; the release
// func is idempotent.
func DebugScope() func() {
	debugMu.Lock()
	debugDepth++
	debugMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			debugMu.Lock()
			debugDepth--
			debugMu.Unlock()
		})
	}
}

// DebugEnabled reports whether any debug scope is currently held.
func DebugEnabled() bool {
	debugMu.Lock()
	defer debugMu.Unlock()
	return debugDepth > 0
}
