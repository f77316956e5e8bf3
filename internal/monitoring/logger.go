// Package monitoring holds the process-wide diagnostic logger.
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
	onceMu   sync.Mutex
	onceSeen = map[string]bool{}
)

// LogOnce logs through Logf the first time key is seen in this process and
// drops later calls with the same key. It is used for degradations that
// would otherwise repeat on every frame.
func LogOnce(key, format string, v ...interface{}) {
	onceMu.Lock()
	seen := onceSeen[key]
	onceSeen[key] = true
	onceMu.Unlock()
	if !seen {
		Logf(format, v...)
	}
}

// resetOnce clears LogOnce state. Test helper.
func resetOnce() {
	onceMu.Lock()
	defer onceMu.Unlock()
	onceSeen = map[string]bool{}
}
