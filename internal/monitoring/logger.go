// Package monitoring provides the package-level diagnostic logger shared by
// every component in the core. Malformed payloads, lost connections, failed
// resubscriptions and worker faults are logged here; backpressure drops and
// parameter-change force-archives are counted in metrics but not logged.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger. Tests redirect or mute it to keep output
// quiet and assertable.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
