// Package logger provides a lightweight, centralized logging facility
// with configurable verbosity levels.
//
// Design goals:
//   - Simple API (Errorf, Infof, Debugf, Tracef)
//   - Centralized verbosity control
//   - Zero formatting logic at call sites
//   - Leverages Go's standard log package
//
// Verbosity levels (in increasing order):
//
//	Error < Info < Debug < Trace
//
// Example usage:
//
//	logger.SetVerbosity(2) // Debug
//	logger.Infof("starting run")
//	logger.Debugf("sim: stepping %s, %d active orders", date, active)
package logger

import (
	"fmt"
	"log"
	"os"
)

// Level represents a logging verbosity level.
// Higher values mean more verbose logging.
type Level int

const (
	Error Level = iota // Error logs only critical failures.
	Info               // Info logs high-level run progress.
	Debug              // Debug logs per-step diagnostic information.
	Trace              // Trace logs per-fill execution details.
)

// current holds the active verbosity level.
// Only messages with level <= current are logged.
var current Level = Info

// init configures the global logger used by this package.
func init() {
	// Write all log output to standard error (stderr), keeping logs
	// separate from the run results a CLI invocation writes to stdout
	// or --output-dir.
	log.SetOutput(os.Stderr)

	// Configure log formatting:
	//   - log.LstdFlags  → date and time (YYYY/MM/DD HH:MM:SS)
	//   - log.Lshortfile → source file name and line number
	//
	// Example output:
	//   2026/01/25 15:42:10 sim.go:343: [INFO]  sim: run complete
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

// SetVerbosity sets the global logging verbosity.
// Typically called once during application startup
// (e.g. after parsing CLI flags).
func SetVerbosity(v int) {
	current = Level(v)
}

// logf is the internal logging helper.
// It checks verbosity and delegates formatting/output
// to the standard library logger.
func logf(l Level, prefix, format string, args ...any) {
	if current >= l {
		// Calldepth 3 skips logf and the level wrapper, so Lshortfile
		// reports the caller of Errorf/Infof/Debugf/Tracef.
		log.Output(3, fmt.Sprintf(prefix+format, args...))
	}
}

// Errorf logs an error-level message.
// Use this for failures that require attention.
func Errorf(format string, args ...any) {
	logf(Error, "[ERROR] ", format, args...)
}

// Infof logs an informational message.
// Use this for major run lifecycle events: store loads, run start,
// run completion.
func Infof(format string, args ...any) {
	logf(Info, "[INFO]  ", format, args...)
}

// Debugf logs debugging information.
// Use this for per-step detail: dates stepped, cache fallbacks.
func Debugf(format string, args ...any) {
	logf(Debug, "[DEBUG] ", format, args...)
}

// Tracef logs very detailed execution traces, e.g. individual order
// fills. Use this sparingly due to high volume.
func Tracef(format string, args ...any) {
	logf(Trace, "[TRACE] ", format, args...)
}
