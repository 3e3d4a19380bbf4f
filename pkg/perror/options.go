package perror

import (
	"os"
	"sync"
)

// LoggerOptions gates which optional, potentially sensitive fields New
// attaches to a captured Error. It mirrors the ErrorLoggerOptions /
// ErrorLogger singleton from the system this package generalizes from:
// type/message/traceback/thread context are always captured, and
// environment variables are captured when CaptureEnvVars is set.
// CaptureLocalVars and CaptureGlobalVars are stored, but New captures no
// variables for them (see applyCaptureOptions).
type LoggerOptions struct {
	CaptureLocalVars bool
	CaptureGlobalVars bool
	CaptureEnvVars    bool
}

var (
	optionsMu sync.RWMutex
	options   = LoggerOptions{}
)

// SetLoggerOptions installs the process-wide capture options used by
// subsequent calls to New. Safe for concurrent use.
func SetLoggerOptions(o LoggerOptions) {
	optionsMu.Lock()
	defer optionsMu.Unlock()
	options = o
}

// GetLoggerOptions returns the current process-wide capture options.
func GetLoggerOptions() LoggerOptions {
	optionsMu.RLock()
	defer optionsMu.RUnlock()
	return options
}

func applyCaptureOptions(e *Error) {
	opts := GetLoggerOptions()
	if opts.CaptureEnvVars {
		e.EnvVars = environToMap()
	}
	// Local/global variable capture has no stdlib-reachable equivalent to
	// the original's frame.f_locals/f_globals introspection; Go erases
	// that information at compile time. The flags are preserved so a
	// step author can still attach a snapshot explicitly via
	// Error.LocalVars/GlobalVars before returning it.
	_ = opts.CaptureLocalVars
	_ = opts.CaptureGlobalVars
}

func environToMap() map[string]string {
	env := os.Environ()
	out := make(map[string]string, len(env))
	for _, kv := range env {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				out[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return out
}
