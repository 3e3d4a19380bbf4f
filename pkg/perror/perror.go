// Package perror defines the structured error value carried on trace
// records and transported across the remote-step RPC boundary.
package perror

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/kranzdev/streampipe/internal/ids"
)

// Kind categorizes an Error for callers that need to branch on cause
// without string-matching messages.
type Kind string

const (
	// KindValidation marks a payload that failed a step's own validation.
	KindValidation Kind = "validation"
	// KindExecution marks an error raised by a step's execute body.
	KindExecution Kind = "execution"
	// KindTimeout marks an error synthesized when a step exceeds its timeout.
	KindTimeout Kind = "timeout"
	// KindRemote marks a failed remote-step round trip (dial, encoding or
	// RPC transport). An Error reported by the peer keeps its own Kind.
	KindRemote Kind = "remote"
	// KindImmutable marks an attempt to mutate an immutable trace field.
	KindImmutable Kind = "immutable_attribute"
	// KindUnknownInstance marks execution against an unregistered instance.
	KindUnknownInstance Kind = "unknown_instance"
)

// Error is the structured, transportable error value named in spec §3.1
// and §7. It travels on StepTrace/Package values both in-process and over
// the remote-step RPC contract, so its exported fields hold only plain
// values; the unexported cause serves Unwrap in-process and is not
// carried over the RPC.
type Error struct {
	// ID uniquely identifies this error instance so remote-step merges
	// (spec §4.2) can match errors across the RPC boundary by id instead
	// of by value equality.
	ID      string
	Kind    Kind
	Message string
	// Frames holds formatted call-stack lines, innermost first.
	Frames []string
	// Thread names the goroutine-equivalent context that produced the
	// error: the step id whose execute body raised it, when the creator
	// supplies one.
	Thread string
	// StartContext names the StepTrace id under which this goroutine was
	// spawned, mirroring the original implementation's thread ancestry
	// label.
	StartContext string

	// EnvVars is filled by New only when the process-wide LoggerOptions
	// enables CaptureEnvVars (see options.go). LocalVars and GlobalVars
	// are never filled automatically; a step author may set them. All
	// three are nil otherwise and may contain sensitive data.
	LocalVars map[string]string
	GlobalVars map[string]string
	EnvVars    map[string]string

	cause error
}

// New constructs an Error of the given kind wrapping cause, capturing a
// stack trace from the caller's frame and applying the active
// LoggerOptions (only environment capture takes effect, see options.go).
func New(kind Kind, thread string, cause error) *Error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	e := &Error{
		ID:      ids.New("Error"),
		Kind:    kind,
		Message: msg,
		Frames:  captureFrames(3),
		Thread:  thread,
		cause:   cause,
	}
	applyCaptureOptions(e)
	return e
}

// Newf constructs an Error of the given kind with a formatted message and
// no cause.
func Newf(kind Kind, thread, format string, args ...any) *Error {
	return New(kind, thread, fmt.Errorf(format, args...))
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Thread != "" {
		return fmt.Sprintf("%s error in %s: %s", e.Kind, e.Thread, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is reports whether target is an *Error with the same Kind, so callers
// can write errors.Is(err, perror.New(perror.KindTimeout, "", nil)) or
// compare the Kind field directly.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// Clone returns a deep-enough copy safe to hand to a different goroutine
// (e.g. before merging a remote response into a local trace).
func (e *Error) Clone() *Error {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Frames = append([]string(nil), e.Frames...)
	clone.LocalVars = cloneMap(e.LocalVars)
	clone.GlobalVars = cloneMap(e.GlobalVars)
	clone.EnvVars = cloneMap(e.EnvVars)
	return &clone
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func captureFrames(skip int) []string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	var out []string
	for {
		frame, more := frames.Next()
		if frame.Function != "" {
			out = append(out, fmt.Sprintf("%s:%d %s", trimPath(frame.File), frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}
	return out
}

func trimPath(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 && len(path) > idx+1 {
		if idx2 := strings.LastIndex(path[:idx], "/"); idx2 >= 0 {
			return path[idx2+1:]
		}
	}
	return path
}
