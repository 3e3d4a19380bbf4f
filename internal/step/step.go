// Package step implements the polymorphic unit of work shared by every
// step variant (leaf, conditional, combination, remote): a uniform Run
// wrapper around each variant's Execute hook, enforcing the per-step
// mutex, timeout watchdog, and trace/error bookkeeping spec'd for every
// variant alike.
package step

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kranzdev/streampipe/internal/ports"
	"github.com/kranzdev/streampipe/internal/trace"
	"github.com/kranzdev/streampipe/pkg/perror"
)

// Options configures one step instance: whether invocations serialize
// behind the step's own mutex, and the execute timeout (0 ⇒ unbounded).
type Options struct {
	UseMutex bool
	Timeout  time.Duration
}

// DefaultOptions matches the source defaults: mutex held, no timeout.
func DefaultOptions() Options {
	return Options{UseMutex: true}
}

// Container is the enclosing scope a fresh StepTrace is appended to
// before execute begins: a PhaseTrace for top-level steps, or the parent
// StepTrace for a composite step's children.
type Container interface {
	AppendStep(*trace.StepTrace)
}

// Step is the uniform contract every variant satisfies. Execute performs
// the variant's actual work, may describe its outcome in st.Message, and
// reports failure by returning an error. Run finalizes the step as
// successful whenever Execute returns nil; a value Execute assigns to
// st.Success is not consulted.
type Step[T any] interface {
	ID() string
	Name() string
	Options() Options
	Execute(ctx context.Context, pkg *trace.Package[T], st *trace.StepTrace) error

	mutex() *sync.Mutex
}

// Base is embedded by every step variant to supply id/name/options and
// the per-step reentrant-in-spirit lock used when Options.UseMutex is
// set. A plain sync.Mutex suffices: nothing in this design recurses into
// the same step instance's own lock, only guards concurrent invocations
// of the same instance across different packages.
type Base struct {
	id   string
	name string
	opts Options
	mu   sync.Mutex
}

// NewBase mints a step id of the form "M-<type>-<uuid>" and stores the
// display name (defaulting to the id) and options.
func NewBase(stepType, name string, opts Options) Base {
	id := trace.NewStepID(stepType)
	if name == "" {
		name = id
	}
	return Base{id: id, name: name, opts: opts}
}

func (b *Base) ID() string        { return b.id }
func (b *Base) Name() string      { return b.name }
func (b *Base) Options() Options  { return b.opts }
func (b *Base) mutex() *sync.Mutex { return &b.mu }

// Run is the uniform `run(pkg, parent_trace)` contract shared by every
// step variant (spec §4.1). parent is the enclosing composite step's
// StepTrace, or nil for a top-level step within a phase; container is
// the PhaseTrace to fall back to when parent is nil. logger may be nil.
func Run[T any](ctx context.Context, s Step[T], pkg *trace.Package[T], parent *trace.StepTrace, container Container, metrics ports.MetricsCollector, logger ports.Logger) *trace.StepTrace {
	st := trace.NewStepTrace(s.ID(), s.Name())
	if parent != nil {
		parent.AppendStep(st)
	} else {
		container.AppendStep(st)
	}

	opts := s.Options()
	if opts.UseMutex {
		waitStart := time.Now()
		s.mutex().Lock()
		st.AddWaiting(time.Since(waitStart))
		defer s.mutex().Unlock()
	}

	// Execute writes to its own StepTrace; its Message and Children are
	// copied onto st only when it returns before the timeout, so a body
	// that outlives its timeout cannot change the trace Run returns.
	work := trace.NewStepTrace(s.ID(), s.Name())
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("step %q panicked: %v", s.ID(), r)
				return
			}
		}()
		done <- s.Execute(ctx, pkg, work)
	}()
	collect := func(err error) {
		st.Message = work.Message
		st.Children = work.Children
		finalize(ctx, pkg, st, err, s.ID(), logger)
	}

	if opts.Timeout > 0 {
		select {
		case err := <-done:
			collect(err)
		case <-time.After(opts.Timeout):
			timeoutErr := perror.New(perror.KindTimeout, s.ID(), fmt.Errorf("step %q exceeded timeout %s", s.ID(), opts.Timeout))
			st.MarkTimedOut(timeoutErr)
			work.MarkTimedOut(timeoutErr)
			pkg.AppendError(timeoutErr)
			if logger != nil {
				logger.Error(ctx, "step timed out", "component", "step", "step_id", s.ID(), "step_name", s.Name(), "timeout", opts.Timeout.String())
			}
		}
	} else {
		collect(<-done)
	}

	emitMetrics(ctx, metrics, s.Name(), st)
	return st
}

func finalize[T any](ctx context.Context, pkg *trace.Package[T], st *trace.StepTrace, err error, stepID string, logger ports.Logger) {
	if err != nil {
		if pf, ok := err.(*propagatedFailure); ok {
			st.Finish(false, pf.message, nil)
			return
		}
		perr, ok := err.(*perror.Error)
		if !ok {
			perr = perror.New(perror.KindExecution, stepID, err)
		}
		st.Finish(false, perr.Message, perr)
		pkg.AppendError(perr)
		if logger != nil {
			logger.Warn(ctx, "step failed", "component", "step", "step_id", stepID, "message", perr.Message)
		}
		return
	}
	st.Finish(true, st.Message, nil)
}

func emitMetrics(ctx context.Context, metrics ports.MetricsCollector, stepClass string, st *trace.StepTrace) {
	if metrics == nil {
		return
	}
	labels := map[string]string{"step_class": stepClass}
	status := "success"
	if !st.Success {
		status = "failure"
	}
	metrics.IncCounter(ctx, "streampipe_step_executions_total", mergeLabel(labels, "status", status))
	metrics.ObserveHistogram(ctx, "streampipe_step_processing_seconds", st.ProcessingTime.Seconds(), labels)
	metrics.ObserveHistogram(ctx, "streampipe_step_waiting_seconds", st.WaitingTime.Seconds(), labels)
	metrics.ObserveHistogram(ctx, "streampipe_step_total_seconds", st.TotalTime.Seconds(), labels)
}

func mergeLabel(base map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(base)+1)
	for k, v := range base {
		out[k] = v
	}
	out[key] = value
	return out
}
