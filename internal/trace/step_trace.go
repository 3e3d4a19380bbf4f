// Package trace defines the hierarchical per-request trace record:
// Package -> ControllerTrace -> PhaseTrace -> StepTrace, plus the
// structured Errors recorded on it (a list on Package, a single Err on
// StepTrace). Every level is mutated only
// by the goroutine that currently owns its scope; parents observe
// children only after the child has finalized (see StepTrace.Finish).
package trace

import (
	"sync"
	"time"

	"github.com/kranzdev/streampipe/internal/ids"
	"github.com/kranzdev/streampipe/pkg/perror"
)

// StepTrace records one step invocation. Composite steps (conditional,
// combination) append nested StepTrace values to Children for the branch
// or children they ran.
type StepTrace struct {
	mu sync.Mutex

	ID      string
	Name    string
	Running bool

	StartTime      time.Time
	EndTime        time.Time
	WaitingTime    time.Duration
	ProcessingTime time.Duration
	TotalTime      time.Duration

	Message string
	Success bool
	Err     *perror.Error

	Children []*StepTrace

	timedOut bool
}

// NewStepTrace starts a new trace for the step identified by id/name and
// marks it running. Callers append the returned trace to the enclosing
// container (parent StepTrace for nested steps, PhaseTrace otherwise)
// before invoking execute, per spec.
func NewStepTrace(id, name string) *StepTrace {
	if name == "" {
		name = id
	}
	return &StepTrace{
		ID:        id,
		Name:      name,
		Running:   true,
		StartTime: time.Now(),
	}
}

// AddWaiting accumulates time spent waiting on the step's mutex before
// execute began. Safe to call before the step is otherwise touched by
// other goroutines, since the owning goroutine is the sole writer.
func (st *StepTrace) AddWaiting(d time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.WaitingTime += d
}

// MarkTimedOut flags the trace as timed-out. Once set, Finish is a
// no-op — see TimedOut. step.Run hands execute a separate trace, so
// writes from a still-running execute body never reach the one it
// returns.
func (st *StepTrace) MarkTimedOut(timeoutErr *perror.Error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.timedOut {
		return
	}
	st.timedOut = true
	st.Running = false
	st.Success = false
	st.Err = timeoutErr
	st.Message = timeoutErr.Message
	st.EndTime = time.Now()
	st.ProcessingTime = st.EndTime.Sub(st.StartTime) - st.WaitingTime
	st.TotalTime = st.EndTime.Sub(st.StartTime)
}

// TimedOut reports whether the step has already been finalized by a
// timeout watchdog. execute bodies observe this after a blocking call
// returns late, to suppress writes to a trace the caller has stopped
// waiting on.
func (st *StepTrace) TimedOut() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.timedOut
}

// Finish finalizes the trace with the outcome of execute. It is a no-op
// if the trace was already finalized by MarkTimedOut, preserving the
// non-preemptive timeout contract.
func (st *StepTrace) Finish(success bool, message string, err *perror.Error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.timedOut {
		return
	}
	st.Running = false
	st.Success = success
	st.Message = message
	st.Err = err
	st.EndTime = time.Now()
	elapsed := st.EndTime.Sub(st.StartTime)
	st.ProcessingTime = elapsed - st.WaitingTime
	if st.ProcessingTime < 0 {
		st.ProcessingTime = 0
	}
	st.TotalTime = st.WaitingTime + st.ProcessingTime
}

// AppendStep appends a nested StepTrace produced by a composite step's
// child. Named to match PhaseTrace.AppendStep so step.Container can treat
// "the enclosing scope" uniformly whether that scope is a phase or a
// parent step.
func (st *StepTrace) AppendStep(child *StepTrace) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Children = append(st.Children, child)
}

// Clone returns a deep copy safe to hand across a remote-step boundary.
func (st *StepTrace) Clone() *StepTrace {
	if st == nil {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	clone := &StepTrace{
		ID:             st.ID,
		Name:           st.Name,
		Running:        st.Running,
		StartTime:      st.StartTime,
		EndTime:        st.EndTime,
		WaitingTime:    st.WaitingTime,
		ProcessingTime: st.ProcessingTime,
		TotalTime:      st.TotalTime,
		Message:        st.Message,
		Success:        st.Success,
		Err:            st.Err.Clone(),
		timedOut:       st.timedOut,
	}
	clone.Children = make([]*StepTrace, len(st.Children))
	for i, c := range st.Children {
		clone.Children[i] = c.Clone()
	}
	return clone
}

// NewStepID mints a stable step identifier of the form "M-<type>-<uuid>"
// per spec §4.1.
func NewStepID(stepType string) string {
	return ids.Step(stepType)
}
