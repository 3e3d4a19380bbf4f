package trace

import (
	"sync"
	"time"

	"github.com/kranzdev/streampipe/internal/ids"
)

// PhaseTrace records one execution of an ordered step list within a
// controller. Phases do not own concurrency; their owning controller
// does, so PhaseTrace itself needs no more than a mutex around its own
// bookkeeping.
type PhaseTrace struct {
	mu sync.Mutex

	ID      string
	Name    string
	Running bool

	StartTime      time.Time
	EndTime        time.Time
	ProcessingTime time.Duration

	Steps []*StepTrace
}

// NewPhaseTrace starts a new trace for a phase and marks it running.
func NewPhaseTrace(name string) *PhaseTrace {
	return &PhaseTrace{
		ID:        ids.New("Phase"),
		Name:      name,
		Running:   true,
		StartTime: time.Now(),
	}
}

// AppendStep records a StepTrace produced by running one of the phase's
// steps. Called before the step's execute begins, per spec §4.1.
func (pt *PhaseTrace) AppendStep(st *StepTrace) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.Steps = append(pt.Steps, st)
}

// Finish marks the phase as completed and stamps its timing fields.
func (pt *PhaseTrace) Finish() {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	pt.Running = false
	pt.EndTime = time.Now()
	pt.ProcessingTime = pt.EndTime.Sub(pt.StartTime)
}

// Clone returns a deep copy safe to hand across a remote-step boundary.
func (pt *PhaseTrace) Clone() *PhaseTrace {
	if pt == nil {
		return nil
	}
	pt.mu.Lock()
	defer pt.mu.Unlock()
	clone := &PhaseTrace{
		ID:             pt.ID,
		Name:           pt.Name,
		Running:        pt.Running,
		StartTime:      pt.StartTime,
		EndTime:        pt.EndTime,
		ProcessingTime: pt.ProcessingTime,
	}
	clone.Steps = make([]*StepTrace, len(pt.Steps))
	for i, s := range pt.Steps {
		clone.Steps[i] = s.Clone()
	}
	return clone
}
