package trace

import (
	"sync"
	"time"

	"github.com/kranzdev/streampipe/internal/ids"
)

// Mode selects how a controller orders delivery of completed packages
// back to the pipeline. See package controller for the scheduler that
// interprets each mode.
type Mode string

const (
	// NotParallel admits at most one in-flight package per instance;
	// submissions serialize behind a per-instance lock and deliver in
	// strict FIFO order.
	NotParallel Mode = "NOT_PARALLEL"
	// OrderBySequence allows up to max_workers in flight but buffers
	// out-of-order completions, delivering strictly by assigned
	// sequence number.
	OrderBySequence Mode = "ORDER_BY_SEQUENCE"
	// FirstWins allows up to max_workers in flight and delivers only the
	// highest sequence number observed so far, cancelling or dropping
	// the rest.
	FirstWins Mode = "FIRST_WINS"
	// NoOrder allows up to max_workers in flight and delivers each
	// package as soon as it completes, with no ordering guarantee.
	NoOrder Mode = "NO_ORDER"
)

// ControllerTrace records one controller's handling of a single package:
// its scheduling mode, worker pool size, assigned sequence number, and
// the PhaseTrace list it ran.
type ControllerTrace struct {
	mu sync.Mutex

	ID             string
	Name           string
	Mode           Mode
	Workers        int
	SequenceNumber int64
	Running        bool

	StartTime      time.Time
	EndTime        time.Time
	WaitingTime    time.Duration
	ProcessingTime time.Duration
	TotalTime      time.Duration

	Phases []*PhaseTrace
}

// NewControllerTrace starts a new trace for a controller handling a
// package with the given assigned sequence number.
func NewControllerTrace(name string, mode Mode, workers int, seq int64) *ControllerTrace {
	return &ControllerTrace{
		ID:             ids.New("Controller"),
		Name:           name,
		Mode:           mode,
		Workers:        workers,
		SequenceNumber: seq,
		Running:        true,
		StartTime:      time.Now(),
	}
}

// AppendPhase records a PhaseTrace produced by running one of the
// controller's phases.
func (ct *ControllerTrace) AppendPhase(pt *PhaseTrace) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.Phases = append(ct.Phases, pt)
}

// AddWaiting accumulates time spent queued before a worker picked up the
// package.
func (ct *ControllerTrace) AddWaiting(d time.Duration) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.WaitingTime += d
}

// Finish marks the controller trace as completed and stamps its timing
// identities: total = waiting + processing.
func (ct *ControllerTrace) Finish() {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ct.Running = false
	ct.EndTime = time.Now()
	elapsed := ct.EndTime.Sub(ct.StartTime)
	ct.ProcessingTime = elapsed - ct.WaitingTime
	if ct.ProcessingTime < 0 {
		ct.ProcessingTime = 0
	}
	ct.TotalTime = ct.WaitingTime + ct.ProcessingTime
}

// Clone returns a deep copy safe to hand across a remote-step boundary.
func (ct *ControllerTrace) Clone() *ControllerTrace {
	if ct == nil {
		return nil
	}
	ct.mu.Lock()
	defer ct.mu.Unlock()
	clone := &ControllerTrace{
		ID:             ct.ID,
		Name:           ct.Name,
		Mode:           ct.Mode,
		Workers:        ct.Workers,
		SequenceNumber: ct.SequenceNumber,
		Running:        ct.Running,
		StartTime:      ct.StartTime,
		EndTime:        ct.EndTime,
		WaitingTime:    ct.WaitingTime,
		ProcessingTime: ct.ProcessingTime,
		TotalTime:      ct.TotalTime,
	}
	clone.Phases = make([]*PhaseTrace, len(ct.Phases))
	for i, p := range ct.Phases {
		clone.Phases[i] = p.Clone()
	}
	return clone
}
