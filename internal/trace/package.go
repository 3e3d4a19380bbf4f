package trace

import (
	"sync"
	"time"

	"github.com/kranzdev/streampipe/internal/ids"
	"github.com/kranzdev/streampipe/pkg/perror"
)

// Package is the per-request trace record (spec §3.1): one per submitted
// payload, carrying the payload itself plus the hierarchical trace of
// every controller/phase/step that touched it. Package is parameterized
// over the payload type so in-process callers keep static typing; the
// remote-step transport (internal/remoterpc) instead carries an opaque
// encoded byte string, per §6.1.
type Package[T any] struct {
	mu sync.Mutex

	id         immutableField
	pipelineID immutableField

	InstanceID string
	Data       T
	Running    bool

	StartTime            time.Time
	EndTime              time.Time
	TotalWaitingTime     time.Duration
	TotalProcessingTime  time.Duration
	TotalTime            time.Duration

	Success bool

	Controllers []*ControllerTrace
	Errors      []*perror.Error
}

// NewPackage constructs a fresh Package for one submission against the
// given pipeline and instance. id and pipelineID are fixed for the life
// of the package; subsequent calls to SetID/SetPipelineID always fail.
func NewPackage[T any](pipelineID, instanceID string, data T) *Package[T] {
	pkg := &Package[T]{
		InstanceID: instanceID,
		Data:       data,
		Running:    true,
		StartTime:  time.Now(),
	}
	pkg.id.init(ids.New("DP"))
	pkg.pipelineID.init(pipelineID)
	return pkg
}

// RestorePackage reconstructs a Package with a caller-supplied id,
// bypassing the usual fresh-id minting in NewPackage. It exists for the
// remote-step transport, which deserializes a package that already has
// an identity assigned by whichever side originally constructed it; the
// immutability guard still applies to everything after this call.
func RestorePackage[T any](id, pipelineID, instanceID string, data T) *Package[T] {
	pkg := &Package[T]{
		InstanceID: instanceID,
		Data:       data,
	}
	pkg.id.init(id)
	pkg.pipelineID.init(pipelineID)
	return pkg
}

// ID returns the package's stable identifier.
func (p *Package[T]) ID() string { return p.id.Get() }

// PipelineID returns the id of the pipeline this package was submitted
// against. Immutable after construction.
func (p *Package[T]) PipelineID() string { return p.pipelineID.Get() }

// SetID attempts to overwrite the package id. Always returns a
// KindImmutable error: the field is fixed at construction.
func (p *Package[T]) SetID(v string) error { return p.id.Set("id", v) }

// SetPipelineID attempts to overwrite the pipeline id. Always returns a
// KindImmutable error: the field is fixed at construction.
func (p *Package[T]) SetPipelineID(v string) error { return p.pipelineID.Set("pipeline_id", v) }

// AppendController records a ControllerTrace produced by running one of
// the pipeline's controllers against this package.
func (p *Package[T]) AppendController(ct *ControllerTrace) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Controllers = append(p.Controllers, ct)
}

// AppendError appends an error to the package's error list and marks the
// package failed. Per spec §3.2, package.success == false iff errors is
// non-empty, so this and MergeInto are the only paths that flip Success
// to false.
func (p *Package[T]) AppendError(err *perror.Error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Errors = append(p.Errors, err)
	p.Success = false
}

// Finish freezes the package: no further mutation is expected once one
// of the three submitter callbacks has fired (spec §3.3). success is
// only set true here if no error was ever appended.
func (p *Package[T]) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Running = false
	p.EndTime = time.Now()
	p.TotalTime = p.EndTime.Sub(p.StartTime)
	if p.TotalProcessingTime == 0 && p.TotalWaitingTime == 0 {
		p.TotalProcessingTime = p.TotalTime
	}
	if len(p.Errors) == 0 {
		p.Success = true
	}
}

// AddWaiting accumulates time this package spent queued across
// controllers before a worker began processing it.
func (p *Package[T]) AddWaiting(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TotalWaitingTime += d
}

// HasErrors reports whether any error has been recorded on the package,
// matching the package.success ⟺ errors non-empty invariant.
func (p *Package[T]) HasErrors() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Errors) > 0
}

// Clone returns a deep copy of the package, safe to hand across a
// remote-step boundary or to a different goroutine. The clone's id and
// pipeline_id are re-initialized from the source's current values so the
// clone's own immutability guard starts fresh.
func (p *Package[T]) Clone() *Package[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	clone := &Package[T]{
		InstanceID:          p.InstanceID,
		Data:                p.Data,
		Running:             p.Running,
		StartTime:           p.StartTime,
		EndTime:             p.EndTime,
		TotalWaitingTime:    p.TotalWaitingTime,
		TotalProcessingTime: p.TotalProcessingTime,
		TotalTime:           p.TotalTime,
		Success:             p.Success,
	}
	clone.id.init(p.id.Get())
	clone.pipelineID.init(p.pipelineID.Get())
	clone.Controllers = make([]*ControllerTrace, len(p.Controllers))
	for i, c := range p.Controllers {
		clone.Controllers[i] = c.Clone()
	}
	clone.Errors = make([]*perror.Error, len(p.Errors))
	for i, e := range p.Errors {
		clone.Errors[i] = e.Clone()
	}
	return clone
}
