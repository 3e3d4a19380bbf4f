// Package controller implements the phase controller scheduler (spec
// §4.3): one scheduling mode, a bounded worker pool, and the
// per-instance sequence counters and ordering state each mode needs.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kranzdev/streampipe/internal/phase"
	"github.com/kranzdev/streampipe/internal/ports"
	"github.com/kranzdev/streampipe/internal/trace"
	"github.com/kranzdev/streampipe/pkg/perror"
)

// Outcome classifies how a package finished its run through a
// controller, mirroring the three callback kinds a pipeline ultimately
// delivers to its caller (spec §4.3, §6.2).
type Outcome int

const (
	// OutcomeSuccess means every phase completed with the package
	// healthy.
	OutcomeSuccess Outcome = iota
	// OutcomeExit means the package was deliberately dropped: a
	// FIRST_WINS cancellation, or the owning instance was unregistered
	// mid-flight.
	OutcomeExit
	// OutcomeError means the package accumulated at least one error.
	OutcomeError
)

// DoneFunc is invoked exactly once per submission, from whichever
// goroutine finishes (or abandons) the package's run through the
// controller.
type DoneFunc[T any] func(outcome Outcome, pkg *trace.Package[T])

// Controller owns one or more phases and one scheduling mode (spec
// §4.3). A single Controller instance is shared by every pipeline
// instance registered against it; per-instance state (sequence
// counters, buffered results, worker-pool semaphore) lives in
// instanceState, keyed by instance id.
type Controller[T any] struct {
	Name       string
	Mode       trace.Mode
	MaxWorkers int
	Phases     []*phase.Phase[T]
	Metrics    ports.MetricsCollector
	Logger     ports.Logger

	mu        sync.Mutex
	instances map[string]*instanceState[T]
}

// New constructs a Controller. maxWorkers == 0 means no worker pool:
// each submission still runs on its own dispatch goroutine, without
// waiting for a worker slot.
func New[T any](name string, mode trace.Mode, maxWorkers int, phases []*phase.Phase[T], metrics ports.MetricsCollector, logger ports.Logger) *Controller[T] {
	return &Controller[T]{
		Name:       name,
		Mode:       mode,
		MaxWorkers: maxWorkers,
		Phases:     phases,
		Metrics:    metrics,
		Logger:     logger,
		instances:  make(map[string]*instanceState[T]),
	}
}

type pendingResult[T any] struct {
	outcome Outcome
	pkg     *trace.Package[T]
}

// instanceState is the per-controller-per-instance lock and bookkeeping
// spec §5 calls out as the only synchronization this component needs
// beyond the per-step mutex: sequence counters, the worker-pool
// semaphore, and the ordering state each mode requires.
type instanceState[T any] struct {
	mu sync.Mutex

	nextSeq int64

	// NOT_PARALLEL: held for the whole run, serializing submissions.
	serial sync.Mutex

	// Bounded worker pool. nil when MaxWorkers == 0 (no worker-slot limit).
	sem chan struct{}

	// ORDER_BY_SEQUENCE: buffer out-of-order completions until the gap
	// to nextToDeliver fills.
	nextToDeliver int64
	buffered      map[int64]pendingResult[T]

	// FIRST_WINS: only deliver the highest sequence seen so far; cancel
	// anything still queued with a lower sequence number.
	lastDelivered int64
	cancels       map[int64]context.CancelFunc
}

func newInstanceState[T any](maxWorkers int) *instanceState[T] {
	st := &instanceState[T]{
		buffered:      make(map[int64]pendingResult[T]),
		cancels:       make(map[int64]context.CancelFunc),
		lastDelivered: -1,
	}
	if maxWorkers > 0 {
		st.sem = make(chan struct{}, maxWorkers)
	}
	return st
}

// RegisterInstance creates fresh per-instance state: sequence counters
// start at 0, per spec §3.2.
func (c *Controller[T]) RegisterInstance(instanceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instances[instanceID] = newInstanceState[T](c.MaxWorkers)
}

// UnregisterInstance drops the instance's slot. Submissions already
// in-flight are not interrupted; the running goroutines detect the
// missing slot and deliver OutcomeExit instead of their natural outcome.
// Later Submit calls for the instance return a KindUnknownInstance error.
func (c *Controller[T]) UnregisterInstance(instanceID string) {
	c.mu.Lock()
	delete(c.instances, instanceID)
	c.mu.Unlock()
}

func (c *Controller[T]) instanceFor(instanceID string) (*instanceState[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.instances[instanceID]
	return st, ok
}

func (c *Controller[T]) stillRegistered(instanceID string) bool {
	_, ok := c.instanceFor(instanceID)
	return ok
}

// Submit assigns the package a monotonic sequence number under the
// instance's lock — assignment order equals submission order, per spec
// §5 — then dispatches it according to the controller's mode. done
// fires exactly once for this submission.
func (c *Controller[T]) Submit(ctx context.Context, pkg *trace.Package[T], instanceID string, done DoneFunc[T]) error {
	inst, ok := c.instanceFor(instanceID)
	if !ok {
		return perror.New(perror.KindUnknownInstance, instanceID, fmt.Errorf("unknown pipeline instance %q", instanceID))
	}

	inst.mu.Lock()
	seq := inst.nextSeq
	inst.nextSeq++
	inst.mu.Unlock()

	ct := trace.NewControllerTrace(c.Name, c.Mode, c.MaxWorkers, seq)
	pkg.AppendController(ct)

	if c.Logger != nil {
		c.Logger.Debug(ctx, "submission accepted", "component", "controller", "controller_id", c.Name, "instance_id", instanceID, "seq", seq)
	}

	switch c.Mode {
	case trace.NotParallel:
		c.runNotParallel(ctx, inst, pkg, ct, instanceID, done)
	case trace.OrderBySequence:
		c.runOrderBySequence(ctx, inst, pkg, ct, seq, instanceID, done)
	case trace.FirstWins:
		c.runFirstWins(ctx, inst, pkg, ct, seq, instanceID, done)
	default:
		c.runNoOrder(ctx, inst, pkg, ct, instanceID, done)
	}
	return nil
}

// execute drives the package through every phase in order, stopping at
// the first phase that leaves it failed (spec §4.3: "failures inside a
// phase abort subsequent phases in the same controller").
func (c *Controller[T]) execute(ctx context.Context, pkg *trace.Package[T], ct *trace.ControllerTrace) Outcome {
	for _, p := range c.Phases {
		pt := p.Run(ctx, pkg, c.Metrics, c.Logger)
		ct.AppendPhase(pt)
		if pkg.HasErrors() {
			ct.Finish()
			c.log(ctx, false, "controller run failed", "phase", p.Name)
			return OutcomeError
		}
	}
	ct.Finish()
	c.log(ctx, true, "controller run succeeded")
	return OutcomeSuccess
}

// log emits a lifecycle event if c.Logger is set; a no-op otherwise.
func (c *Controller[T]) log(ctx context.Context, success bool, msg string, fields ...interface{}) {
	if c.Logger == nil {
		return
	}
	base := append([]interface{}{"component", "controller", "controller_id", c.Name}, fields...)
	if success {
		c.Logger.Info(ctx, msg, base...)
	} else {
		c.Logger.Warn(ctx, msg, base...)
	}
}

func (c *Controller[T]) reportOutcome(ctx context.Context, outcome Outcome, waited time.Duration) {
	if c.Metrics == nil {
		return
	}
	status := "success"
	switch outcome {
	case OutcomeExit:
		status = "cancelled"
	case OutcomeError:
		status = "failure"
	}
	labels := map[string]string{"controller_id": c.Name, "status": status}
	c.Metrics.IncCounter(ctx, "streampipe_controller_submissions_total", labels)
	c.Metrics.ObserveHistogram(ctx, "streampipe_controller_waiting_seconds", waited.Seconds(), map[string]string{"controller_id": c.Name})
}

func (c *Controller[T]) reportQueueDepth(ctx context.Context, inst *instanceState[T]) {
	if c.Metrics == nil || inst.sem == nil {
		return
	}
	c.Metrics.SetGauge(ctx, "streampipe_controller_active_workers", float64(len(inst.sem)), map[string]string{"controller_id": c.Name})
}

// runNotParallel, like the other three modes, dispatches from a fresh
// goroutine so Submit (and therefore Pipeline.Execute) returns to its
// caller without blocking on this controller's run (spec §4.5). It
// additionally serializes on inst.serial so at most one package is ever
// mid-flight per instance, on top of the worker-pool bound every mode
// shares.
func (c *Controller[T]) runNotParallel(ctx context.Context, inst *instanceState[T], pkg *trace.Package[T], ct *trace.ControllerTrace, instanceID string, done DoneFunc[T]) {
	c.reportQueueDepth(ctx, inst)
	go func() {
		release, waited, cancelled := c.acquire(ctx, inst)
		if cancelled {
			c.reportOutcome(ctx, OutcomeExit, waited)
			done(OutcomeExit, pkg)
			return
		}
		defer release()

		waitStart := time.Now()
		inst.serial.Lock()
		defer inst.serial.Unlock()
		waited += time.Since(waitStart)
		ct.AddWaiting(waited)

		outcome := c.execute(ctx, pkg, ct)
		if !c.stillRegistered(instanceID) {
			c.reportOutcome(ctx, OutcomeExit, waited)
			done(OutcomeExit, pkg)
			return
		}
		c.reportOutcome(ctx, outcome, waited)
		done(outcome, pkg)
	}()
}

// acquire blocks for a worker-pool slot, honoring ctx cancellation so
// FIRST_WINS can cancel work still queued behind the pool (spec §4.3,
// §5). A nil semaphore (MaxWorkers == 0) always succeeds immediately.
func (c *Controller[T]) acquire(ctx context.Context, inst *instanceState[T]) (release func(), waited time.Duration, cancelled bool) {
	if inst.sem == nil {
		return func() {}, 0, false
	}
	start := time.Now()
	select {
	case inst.sem <- struct{}{}:
		return func() { <-inst.sem }, time.Since(start), false
	case <-ctx.Done():
		return func() {}, time.Since(start), true
	}
}

func (c *Controller[T]) runNoOrder(ctx context.Context, inst *instanceState[T], pkg *trace.Package[T], ct *trace.ControllerTrace, instanceID string, done DoneFunc[T]) {
	c.reportQueueDepth(ctx, inst)
	go func() {
		release, waited, cancelled := c.acquire(ctx, inst)
		if cancelled {
			c.reportOutcome(ctx, OutcomeExit, waited)
			done(OutcomeExit, pkg)
			return
		}
		defer release()
		ct.AddWaiting(waited)

		outcome := c.execute(ctx, pkg, ct)
		if !c.stillRegistered(instanceID) {
			c.reportOutcome(ctx, OutcomeExit, waited)
			done(OutcomeExit, pkg)
			return
		}
		c.reportOutcome(ctx, outcome, waited)
		done(outcome, pkg)
	}()
}

func (c *Controller[T]) runOrderBySequence(ctx context.Context, inst *instanceState[T], pkg *trace.Package[T], ct *trace.ControllerTrace, seq int64, instanceID string, done DoneFunc[T]) {
	c.reportQueueDepth(ctx, inst)
	go func() {
		release, waited, cancelled := c.acquire(ctx, inst)
		if cancelled {
			c.reportOutcome(ctx, OutcomeExit, waited)
			done(OutcomeExit, pkg)
			return
		}
		defer release()
		ct.AddWaiting(waited)

		outcome := c.execute(ctx, pkg, ct)
		if !c.stillRegistered(instanceID) {
			outcome = OutcomeExit
		}
		c.reportOutcome(ctx, outcome, waited)

		inst.mu.Lock()
		defer inst.mu.Unlock()
		inst.buffered[seq] = pendingResult[T]{outcome: outcome, pkg: pkg}
		for {
			res, ok := inst.buffered[inst.nextToDeliver]
			if !ok {
				break
			}
			delete(inst.buffered, inst.nextToDeliver)
			inst.nextToDeliver++
			done(res.outcome, res.pkg)
		}
	}()
}

func (c *Controller[T]) runFirstWins(ctx context.Context, inst *instanceState[T], pkg *trace.Package[T], ct *trace.ControllerTrace, seq int64, instanceID string, done DoneFunc[T]) {
	runCtx, cancel := context.WithCancel(ctx)

	inst.mu.Lock()
	inst.cancels[seq] = cancel
	inst.mu.Unlock()
	c.reportQueueDepth(ctx, inst)

	go func() {
		release, waited, cancelled := c.acquire(runCtx, inst)

		inst.mu.Lock()
		delete(inst.cancels, seq)
		alreadySuperseded := seq <= inst.lastDelivered
		inst.mu.Unlock()

		if cancelled || alreadySuperseded {
			c.reportOutcome(ctx, OutcomeExit, waited)
			done(OutcomeExit, pkg)
			return
		}
		defer release()
		ct.AddWaiting(waited)

		outcome := c.execute(runCtx, pkg, ct)

		inst.mu.Lock()
		if seq <= inst.lastDelivered || !c.stillRegistered(instanceID) {
			inst.mu.Unlock()
			c.reportOutcome(ctx, OutcomeExit, waited)
			done(OutcomeExit, pkg)
			return
		}
		inst.lastDelivered = seq
		for queuedSeq, queuedCancel := range inst.cancels {
			if queuedSeq <= seq {
				queuedCancel()
				delete(inst.cancels, queuedSeq)
			}
		}
		inst.mu.Unlock()

		c.reportOutcome(ctx, outcome, waited)
		done(outcome, pkg)
	}()
}
