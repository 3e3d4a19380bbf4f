// Package pipeline implements the top-level orchestration object (spec
// §4.5): an immutable ordered list of controllers, instance lifecycle,
// and the exactly-once callback guarantee across a package's full
// traversal.
package pipeline

import (
	"context"

	"github.com/kranzdev/streampipe/internal/controller"
	"github.com/kranzdev/streampipe/internal/ids"
	"github.com/kranzdev/streampipe/internal/ports"
	"github.com/kranzdev/streampipe/internal/trace"
	"github.com/kranzdev/streampipe/pkg/perror"
)

// Callbacks are the three completion handlers a submitter registers
// against one call to Execute. Exactly one fires per submission (spec
// §4.5, §6.2).
type Callbacks[T any] struct {
	OnSuccess func(pkg *trace.Package[T])
	OnExit    func(pkg *trace.Package[T])
	OnError   func(pkg *trace.Package[T])
}

// Pipeline holds an immutable ordered list of controllers and the set of
// registered instances. A package always visits controllers in this
// declared order; a controller's own mode governs how it schedules
// concurrently submitted packages (spec §4.3, §5).
type Pipeline[T any] struct {
	id          string
	controllers []*controller.Controller[T]
	logger      ports.Logger

	instances map[string]struct{}
}

// New constructs a Pipeline over the given ordered controllers.
func New[T any](controllers []*controller.Controller[T], logger ports.Logger) *Pipeline[T] {
	return &Pipeline[T]{
		id:          ids.New("Pipeline"),
		controllers: controllers,
		logger:      logger,
		instances:   make(map[string]struct{}),
	}
}

// ID returns the pipeline's stable identifier, stamped onto every
// package submitted against it.
func (p *Pipeline[T]) ID() string { return p.id }

// RegisterInstance creates a new instance with fresh sequence counters
// in every controller and returns its id.
func (p *Pipeline[T]) RegisterInstance() string {
	instanceID := ids.New("Instance")
	p.instances[instanceID] = struct{}{}
	for _, c := range p.controllers {
		c.RegisterInstance(instanceID)
	}
	return instanceID
}

// UnregisterInstance drops the instance's slot in every controller.
// Packages already in flight under this instance complete normally but
// are delivered to their submitter's on_exit callback.
func (p *Pipeline[T]) UnregisterInstance(instanceID string) {
	delete(p.instances, instanceID)
	for _, c := range p.controllers {
		c.UnregisterInstance(instanceID)
	}
}

// Execute constructs the package, drives it through every controller in
// declared order, and returns it synchronously — it may still be
// running; callbacks fire later from a controller worker goroutine.
// Exactly one of on_success/on_exit/on_error fires per call.
func (p *Pipeline[T]) Execute(ctx context.Context, data T, instanceID string, cb Callbacks[T]) (*trace.Package[T], error) {
	pkg := trace.NewPackage(p.id, instanceID, data)

	if _, ok := p.instances[instanceID]; !ok {
		err := perror.New(perror.KindUnknownInstance, instanceID, nil)
		pkg.AppendError(err)
		pkg.Finish()
		if cb.OnError != nil {
			cb.OnError(pkg)
		}
		return pkg, err
	}

	p.runFrom(ctx, pkg, instanceID, 0, cb)
	return pkg, nil
}

// runFrom submits pkg to controllers[idx:] in order, chaining the next
// controller's submission from the previous one's completion callback.
func (p *Pipeline[T]) runFrom(ctx context.Context, pkg *trace.Package[T], instanceID string, idx int, cb Callbacks[T]) {
	if idx >= len(p.controllers) {
		pkg.Finish()
		p.logCompletion(ctx, instanceID, "success")
		if cb.OnSuccess != nil {
			cb.OnSuccess(pkg)
		}
		return
	}

	c := p.controllers[idx]
	err := c.Submit(ctx, pkg, instanceID, func(outcome controller.Outcome, pkg *trace.Package[T]) {
		switch outcome {
		case controller.OutcomeSuccess:
			p.runFrom(ctx, pkg, instanceID, idx+1, cb)
		case controller.OutcomeExit:
			pkg.Finish()
			p.logCompletion(ctx, instanceID, "exit")
			if cb.OnExit != nil {
				cb.OnExit(pkg)
			}
		default:
			pkg.Finish()
			p.logCompletion(ctx, instanceID, "error")
			if cb.OnError != nil {
				cb.OnError(pkg)
			}
		}
	})
	if err != nil {
		perr, ok := err.(*perror.Error)
		if !ok {
			perr = perror.New(perror.KindUnknownInstance, instanceID, err)
		}
		pkg.AppendError(perr)
		pkg.Finish()
		p.logCompletion(ctx, instanceID, "error")
		if cb.OnError != nil {
			cb.OnError(pkg)
		}
	}
}

// logCompletion emits the pipeline-level terminal event if p.logger is
// set; a no-op otherwise.
func (p *Pipeline[T]) logCompletion(ctx context.Context, instanceID, outcome string) {
	if p.logger == nil {
		return
	}
	p.logger.Info(ctx, "pipeline run completed", "component", "pipeline", "pipeline_id", p.id, "instance_id", instanceID, "outcome", outcome)
}
