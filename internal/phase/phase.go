// Package phase implements the thin ordered step list executed as a
// unit within a controller (spec §4.4). Phases do not own concurrency;
// their owning controller does.
package phase

import (
	"context"

	"github.com/kranzdev/streampipe/internal/ports"
	"github.com/kranzdev/streampipe/internal/step"
	"github.com/kranzdev/streampipe/internal/trace"
)

// Phase is an ordered list of steps.
type Phase[T any] struct {
	Name  string
	Steps []step.Step[T]
}

// New constructs a Phase with the given ordered steps.
func New[T any](name string, steps ...step.Step[T]) *Phase[T] {
	return &Phase[T]{Name: name, Steps: steps}
}

// Run executes the phase: create a PhaseTrace, mark it running, run each
// step via its uniform Run contract, then mark it finished and stamp
// timing. Returns the finished PhaseTrace; the step loop stops after the
// first step whose trace reports failure. logger may be nil.
func (p *Phase[T]) Run(ctx context.Context, pkg *trace.Package[T], metrics ports.MetricsCollector, logger ports.Logger) *trace.PhaseTrace {
	pt := trace.NewPhaseTrace(p.Name)
	for _, s := range p.Steps {
		st := step.Run(ctx, s, pkg, nil, pt, metrics, logger)
		if !st.Success {
			// Short-circuit within the phase: a failed step marks the
			// package failed, and subsequent steps in this phase would
			// only ever be reached via composite-step short-circuiting
			// (spec §4.1 applies to composites, not top-level phase
			// lists) — but a failed package should not continue
			// spending work in the same phase either.
			if logger != nil {
				logger.Debug(ctx, "phase short-circuited on failed step", "component", "phase", "phase", p.Name, "step_id", st.ID)
			}
			break
		}
	}
	pt.Finish()
	if logger != nil {
		logger.Info(ctx, "phase finished", "component", "phase", "phase", p.Name, "duration_ms", pt.ProcessingTime.Milliseconds())
	}
	return pt
}
