package step

import (
	"context"

	"github.com/kranzdev/streampipe/internal/ports"
	"github.com/kranzdev/streampipe/internal/trace"
)

// ConditionFunc decides which branch a Conditional step runs.
type ConditionFunc[T any] func(pkg *trace.Package[T]) bool

// Conditional holds two named children, TrueBranch and FalseBranch, and
// runs exactly one of them as a nested step under its own StepTrace,
// selected by Condition(pkg).
type Conditional[T any] struct {
	Base
	Condition   ConditionFunc[T]
	TrueBranch  Step[T]
	FalseBranch Step[T]
	Metrics     ports.MetricsCollector
}

// NewConditional constructs a Conditional step.
func NewConditional[T any](name string, opts Options, condition ConditionFunc[T], trueBranch, falseBranch Step[T], metrics ports.MetricsCollector) *Conditional[T] {
	return &Conditional[T]{
		Base:        NewBase("conditional", name, opts),
		Condition:   condition,
		TrueBranch:  trueBranch,
		FalseBranch: falseBranch,
		Metrics:     metrics,
	}
}

// Execute runs the selected branch as a nested step and mirrors its
// outcome onto this step's own trace. A branch failure is propagated
// without minting a second Error record — the branch's own Run call
// already appended one to pkg.Errors.
func (c *Conditional[T]) Execute(ctx context.Context, pkg *trace.Package[T], st *trace.StepTrace) error {
	branch := c.FalseBranch
	if c.Condition(pkg) {
		branch = c.TrueBranch
	}
	child := Run(ctx, branch, pkg, st, nil, c.Metrics, nil)
	st.Message = child.Message
	if !child.Success {
		return &propagatedFailure{message: child.Message}
	}
	return nil
}
