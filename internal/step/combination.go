package step

import (
	"context"

	"github.com/kranzdev/streampipe/internal/ports"
	"github.com/kranzdev/streampipe/internal/trace"
)

// Combination runs an ordered list of children under its own StepTrace,
// passing the same package to each in turn, and stops at the first
// child that leaves the package failed (spec §4.1).
type Combination[T any] struct {
	Base
	Children []Step[T]
	Metrics  ports.MetricsCollector
}

// NewCombination constructs a Combination step.
func NewCombination[T any](name string, opts Options, children []Step[T], metrics ports.MetricsCollector) *Combination[T] {
	return &Combination[T]{
		Base:     NewBase("combination", name, opts),
		Children: children,
		Metrics:  metrics,
	}
}

// Execute runs each child in order, short-circuiting on the first
// failure.
func (c *Combination[T]) Execute(ctx context.Context, pkg *trace.Package[T], st *trace.StepTrace) error {
	for _, child := range c.Children {
		ct := Run(ctx, child, pkg, st, nil, c.Metrics, nil)
		st.Message = ct.Message
		if !ct.Success {
			return &propagatedFailure{message: ct.Message}
		}
	}
	return nil
}

// propagatedFailure signals that a composite step should finalize as
// failed because a child already failed and recorded its own Error —
// finalize recognizes this type and does not mint a duplicate Error.
type propagatedFailure struct {
	message string
}

func (p *propagatedFailure) Error() string { return p.message }
