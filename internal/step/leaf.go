package step

import (
	"context"

	"github.com/kranzdev/streampipe/internal/trace"
)

// ExecuteFunc is the user-supplied body of a leaf step: it reads and
// writes the payload and sets st.Message to describe the outcome.
// Failure is signaled by returning a non-nil error, Go's equivalent of
// the source's "raise an exception or set success=false" — Run treats
// any returned error as the step's failure and a nil return as success.
type ExecuteFunc[T any] func(ctx context.Context, pkg *trace.Package[T], st *trace.StepTrace) error

// Leaf is the simplest step variant: a direct execute body with no
// children.
type Leaf[T any] struct {
	Base
	fn ExecuteFunc[T]
}

// NewLeaf constructs a Leaf step. stepType names the leaf's kind for its
// generated id (e.g. "validate", "upper"); name is an optional display
// name, defaulting to the id when empty.
func NewLeaf[T any](stepType, name string, opts Options, fn ExecuteFunc[T]) *Leaf[T] {
	return &Leaf[T]{Base: NewBase(stepType, name, opts), fn: fn}
}

// Execute runs the leaf's body.
func (l *Leaf[T]) Execute(ctx context.Context, pkg *trace.Package[T], st *trace.StepTrace) error {
	return l.fn(ctx, pkg, st)
}
