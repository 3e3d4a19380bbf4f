package step

import (
	"context"

	"github.com/kranzdev/streampipe/internal/trace"
)

// RemoteCaller performs the RPC round trip for a Remote step: marshal
// pkg and parent, invoke the peer's ModuleService.Run, and merge the
// response back into pkg (spec §4.2). internal/remoterpc.Client
// satisfies this interface structurally; step does not import it, to
// keep the transport concern out of the step polymorphism concern.
type RemoteCaller[T any] interface {
	Call(ctx context.Context, pkg *trace.Package[T], parent *trace.StepTrace) error
}

// Remote is a leaf whose execute body delegates to an RPC peer instead
// of running in-process.
type Remote[T any] struct {
	Base
	Caller RemoteCaller[T]
}

// NewRemote constructs a Remote step bound to the given caller.
func NewRemote[T any](name string, opts Options, caller RemoteCaller[T]) *Remote[T] {
	return &Remote[T]{Base: NewBase("remote", name, opts), Caller: caller}
}

// Execute invokes the RPC peer and merges its response into pkg. On
// failure the returned error is whatever the caller reconstituted from
// the peer's reported Error (keeping the Kind the peer gave it), or a
// transport-level error.
func (r *Remote[T]) Execute(ctx context.Context, pkg *trace.Package[T], st *trace.StepTrace) error {
	if err := r.Caller.Call(ctx, pkg, st); err != nil {
		return err
	}
	if st.Message == "" {
		st.Message = "remote execution complete"
	}
	return nil
}
