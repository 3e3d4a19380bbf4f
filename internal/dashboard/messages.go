package dashboard

import (
	"github.com/kranzdev/streampipe/internal/demo"
	"github.com/kranzdev/streampipe/internal/trace"
)

// TickMsg drives periodic re-render while a package is still in flight.
type TickMsg struct{}

// PackageUpdateMsg carries the latest observed state of the package
// being executed. The CLI sends one of these whenever it has a newer
// snapshot to show (currently: once, on completion — the pipeline only
// reports finished packages through its callbacks, so step-level
// progress isn't streamed).
type PackageUpdateMsg struct {
	Pkg *trace.Package[demo.Data]
}
