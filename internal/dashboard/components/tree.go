package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/kranzdev/streampipe/internal/trace"
)

// TraceTree renders the hierarchical controller/phase/step trace carried
// by a package as indented lines, one per node.
type TraceTree struct {
	Controllers []*trace.ControllerTrace
}

// NewTraceTree wraps the controller traces accumulated on a package so
// far. Safe to call against a package still in flight.
func NewTraceTree(controllers []*trace.ControllerTrace) TraceTree {
	return TraceTree{Controllers: controllers}
}

// Render produces the indented tree as a single string. icon renders the
// running/success glyph for one step; it is injected so this component
// stays free of the caller's styling choices.
func (t TraceTree) Render(icon func(running, success bool) string) string {
	var b strings.Builder
	for _, ct := range t.Controllers {
		fmt.Fprintf(&b, "%s %s (%s, seq %d)\n", icon(ct.Running, !ct.Running), ct.Name, ct.Mode, ct.SequenceNumber)
		for _, pt := range ct.Phases {
			fmt.Fprintf(&b, "  %s %s\n", icon(pt.Running, !pt.Running), pt.Name)
			for _, st := range pt.Steps {
				renderStep(&b, st, icon, 2)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderStep(b *strings.Builder, st *trace.StepTrace, icon func(running, success bool) string, depth int) {
	indent := strings.Repeat("  ", depth)
	line := fmt.Sprintf("%s%s %s", indent, icon(st.Running, st.Success), st.Name)
	if st.Message != "" {
		line = fmt.Sprintf("%s — %s", line, st.Message)
	}
	if st.TotalTime > 0 {
		line = fmt.Sprintf("%s (%s)", line, st.TotalTime.Truncate(time.Millisecond))
	}
	fmt.Fprintln(b, line)
	for _, child := range st.Children {
		renderStep(b, child, icon, depth+1)
	}
}
