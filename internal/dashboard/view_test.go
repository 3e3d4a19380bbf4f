package dashboard

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kranzdev/streampipe/internal/demo"
	"github.com/kranzdev/streampipe/internal/trace"
)

func TestViewRendersPipelineNameAndProgress(t *testing.T) {
	m := NewModel("demo-pipeline", 2)
	view := m.View()
	require.Contains(t, view, "demo-pipeline")
	require.Contains(t, view, "0/2 controllers")
}

func TestViewRendersTraceTreeOncePackageArrives(t *testing.T) {
	pkg := trace.NewPackage("pipeline-1", "instance-1", demo.Data{Key: "a"})
	ct := trace.NewControllerTrace("validation", trace.OrderBySequence, 4, 1)
	pt := trace.NewPhaseTrace("intake")
	st := trace.NewStepTrace("M-validate-1", "validate")
	st.Finish(true, "validated", nil)
	pt.AppendStep(st)
	pt.Finish()
	ct.AppendPhase(pt)
	ct.Finish()
	pkg.AppendController(ct)

	m := NewModel("demo-pipeline", 1)
	updated, _ := m.Update(PackageUpdateMsg{Pkg: pkg})
	m = updated.(Model)

	view := m.View()
	require.Contains(t, view, "validation")
	require.Contains(t, view, "intake")
	require.Contains(t, view, "validate")
	require.Contains(t, view, "validated")
}

func TestViewShowsResultSummaryWhenFinished(t *testing.T) {
	pkg := trace.NewPackage("pipeline-1", "instance-1", demo.Data{Key: "a"})
	pkg.Finish()

	m := NewModel("demo-pipeline", 0)
	updated, _ := m.Update(PackageUpdateMsg{Pkg: pkg})
	m = updated.(Model)

	view := m.View()
	require.Contains(t, view, "SUCCESS")
}
