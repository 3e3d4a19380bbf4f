package trace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kranzdev/streampipe/pkg/perror"
)

func TestPackageImmutableFields(t *testing.T) {
	pkg := NewPackage("pipe-1", "inst-1", map[string]string{"key": "abc"})

	origID := pkg.ID()
	origPipelineID := pkg.PipelineID()

	err := pkg.SetID("different-id")
	require.Error(t, err)
	perr, ok := err.(*perror.Error)
	require.True(t, ok)
	assert.Equal(t, perror.KindImmutable, perr.Kind)
	assert.Equal(t, origID, pkg.ID())

	err = pkg.SetPipelineID("different-pipeline")
	require.Error(t, err)
	assert.Equal(t, origPipelineID, pkg.PipelineID())
}

func TestPackageSuccessErrorsInvariant(t *testing.T) {
	pkg := NewPackage("pipe-1", "inst-1", "payload")
	pkg.Finish()
	assert.True(t, pkg.Success)
	assert.False(t, pkg.HasErrors())

	pkg2 := NewPackage("pipe-1", "inst-2", "payload")
	pkg2.AppendError(perror.New(perror.KindExecution, "step-1", assertErr{}))
	pkg2.Finish()
	assert.False(t, pkg2.Success)
	assert.True(t, pkg2.HasErrors())
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestStepTraceTimingIdentity(t *testing.T) {
	st := NewStepTrace("M-leaf-1", "leaf")
	st.AddWaiting(10 * time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	st.Finish(true, "ok", nil)

	assert.Equal(t, st.WaitingTime+st.ProcessingTime, st.TotalTime)
}

func TestStepTraceTimeoutSuppressesLateFinish(t *testing.T) {
	st := NewStepTrace("M-leaf-1", "leaf")
	timeoutErr := perror.New(perror.KindTimeout, "leaf", nil)
	st.MarkTimedOut(timeoutErr)

	assert.True(t, st.TimedOut())
	assert.False(t, st.Success)

	// A late write from the still-running execute body must not override
	// the timeout outcome.
	st.Finish(true, "late success", nil)
	assert.False(t, st.Success)
	assert.Equal(t, timeoutErr, st.Err)
}

func TestMergeIntoPreservesIdentityAndMergesById(t *testing.T) {
	pkg := NewPackage("pipe-1", "inst-1", "payload")
	localCtl := NewControllerTrace("c1", NotParallel, 0, 0)
	pkg.AppendController(localCtl)

	remoteCtl := localCtl.Clone()
	remoteCtl.Running = false
	remotePhase := NewPhaseTrace("p1")
	remoteCtl.Phases = append(remoteCtl.Phases, remotePhase)

	newCtl := NewControllerTrace("c2", NotParallel, 0, 1)

	MergeInto(pkg, []*ControllerTrace{remoteCtl, newCtl}, nil)

	require.Len(t, pkg.Controllers, 2)
	assert.Equal(t, localCtl.ID, pkg.Controllers[0].ID)
	assert.False(t, pkg.Controllers[0].Running)
	require.Len(t, pkg.Controllers[0].Phases, 1)
	assert.Equal(t, "pipe-1", pkg.PipelineID())
}

func TestMergeIntoMergesErrorsById(t *testing.T) {
	pkg := NewPackage("pipe-1", "inst-1", "payload")
	localErr := perror.New(perror.KindExecution, "s1", nil)
	pkg.AppendError(localErr)

	remoteErr := perror.New(perror.KindRemote, "peer", nil)

	MergeInto[string](pkg, nil, []*perror.Error{remoteErr})

	require.Len(t, pkg.Errors, 2)
	assert.False(t, pkg.Success)
}

func TestMergeStepChildrenAddsRemoteChildById(t *testing.T) {
	local := NewStepTrace("M-remote-1", "remote")
	existing := NewStepTrace("M-leaf-0", "already-there")
	local.AppendStep(existing)

	hosted := NewStepTrace("M-leaf-1", "hosted")
	hosted.Finish(true, "done remotely", nil)

	MergeStepChildren(local, []*StepTrace{hosted})

	require.Len(t, local.Children, 2)
	assert.Equal(t, "hosted", local.Children[1].Name)
	assert.Equal(t, "done remotely", local.Children[1].Message)
}
