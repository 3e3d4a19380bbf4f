package phase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kranzdev/streampipe/internal/step"
	"github.com/kranzdev/streampipe/internal/trace"
)

func recordingLeaf(id string, ran *[]string, fail bool) step.Step[map[string]string] {
	return step.NewLeaf[map[string]string](id, id, step.DefaultOptions(), func(ctx context.Context, pkg *trace.Package[map[string]string], st *trace.StepTrace) error {
		*ran = append(*ran, id)
		if fail {
			return errors.New("boom")
		}
		st.Message = "ok"
		return nil
	})
}

func TestPhaseRunShortCircuitsOnFirstFailedStep(t *testing.T) {
	var ran []string
	p := New[map[string]string]("p1",
		recordingLeaf("first", &ran, false),
		recordingLeaf("second", &ran, true),
		recordingLeaf("third", &ran, false),
	)
	pkg := trace.NewPackage("pipe", "inst-1", map[string]string{})

	pt := p.Run(context.Background(), pkg, nil, nil)

	assert.Equal(t, []string{"first", "second"}, ran)
	require.Len(t, pt.Steps, 2)
	assert.True(t, pt.Steps[0].Success)
	assert.False(t, pt.Steps[1].Success)
	assert.False(t, pt.Running)
	assert.True(t, pkg.HasErrors())
}

func TestPhaseRunExecutesEveryStepWhenAllSucceed(t *testing.T) {
	var ran []string
	p := New[map[string]string]("p1",
		recordingLeaf("first", &ran, false),
		recordingLeaf("second", &ran, false),
	)
	pkg := trace.NewPackage("pipe", "inst-1", map[string]string{})

	pt := p.Run(context.Background(), pkg, nil, nil)

	assert.Equal(t, []string{"first", "second"}, ran)
	require.Len(t, pt.Steps, 2)
	assert.False(t, pkg.HasErrors())
}
