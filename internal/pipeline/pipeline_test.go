package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kranzdev/streampipe/internal/controller"
	"github.com/kranzdev/streampipe/internal/phase"
	"github.com/kranzdev/streampipe/internal/step"
	"github.com/kranzdev/streampipe/internal/trace"
)

func buildLinearPipeline(t *testing.T) (*Pipeline[map[string]string], string) {
	t.Helper()

	validate := step.NewLeaf[map[string]string]("validate", "Validate", step.DefaultOptions(), func(ctx context.Context, pkg *trace.Package[map[string]string], st *trace.StepTrace) error {
		if pkg.Data["key"] == "" {
			return errors.New("validation failed: key missing")
		}
		st.Message = "valid"
		return nil
	})
	upper := step.NewLeaf[map[string]string]("upper", "Upper", step.DefaultOptions(), func(ctx context.Context, pkg *trace.Package[map[string]string], st *trace.StepTrace) error {
		pkg.Data["key"] = strings.ToUpper(pkg.Data["key"])
		st.Message = "uppercased"
		return nil
	})

	c1 := controller.New[map[string]string]("C1", trace.NotParallel, 0, []*phase.Phase[map[string]string]{phase.New[map[string]string]("P1", validate)}, nil, nil)
	c2 := controller.New[map[string]string]("C2", trace.NotParallel, 0, []*phase.Phase[map[string]string]{phase.New[map[string]string]("P1", upper)}, nil, nil)

	p := New[map[string]string]([]*controller.Controller[map[string]string]{c1, c2}, nil)
	inst := p.RegisterInstance()
	return p, inst
}

func TestPipelineLinearHappyPath(t *testing.T) {
	p, inst := buildLinearPipeline(t)

	var wg sync.WaitGroup
	wg.Add(1)
	var result *trace.Package[map[string]string]
	_, err := p.Execute(context.Background(), map[string]string{"key": "abc"}, inst, Callbacks[map[string]string]{
		OnSuccess: func(pkg *trace.Package[map[string]string]) {
			result = pkg
			wg.Done()
		},
		OnError: func(pkg *trace.Package[map[string]string]) { wg.Done() },
	})
	require.NoError(t, err)
	wg.Wait()

	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.Equal(t, "ABC", result.Data["key"])
	require.Len(t, result.Controllers, 2)
}

func TestPipelineValidationFailureSkipsSubsequentControllers(t *testing.T) {
	p, inst := buildLinearPipeline(t)

	var wg sync.WaitGroup
	wg.Add(1)
	var result *trace.Package[map[string]string]
	_, err := p.Execute(context.Background(), map[string]string{"key": ""}, inst, Callbacks[map[string]string]{
		OnSuccess: func(pkg *trace.Package[map[string]string]) { wg.Done() },
		OnError: func(pkg *trace.Package[map[string]string]) {
			result = pkg
			wg.Done()
		},
	})
	require.NoError(t, err)
	wg.Wait()

	require.NotNil(t, result)
	assert.False(t, result.Success)
	require.Len(t, result.Controllers, 1, "second controller must be skipped")
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "key missing")
}

func TestPipelineUnknownInstanceRoutesToErrorCallback(t *testing.T) {
	p, _ := buildLinearPipeline(t)

	var called bool
	_, err := p.Execute(context.Background(), map[string]string{"key": "abc"}, "no-such-instance", Callbacks[map[string]string]{
		OnError: func(pkg *trace.Package[map[string]string]) { called = true },
	})
	require.Error(t, err)
	assert.True(t, called)
}

func TestPipelineUnregisterInstanceDeliversExit(t *testing.T) {
	validate := step.NewLeaf[map[string]string]("slow", "Slow", step.DefaultOptions(), func(ctx context.Context, pkg *trace.Package[map[string]string], st *trace.StepTrace) error {
		time.Sleep(30 * time.Millisecond)
		return nil
	})
	c := controller.New[map[string]string]("C1", trace.NoOrder, 2, []*phase.Phase[map[string]string]{phase.New[map[string]string]("P1", validate)}, nil, nil)
	p := New[map[string]string]([]*controller.Controller[map[string]string]{c}, nil)
	inst := p.RegisterInstance()

	var wg sync.WaitGroup
	wg.Add(1)
	var exited bool
	_, err := p.Execute(context.Background(), map[string]string{"key": "abc"}, inst, Callbacks[map[string]string]{
		OnSuccess: func(pkg *trace.Package[map[string]string]) { wg.Done() },
		OnExit: func(pkg *trace.Package[map[string]string]) {
			exited = true
			wg.Done()
		},
	})
	require.NoError(t, err)
	p.UnregisterInstance(inst)
	wg.Wait()

	assert.True(t, exited)
}
