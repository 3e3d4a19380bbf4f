package config

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kranzdev/streampipe/internal/demo"
	"github.com/kranzdev/streampipe/internal/pipeline"
	"github.com/kranzdev/streampipe/internal/trace"
)

const sampleYAML = `
name: test-pipeline
controllers:
  - name: phase1
    mode: ORDER_BY_SEQUENCE
    max_workers: 4
    phases:
      - name: validate-phase
        steps:
          - name: validate
            type: leaf
            kind: validate
  - name: phase2
    mode: NOT_PARALLEL
    phases:
      - name: condition-phase
        steps:
          - name: branch
            type: conditional
            true_branch:
              name: success
              type: leaf
              kind: mark_success
            false_branch:
              name: failure
              type: leaf
              kind: mark_failure
          - name: pad
            type: leaf
            kind: always_true
`

func TestParseAndCompileBuildsRunnablePipeline(t *testing.T) {
	spec, err := Parse(strings.NewReader(sampleYAML))
	require.NoError(t, err)
	require.Len(t, spec.Controllers, 2)

	p, err := Compile(spec, DefaultRegistry(), nil, nil)
	require.NoError(t, err)

	instanceID := p.RegisterInstance()
	defer p.UnregisterInstance(instanceID)

	done := make(chan *trace.Package[demo.Data], 1)
	cb := pipeline.Callbacks[demo.Data]{
		OnSuccess: func(pkg *trace.Package[demo.Data]) { done <- pkg },
		OnExit:    func(pkg *trace.Package[demo.Data]) { done <- pkg },
		OnError:   func(pkg *trace.Package[demo.Data]) { done <- pkg },
	}
	_, err = p.Execute(context.Background(), demo.Data{Key: "abc", Condition: true}, instanceID, cb)
	require.NoError(t, err)

	result := <-done
	assert.True(t, result.Success)
	assert.Equal(t, "success", result.Data.Status)
}

func TestValidateDefaultsOmittedMaxWorkers(t *testing.T) {
	spec, err := Parse(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	err = Validate(spec)
	require.NoError(t, err)

	assert.Equal(t, 4, spec.Controllers[0].MaxWorkers)
	assert.Equal(t, DefaultMaxWorkers, spec.Controllers[1].MaxWorkers)
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	spec := &PipelineSpec{
		Name: "bad",
		Controllers: []ControllerSpec{
			{
				Name: "c1",
				Mode: "SOMETHING_ELSE",
				Phases: []PhaseSpec{
					{Name: "p1", Steps: []StepSpec{{Name: "s1", Type: "leaf", Leaf: &LeafSpec{Kind: "validate"}}}},
				},
			},
		},
	}
	err := Validate(spec)
	require.Error(t, err)
}

func TestValidateRejectsLeafMissingKind(t *testing.T) {
	spec := &PipelineSpec{
		Name: "bad",
		Controllers: []ControllerSpec{
			{
				Name: "c1",
				Mode: "NO_ORDER",
				Phases: []PhaseSpec{
					{Name: "p1", Steps: []StepSpec{{Name: "s1", Type: "leaf"}}},
				},
			},
		},
	}
	err := Validate(spec)
	require.Error(t, err)
}
