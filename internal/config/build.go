package config

import (
	"fmt"
	"time"

	"github.com/kranzdev/streampipe/internal/controller"
	"github.com/kranzdev/streampipe/internal/demo"
	"github.com/kranzdev/streampipe/internal/demo/steps"
	"github.com/kranzdev/streampipe/internal/phase"
	pipelinepkg "github.com/kranzdev/streampipe/internal/pipeline"
	"github.com/kranzdev/streampipe/internal/ports"
	"github.com/kranzdev/streampipe/internal/remoterpc"
	"github.com/kranzdev/streampipe/internal/step"
	"github.com/kranzdev/streampipe/internal/trace"
	"github.com/kranzdev/streampipe/pkg/perror"
)

// Compile builds a runtime pipeline.Pipeline[demo.Data] from spec,
// resolving leaf kinds through registry. This is the Go analogue of
// the teacher's plugin registry driving config-to-runtime compilation,
// generalized from "system steps" to "pipeline steps".
func Compile(spec *PipelineSpec, registry map[string]LeafBuilder, metrics ports.MetricsCollector, logger ports.Logger) (*pipelinepkg.Pipeline[demo.Data], error) {
	if err := Validate(spec); err != nil {
		return nil, err
	}

	controllers := make([]*controller.Controller[demo.Data], 0, len(spec.Controllers))
	for _, ctrlSpec := range spec.Controllers {
		ctrl, err := buildController(ctrlSpec, registry, metrics, logger)
		if err != nil {
			return nil, err
		}
		controllers = append(controllers, ctrl)
	}

	return pipelinepkg.New(controllers, logger), nil
}

func buildController(spec ControllerSpec, registry map[string]LeafBuilder, metrics ports.MetricsCollector, logger ports.Logger) (*controller.Controller[demo.Data], error) {
	phases := make([]*phase.Phase[demo.Data], 0, len(spec.Phases))
	for _, phaseSpec := range spec.Phases {
		stepList := make([]step.Step[demo.Data], 0, len(phaseSpec.Steps))
		for _, stepSpec := range phaseSpec.Steps {
			built, err := buildStep(stepSpec, registry, metrics)
			if err != nil {
				return nil, err
			}
			stepList = append(stepList, built)
		}
		phases = append(phases, phase.New(phaseSpec.Name, stepList...))
	}
	return controller.New(spec.Name, trace.Mode(spec.Mode), spec.MaxWorkers, phases, metrics, logger), nil
}

func buildStep(spec StepSpec, registry map[string]LeafBuilder, metrics ports.MetricsCollector) (step.Step[demo.Data], error) {
	opts := step.Options{UseMutex: true}
	if spec.UseMutex != nil {
		opts.UseMutex = *spec.UseMutex
	}
	if spec.Timeout > 0 {
		opts.Timeout = time.Duration(spec.Timeout * float64(time.Second))
	}

	switch spec.Type {
	case "leaf":
		return buildLeaf(spec, opts, registry)
	case "conditional":
		trueBranch, err := buildStep(spec.Conditional.TrueBranch, registry, metrics)
		if err != nil {
			return nil, err
		}
		falseBranch, err := buildStep(spec.Conditional.FalseBranch, registry, metrics)
		if err != nil {
			return nil, err
		}
		return step.NewConditional[demo.Data](spec.Name, opts, steps.Condition, trueBranch, falseBranch, metrics), nil
	case "combination":
		children := make([]step.Step[demo.Data], 0, len(spec.Combination.Children))
		for _, childSpec := range spec.Combination.Children {
			child, err := buildStep(childSpec, registry, metrics)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return step.NewCombination[demo.Data](spec.Name, opts, children, metrics), nil
	case "remote":
		client := remoterpc.NewClient[demo.Data](spec.Remote.Host, spec.Remote.Port, nil)
		return step.NewRemote[demo.Data](spec.Name, opts, client), nil
	default:
		return nil, perror.New(perror.KindValidation, "", fmt.Errorf("unknown step type %q", spec.Type))
	}
}

func buildLeaf(spec StepSpec, opts step.Options, registry map[string]LeafBuilder) (step.Step[demo.Data], error) {
	kind := spec.Leaf.Kind
	switch kind {
	case "command":
		return steps.Command(opts, spec.Leaf.Command), nil
	case "template":
		return steps.Template(opts, spec.Leaf.Template), nil
	}
	builder, ok := registry[kind]
	if !ok {
		return nil, perror.New(perror.KindValidation, "", fmt.Errorf("unknown leaf kind %q", kind))
	}
	return builder(opts), nil
}
