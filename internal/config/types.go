// Package config declares the static YAML shape a pipeline is authored
// in (PipelineSpec/ControllerSpec/PhaseSpec/StepSpec) and compiles it
// into the runtime pipeline.Pipeline[demo.Data] graph, following the
// teacher's internal/config package (types.go/validator.go/parser.go
// split) repointed from a DAG-of-system-steps to a tree of pipeline
// steps.
package config

import "gopkg.in/yaml.v3"

// DefaultMaxWorkers is applied to a controller whose max_workers is
// omitted or zero in YAML (spec §6.3: "max_workers: int = 10").
const DefaultMaxWorkers = 10

// PipelineSpec is the root declarative document: a name plus an
// ordered list of controllers (spec §4.3's "pipeline is an ordered
// list of controllers").
type PipelineSpec struct {
	Name        string           `yaml:"name" validate:"required,min=1,max=100"`
	Description string           `yaml:"description,omitempty"`
	Controllers []ControllerSpec `yaml:"controllers" validate:"required,min=1,dive"`
}

// ControllerSpec declares one phase controller: its scheduling mode,
// worker bound, and ordered phase list.
type ControllerSpec struct {
	Name       string      `yaml:"name" validate:"required,min=1"`
	Mode       string      `yaml:"mode" validate:"required,oneof=NOT_PARALLEL ORDER_BY_SEQUENCE FIRST_WINS NO_ORDER"`
	MaxWorkers int         `yaml:"max_workers,omitempty" validate:"omitempty,min=1,max=1024"`
	Phases     []PhaseSpec `yaml:"phases" validate:"required,min=1,dive"`
}

// PhaseSpec declares one ordered group of top-level steps.
type PhaseSpec struct {
	Name  string     `yaml:"name" validate:"required,min=1"`
	Steps []StepSpec `yaml:"steps" validate:"required,min=1,dive"`
}

// StepSpec is the discriminated-union step declaration: Type selects
// which of Leaf/Conditional/Combination/Remote is populated, the same
// pattern the teacher's Step.UnmarshalYAML uses for its own
// type-specific inline structs.
type StepSpec struct {
	Name     string  `yaml:"name,omitempty"`
	Type     string  `yaml:"type" validate:"required,oneof=leaf conditional combination remote"`
	UseMutex *bool   `yaml:"use_mutex,omitempty"`
	Timeout  float64 `yaml:"timeout_seconds,omitempty" validate:"omitempty,min=0"`

	Leaf        *LeafSpec        `yaml:"-"`
	Conditional *ConditionalSpec `yaml:"-"`
	Combination *CombinationSpec `yaml:"-"`
	Remote      *RemoteSpec      `yaml:"-"`
}

// LeafSpec selects a registered leaf builder by kind and supplies its
// parameters. Kind names not requiring Command/Template (validate,
// uppercase, always_true, mark_success, mark_failure) are resolved
// through the step registry (see registry.go); Command/Template carry
// their own parameters directly.
type LeafSpec struct {
	Kind     string            `yaml:"kind" validate:"required"`
	Command  string            `yaml:"command,omitempty"`
	Template string            `yaml:"template,omitempty"`
	Vars     map[string]string `yaml:"vars,omitempty"`
}

// ConditionalSpec declares a branch-on-payload-flag step.
type ConditionalSpec struct {
	TrueBranch  StepSpec `yaml:"true_branch" validate:"required"`
	FalseBranch StepSpec `yaml:"false_branch" validate:"required"`
}

// CombinationSpec declares an ordered, short-circuiting child list.
type CombinationSpec struct {
	Children []StepSpec `yaml:"children" validate:"required,min=1,dive"`
}

// RemoteSpec declares an RPC-delegate step.
type RemoteSpec struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required,min=1,max=65535"`
}

// UnmarshalYAML decodes the common fields, then the type-specific
// payload selected by Type, mirroring the teacher's Step.UnmarshalYAML.
func (s *StepSpec) UnmarshalYAML(value *yaml.Node) error {
	type rawStep struct {
		Name     string  `yaml:"name"`
		Type     string  `yaml:"type"`
		UseMutex *bool   `yaml:"use_mutex"`
		Timeout  float64 `yaml:"timeout_seconds"`
	}
	var raw rawStep
	if err := value.Decode(&raw); err != nil {
		return err
	}
	s.Name = raw.Name
	s.Type = raw.Type
	s.UseMutex = raw.UseMutex
	s.Timeout = raw.Timeout

	s.Leaf = nil
	s.Conditional = nil
	s.Combination = nil
	s.Remote = nil

	switch raw.Type {
	case "leaf":
		var leaf LeafSpec
		if err := value.Decode(&leaf); err != nil {
			return err
		}
		s.Leaf = &leaf
	case "conditional":
		var cond ConditionalSpec
		if err := value.Decode(&cond); err != nil {
			return err
		}
		s.Conditional = &cond
	case "combination":
		var comb CombinationSpec
		if err := value.Decode(&comb); err != nil {
			return err
		}
		s.Combination = &comb
	case "remote":
		var remote RemoteSpec
		if err := value.Decode(&remote); err != nil {
			return err
		}
		s.Remote = &remote
	}
	return nil
}
