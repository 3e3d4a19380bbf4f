package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kranzdev/streampipe/pkg/perror"
)

var (
	validatorOnce sync.Once
	validatorInst *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInst = validator.New()
	})
	return validatorInst
}

// Validate performs schema and cross-field validation on spec,
// following the teacher's ValidateConfig: run the struct-tag pass
// first, then walk the step tree enforcing the type-specific payload
// invariants struct tags alone can't express (e.g. "type: leaf"
// implies Leaf must be non-nil).
func Validate(spec *PipelineSpec) error {
	if spec == nil {
		return perror.New(perror.KindValidation, "", fmt.Errorf("pipeline spec is nil"))
	}
	v := validatorInstance()
	if err := v.Struct(spec); err != nil {
		return convertValidationError(err)
	}

	seen := make(map[string]bool, len(spec.Controllers))
	for i := range spec.Controllers {
		ctrl := &spec.Controllers[i]
		if seen[ctrl.Name] {
			return perror.New(perror.KindValidation, "", fmt.Errorf("duplicate controller name %q", ctrl.Name))
		}
		seen[ctrl.Name] = true
		if ctrl.MaxWorkers == 0 {
			ctrl.MaxWorkers = DefaultMaxWorkers
		}
		for _, phase := range ctrl.Phases {
			for _, st := range phase.Steps {
				if err := validateStep(st); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func validateStep(s StepSpec) error {
	v := validatorInstance()
	if err := v.Struct(s); err != nil {
		return convertValidationError(err)
	}

	switch s.Type {
	case "leaf":
		if s.Leaf == nil {
			return perror.New(perror.KindValidation, "", fmt.Errorf("step %q: leaf configuration is required", s.Name))
		}
		if err := v.Struct(s.Leaf); err != nil {
			return convertValidationError(err)
		}
		if s.Leaf.Kind == "command" && strings.TrimSpace(s.Leaf.Command) == "" {
			return perror.New(perror.KindValidation, "", fmt.Errorf("step %q: command is required for kind=command", s.Name))
		}
		if s.Leaf.Kind == "template" && strings.TrimSpace(s.Leaf.Template) == "" {
			return perror.New(perror.KindValidation, "", fmt.Errorf("step %q: template is required for kind=template", s.Name))
		}
	case "conditional":
		if s.Conditional == nil {
			return perror.New(perror.KindValidation, "", fmt.Errorf("step %q: conditional configuration is required", s.Name))
		}
		if err := validateStep(s.Conditional.TrueBranch); err != nil {
			return err
		}
		if err := validateStep(s.Conditional.FalseBranch); err != nil {
			return err
		}
	case "combination":
		if s.Combination == nil {
			return perror.New(perror.KindValidation, "", fmt.Errorf("step %q: combination configuration is required", s.Name))
		}
		for _, child := range s.Combination.Children {
			if err := validateStep(child); err != nil {
				return err
			}
		}
	case "remote":
		if s.Remote == nil {
			return perror.New(perror.KindValidation, "", fmt.Errorf("step %q: remote configuration is required", s.Name))
		}
		if err := v.Struct(s.Remote); err != nil {
			return convertValidationError(err)
		}
	default:
		return perror.New(perror.KindValidation, "", fmt.Errorf("step %q: unknown step type %q", s.Name, s.Type))
	}
	return nil
}

func convertValidationError(err error) error {
	if err == nil {
		return nil
	}
	if ves, ok := err.(validator.ValidationErrors); ok && len(ves) > 0 {
		fe := ves[0]
		msg := fmt.Sprintf("%s failed validation for tag %q", fieldName(fe), fe.Tag())
		return perror.New(perror.KindValidation, "", fmt.Errorf("%s", msg))
	}
	return perror.New(perror.KindValidation, "", err)
}

func fieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	parts := strings.Split(ns, ".")
	lowered := make([]string, len(parts))
	for i, p := range parts {
		lowered[i] = strings.ToLower(p)
	}
	return strings.Join(lowered, ".")
}
