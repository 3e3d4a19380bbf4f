package config

import (
	"github.com/kranzdev/streampipe/internal/demo"
	"github.com/kranzdev/streampipe/internal/demo/steps"
	"github.com/kranzdev/streampipe/internal/step"
)

// LeafBuilder constructs a zero-parameter leaf step. Kinds needing
// parameters from the YAML document (command, template) are handled
// directly in build.go instead of going through the registry.
type LeafBuilder func(opts step.Options) *step.Leaf[demo.Data]

// DefaultRegistry maps a LeafSpec.Kind to its builder. cmd/streampipe
// uses this as-is; callers embedding their own demo steps can copy it
// and add entries.
func DefaultRegistry() map[string]LeafBuilder {
	return map[string]LeafBuilder{
		"validate":     steps.Validate,
		"uppercase":    steps.Uppercase,
		"always_true":  steps.AlwaysTrue,
		"mark_success": steps.MarkSuccess,
		"mark_failure": steps.MarkFailure,
	}
}
