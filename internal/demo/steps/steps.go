// Package steps supplies ready-made leaf step.Step[demo.Data]
// implementations: direct generalizations of the source program's demo
// modules (validation, uppercase transform, always-true) plus two
// adapted from the teacher's file-oriented plugins (command, template),
// repointed from "apply this to the filesystem" to "transform this
// payload".
package steps

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"text/template"

	"github.com/kranzdev/streampipe/internal/demo"
	"github.com/kranzdev/streampipe/internal/demo/internalexec"
	"github.com/kranzdev/streampipe/internal/step"
	"github.com/kranzdev/streampipe/internal/trace"
	"github.com/kranzdev/streampipe/pkg/perror"
)

// Validate rejects a payload with an empty key, the Go equivalent of
// the source program's DataValidationModule.
func Validate(opts step.Options) *step.Leaf[demo.Data] {
	return step.NewLeaf[demo.Data]("validate", "Validate", opts, func(ctx context.Context, pkg *trace.Package[demo.Data], st *trace.StepTrace) error {
		if strings.TrimSpace(pkg.Data.Key) == "" {
			return fmt.Errorf("validation failed: key missing")
		}
		st.Message = "validation succeeded"
		return nil
	})
}

// Uppercase upper-cases the payload's key, the Go equivalent of the
// source program's DataTransformationModule (minus its artificial
// random sleep).
func Uppercase(opts step.Options) *step.Leaf[demo.Data] {
	return step.NewLeaf[demo.Data]("uppercase", "Uppercase", opts, func(ctx context.Context, pkg *trace.Package[demo.Data], st *trace.StepTrace) error {
		if strings.TrimSpace(pkg.Data.Key) == "" {
			st.Message = "transformation skipped: key missing"
			return nil
		}
		pkg.Data.Key = strings.ToUpper(pkg.Data.Key)
		st.Message = "transformation succeeded"
		return nil
	})
}

// AlwaysTrue unconditionally succeeds, matching the source program's
// AlwaysTrue module (used to pad out a phase after a conditional).
func AlwaysTrue(opts step.Options) *step.Leaf[demo.Data] {
	return step.NewLeaf[demo.Data]("always-true", "AlwaysTrue", opts, func(ctx context.Context, pkg *trace.Package[demo.Data], st *trace.StepTrace) error {
		st.Message = "always true"
		return nil
	})
}

// MarkSuccess sets the payload's status to "success", matching the
// source program's SuccessModule (the true branch of its condition
// module).
func MarkSuccess(opts step.Options) *step.Leaf[demo.Data] {
	return step.NewLeaf[demo.Data]("mark-success", "MarkSuccess", opts, func(ctx context.Context, pkg *trace.Package[demo.Data], st *trace.StepTrace) error {
		pkg.Data.Status = "success"
		st.Message = "condition true: success"
		return nil
	})
}

// MarkFailure sets the payload's status to "failure", matching the
// source program's FailureModule (the false branch of its condition
// module).
func MarkFailure(opts step.Options) *step.Leaf[demo.Data] {
	return step.NewLeaf[demo.Data]("mark-failure", "MarkFailure", opts, func(ctx context.Context, pkg *trace.Package[demo.Data], st *trace.StepTrace) error {
		pkg.Data.Status = "failure"
		st.Message = "condition false: failure"
		return nil
	})
}

// Condition reports dp.Condition, the Go equivalent of the source
// program's DataConditionModule.condition.
func Condition(pkg *trace.Package[demo.Data]) bool {
	return pkg.Data.Condition
}

// Command runs commandLine through a shell and writes its stdout into
// the payload's Status field, adapted from the teacher's
// shell-command plugin (internal/plugins/command): same
// internalexec.RunStreaming streaming-capture idiom, but transforming
// the in-flight payload instead of applying a filesystem step.
func Command(opts step.Options, commandLine string) *step.Leaf[demo.Data] {
	return step.NewLeaf[demo.Data]("command", "Command", opts, func(ctx context.Context, pkg *trace.Package[demo.Data], st *trace.StepTrace) error {
		shell, shellArgs, err := determineShell()
		if err != nil {
			return perror.New(perror.KindExecution, "", err)
		}
		cmd := exec.CommandContext(ctx, shell, append(shellArgs, commandLine)...)
		result, err := internalexec.RunStreaming(cmd)
		if err != nil {
			out := internalexec.PrimaryOutput(result)
			if out != "" {
				return fmt.Errorf("%w: %s", err, out)
			}
			return err
		}
		pkg.Data.Status = result.Stdout
		st.Message = "command executed"
		return nil
	})
}

func determineShell() (string, []string, error) {
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C"}, nil
	}
	if path, err := exec.LookPath("bash"); err == nil {
		return path, []string{"-c"}, nil
	}
	if path, err := exec.LookPath("sh"); err == nil {
		return path, []string{"-c"}, nil
	}
	return "", nil, fmt.Errorf("no suitable shell found")
}

// Template renders tmplText against the payload's Vars and writes the
// result into Status, adapted from the teacher's template plugin
// (internal/plugins/template): same text/template idiom, repointed
// from "render to a destination file" to "render into the payload".
func Template(opts step.Options, tmplText string) *step.Leaf[demo.Data] {
	return step.NewLeaf[demo.Data]("template", "Template", opts, func(ctx context.Context, pkg *trace.Package[demo.Data], st *trace.StepTrace) error {
		tmpl, err := template.New("demo").Option("missingkey=zero").Parse(tmplText)
		if err != nil {
			return perror.New(perror.KindValidation, "", fmt.Errorf("parse template: %w", err))
		}
		var buf strings.Builder
		if err := tmpl.Execute(&buf, pkg.Data.Vars); err != nil {
			return perror.New(perror.KindExecution, "", fmt.Errorf("execute template: %w", err))
		}
		pkg.Data.Status = buf.String()
		st.Message = "template rendered"
		return nil
	})
}
