package steps

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kranzdev/streampipe/internal/demo"
	"github.com/kranzdev/streampipe/internal/step"
	"github.com/kranzdev/streampipe/internal/trace"
)

func run(t *testing.T, s step.Step[demo.Data], pkg *trace.Package[demo.Data]) *trace.StepTrace {
	t.Helper()
	return step.Run[demo.Data](context.Background(), s, pkg, nil, trace.NewPhaseTrace("p"), nil, nil)
}

func TestValidateRejectsEmptyKey(t *testing.T) {
	pkg := trace.NewPackage("p", "i", demo.Data{})
	st := run(t, Validate(step.DefaultOptions()), pkg)
	assert.False(t, st.Success)
	assert.True(t, pkg.HasErrors())
}

func TestUppercaseTransformsKey(t *testing.T) {
	pkg := trace.NewPackage("p", "i", demo.Data{Key: "abc"})
	st := run(t, Uppercase(step.DefaultOptions()), pkg)
	require.True(t, st.Success)
	assert.Equal(t, "ABC", pkg.Data.Key)
}

func TestConditionReflectsPayloadFlag(t *testing.T) {
	pkg := trace.NewPackage("p", "i", demo.Data{Condition: true})
	assert.True(t, Condition(pkg))

	pkg2 := trace.NewPackage("p", "i", demo.Data{Condition: false})
	assert.False(t, Condition(pkg2))
}

func TestMarkSuccessAndFailureSetStatus(t *testing.T) {
	pkg := trace.NewPackage("p", "i", demo.Data{})
	run(t, MarkSuccess(step.DefaultOptions()), pkg)
	assert.Equal(t, "success", pkg.Data.Status)

	pkg2 := trace.NewPackage("p", "i", demo.Data{})
	run(t, MarkFailure(step.DefaultOptions()), pkg2)
	assert.Equal(t, "failure", pkg2.Data.Status)
}

func TestTemplateRendersVars(t *testing.T) {
	pkg := trace.NewPackage("p", "i", demo.Data{Vars: map[string]string{"Name": "world"}})
	st := run(t, Template(step.DefaultOptions(), "hello {{.Name}}"), pkg)
	require.True(t, st.Success)
	assert.Equal(t, "hello world", pkg.Data.Status)
}

func TestCommandCapturesStdout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}
	pkg := trace.NewPackage("p", "i", demo.Data{})
	st := run(t, Command(step.DefaultOptions(), "echo hello"), pkg)
	require.True(t, st.Success)
	assert.Equal(t, "hello", pkg.Data.Status)
}
