package internalexec

import (
	"bytes"
	"os/exec"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStreamingSuccess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	cmd := exec.Command("echo", "hello world")

	result, err := RunStreaming(cmd)
	require.NoError(t, err)
	assert.Equal(t, "hello world", result.Stdout)
	assert.Equal(t, "", result.Stderr)
}

func TestRunStreamingWithError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	cmd := exec.Command("sh", "-c", "echo 'error message' >&2; exit 1")

	result, err := RunStreaming(cmd)
	require.Error(t, err)
	assert.Equal(t, "", result.Stdout)
	assert.Equal(t, "error message", result.Stderr)
}

func TestRunStreamingWithStdoutPipe(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX shell assumptions do not hold on Windows")
	}

	var buf bytes.Buffer
	cmd := exec.Command("echo", "piped output")
	cmd.Stdout = &buf

	result, err := RunStreaming(cmd)
	require.NoError(t, err)
	assert.Equal(t, "piped output", result.Stdout)
	assert.Contains(t, buf.String(), "piped output")
}

func TestPrimaryOutputPrefersStderr(t *testing.T) {
	assert.Equal(t, "oops", PrimaryOutput(Result{Stdout: "ok", Stderr: "oops"}))
	assert.Equal(t, "ok", PrimaryOutput(Result{Stdout: "ok"}))
}
