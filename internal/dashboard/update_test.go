package dashboard

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/kranzdev/streampipe/internal/demo"
	"github.com/kranzdev/streampipe/internal/trace"
)

func TestUpdateHandlesPackageUpdateWhileRunning(t *testing.T) {
	m := NewModel("demo", 2)
	pkg := trace.NewPackage("pipeline-1", "instance-1", demo.Data{Key: "a"})

	updated, _ := m.Update(PackageUpdateMsg{Pkg: pkg})
	m = updated.(Model)

	require.False(t, m.finished)
	require.Same(t, pkg, m.pkg)
}

func TestUpdateHandlesPackageUpdateOnCompletion(t *testing.T) {
	m := NewModel("demo", 1)
	pkg := trace.NewPackage("pipeline-1", "instance-1", demo.Data{Key: "a"})
	pkg.Finish()

	updated, _ := m.Update(PackageUpdateMsg{Pkg: pkg})
	m = updated.(Model)

	require.True(t, m.finished)
}

func TestUpdateCtrlCQuits(t *testing.T) {
	m := NewModel("demo", 1)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
}

func TestUpdateEnterIgnoredUntilFinished(t *testing.T) {
	m := NewModel("demo", 1)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, cmd)

	m.finished = true
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
}
