package dashboard

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Update handles Bubbletea messages and advances model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TickMsg:
		if m.finished {
			return m, nil
		}
		return m, tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg { return TickMsg{} })
	case PackageUpdateMsg:
		m.pkg = msg.Pkg
		if msg.Pkg != nil && !msg.Pkg.Running {
			m.finished = true
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.finished {
				return m, tea.Quit
			}
		}
	case tea.QuitMsg:
		m.finished = true
		return m, nil
	}
	return m, nil
}
