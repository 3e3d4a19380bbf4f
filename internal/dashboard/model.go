package dashboard

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kranzdev/streampipe/internal/demo"
	"github.com/kranzdev/streampipe/internal/trace"
)

// Model is the Bubbletea state for streampipe's live execution view. A
// package only ever produces one of OnSuccess/OnExit/OnError, so the
// model doesn't need per-step messages to stay correct — it just renders
// whatever controller/phase/step trace the package has accumulated so
// far each time it's handed a fresher snapshot.
type Model struct {
	pipelineName string
	totalPhases  int

	pkg      *trace.Package[demo.Data]
	finished bool
}

// NewModel constructs a dashboard for a pipeline with the given display
// name and number of controllers a submitted package will pass through.
func NewModel(pipelineName string, totalControllers int) Model {
	return Model{pipelineName: pipelineName, totalPhases: totalControllers}
}

// Init starts the periodic tick that keeps the view alive while waiting
// for the package to complete.
func (m Model) Init() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg { return TickMsg{} })
}
