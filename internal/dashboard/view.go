package dashboard

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/kranzdev/streampipe/internal/dashboard/components"
)

// View renders the current state of the model.
func (m Model) View() string {
	var sections []string

	title := titleStyle.Render(fmt.Sprintf("streampipe • %s", m.pipelineName))
	sections = append(sections, title)

	completed := 0
	var ctrls []string
	if m.pkg != nil {
		completed = len(m.pkg.Controllers)
	}
	progress := components.NewProgress(m.totalPhases).View(completed)
	sections = append(sections, sectionStyle.Render("Progress"), progress)

	if m.pkg != nil {
		tree := components.NewTraceTree(m.pkg.Controllers).Render(StatusIcon)
		if tree != "" {
			sections = append(sections, sectionStyle.Render("Trace"), tree)
		}
	}

	if m.finished && m.pkg != nil {
		status := successStyle.Render("SUCCESS")
		if !m.pkg.Success {
			status = failureStyle.Render("FAILED")
		}
		for _, err := range m.pkg.Errors {
			ctrls = append(ctrls, fmt.Sprintf("  %s: %s", err.Kind, err.Message))
		}
		summary := status
		if len(ctrls) > 0 {
			summary += "\n" + lipgloss.JoinVertical(lipgloss.Left, ctrls...)
		}
		sections = append(sections, sectionStyle.Render("Result"), summaryStyle.Render(summary))
	}

	sections = append(sections, pendingStyle.Render("(ctrl+c to quit, enter to dismiss once finished)"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
