package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const approvalModalWidth = 64

// renderApprovalModal asks the user to allow or deny the tool call the
// current turn is paused on.
func (a AppView) renderApprovalModal() string {
	paused := a.pausedTurn
	if paused == nil {
		return ""
	}

	modalWidth := approvalModalWidth
	if a.width < modalWidth+10 {
		modalWidth = a.width - 10
	}

	leftStyle := lipgloss.NewStyle().
		Width(modalWidth).
		Align(lipgloss.Left)
	dimStyle := lipgloss.NewStyle().
		Width(modalWidth).
		Align(lipgloss.Left).
		Foreground(dimColor)

	toolName := paused.Head()
	var serverLabel, rawArgs string
	if paused.Remote() {
		req := paused.Approvals[0]
		serverLabel = req.ServerLabel
		rawArgs = req.Arguments
	} else if len(paused.Pending) > 0 {
		rawArgs = paused.Pending[0].Arguments
	}

	var lines []string
	lines = append(lines, leftStyle.Render("The model wants to run the tool:"))
	lines = append(lines, strings.Repeat(" ", modalWidth))
	lines = append(lines, leftStyle.Bold(true).Render("  "+toolName))

	if serverLabel != "" {
		lines = append(lines, dimStyle.Render("  remote server: "+serverLabel))
	}
	lines = append(lines, strings.Repeat(" ", modalWidth))

	if rawArgs != "" && rawArgs != "{}" {
		lines = append(lines, leftStyle.Render("Arguments:"))
		preview := rawArgs
		if len(preview) > 300 {
			preview = preview[:300] + "…"
		}
		for _, line := range strings.Split(wordWrap(preview, modalWidth-4), "\n") {
			lines = append(lines, dimStyle.Render("  "+line))
		}
		lines = append(lines, strings.Repeat(" ", modalWidth))
	}

	if remaining := len(paused.Pending) + len(paused.Approvals) - 1; remaining > 0 {
		lines = append(lines, dimStyle.Render(fmt.Sprintf("%d more tool call(s) queued after this one", remaining)))
		lines = append(lines, strings.Repeat(" ", modalWidth))
	}

	lines = append(lines, dimStyle.Render("\"Always\" remembers the choice for this tool."))

	footer := FormatFooter("y", "Allow Once", "a", "Always Allow", "n", "Deny")
	return RenderThreeSectionModal(
		"🔧 Tool Approval",
		lines,
		footer,
		ModalTypeWarning,
		modalWidth,
		a.width,
		a.height,
	)
}
