package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"parley/approval"
	"parley/config"
)

func (a AppView) handleApprovalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var decision approval.Decision
	switch msg.String() {
	case "y", "Y":
		decision = approval.DecisionOnce
	case "a", "A":
		decision = approval.DecisionAlways
	case "n", "N", "esc":
		decision = approval.DecisionDeny
	default:
		return a, nil
	}

	paused := a.pausedTurn
	a.pausedTurn = nil

	head := paused.Head()
	if config.DebugLog != nil {
		config.DebugLog.Printf("[UI] approval decision for %s: %s", head, decision)
	}

	if decision != approval.DecisionDeny {
		a.executingTool = head
	}

	a.appendSystemNotice("Waiting for response...")
	a.updateViewportContent(true)

	return a, tea.Batch(
		a.resumeTurnCmd(paused, decision),
		a.loadingSpinner.Tick,
		a.toolExecutionSpinner.Tick,
	)
}
