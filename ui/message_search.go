package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"parley/storage"
)

func renderMessageSearch(searchInput textinput.Model, results []storage.MessageMatch, selectedIdx, scrollIdx, width, height int) string {
	modalWidth := width - 4
	if modalWidth > 100 {
		modalWidth = 100
	}

	modalStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dimColor).
		Padding(1, 2)

	title := TitleStyle.Render("🔍 Search All Chats")
	searchView := searchInput.View()

	resultsView := ""
	if len(results) == 0 {
		if searchInput.Value() == "" {
			resultsView = DimStyle.Render("Type to search messages across all chats...")
		} else {
			resultsView = DimStyle.Render("No matches found")
		}
	} else {
		// Border(2) + Padding(2) + Title(1) + Blank(1) + SearchInput(1) + Blank(1) +
		// "Found X matches:"(1) + Blank(1) + Footer(1) + Blank(1) = 12 lines
		fixedOverhead := 12
		scrollIndicatorSpace := 4

		availableLines := height - fixedOverhead - scrollIndicatorSpace
		if availableLines < 3 {
			availableLines = 3
		}

		// Conservative estimate per result, accounts for preview wrapping
		linesPerResult := 6
		maxVisibleResults := availableLines / linesPerResult
		if maxVisibleResults < 1 {
			maxVisibleResults = 1
		}

		startIdx := scrollIdx
		endIdx := scrollIdx + maxVisibleResults
		if endIdx > len(results) {
			endIdx = len(results)
		}

		resultsView = fmt.Sprintf("Found %d matches:\n\n", len(results))

		if startIdx > 0 {
			resultsView += DimStyle.Render(fmt.Sprintf("↑ %d more above\n\n", startIdx))
		}

		for i := startIdx; i < endIdx; i++ {
			match := results[i]

			roleStyle := UserStyle
			if match.Role == "assistant" {
				roleStyle = AssistantStyle
			}

			matchText := fmt.Sprintf("%s in %s [%s]\n  %s",
				roleStyle.Render(match.Role),
				HighlightStyle.Render(match.ChatTitle),
				match.Timestamp.Format("Jan 2, 3:04 PM"),
				match.Preview,
			)

			if i == selectedIdx {
				matchText = SelectedStyle.Render("> " + matchText)
			} else {
				matchText = "  " + matchText
			}

			resultsView += matchText + "\n\n"
		}

		if endIdx < len(results) {
			resultsView += DimStyle.Render(fmt.Sprintf("↓ %d more below", len(results)-endIdx))
		}
	}

	footer := FormatFooter("Type", "to search", "Alt+J/K", "Navigate", "Enter", "Open", "Esc", "Close")

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		"",
		searchView,
		"",
		resultsView,
		"",
		footer,
	)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		modalStyle.Width(modalWidth).Render(content))
}

func (a AppView) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.showSearch = false
		a.searchInput.Blur()
		a.searchResults = nil
		return a, nil

	case "enter":
		if a.selectedSearch < len(a.searchResults) {
			match := a.searchResults[a.selectedSearch]
			a.showSearch = false
			a.searchInput.Blur()
			a.pendingScrollToMessageIdx = match.MessageIndex
			return a, a.dataModel.LoadChat(match.ChatID)
		}
		return a, nil

	case "alt+j", "down":
		if a.selectedSearch < len(a.searchResults)-1 {
			a.selectedSearch++
			a.adjustSearchScroll()
		}
		return a, nil

	case "alt+k", "up":
		if a.selectedSearch > 0 {
			a.selectedSearch--
			a.adjustSearchScroll()
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.searchInput, cmd = a.searchInput.Update(msg)
	query := a.searchInput.Value()
	if query == "" {
		a.searchResults = nil
		a.selectedSearch = 0
		a.searchScrollIdx = 0
		return a, cmd
	}
	return a, tea.Batch(cmd, a.dataModel.SearchChatsCmd(query))
}

// adjustSearchScroll keeps the selection inside the visible window.
func (a *AppView) adjustSearchScroll() {
	if a.selectedSearch < a.searchScrollIdx {
		a.searchScrollIdx = a.selectedSearch
	}
	// Visible window size mirrors the conservative estimate in render
	visible := (a.height - 16) / 6
	if visible < 1 {
		visible = 1
	}
	if a.selectedSearch >= a.searchScrollIdx+visible {
		a.searchScrollIdx = a.selectedSearch - visible + 1
	}
}
