package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"parley/complete"
)

// refreshSuggestions recomputes the dropdown from the current input line.
func (a *AppView) refreshSuggestions() {
	value := a.textarea.Value()

	if value == "" || strings.Contains(value, "\n") || a.dataModel.Streaming {
		a.suggestions = nil
		a.selectedSuggestion = 0
		a.suppressSuggestions = false
		return
	}

	if a.suppressSuggestions {
		return
	}

	a.suggestions = a.suggester.Suggest(value)
	if a.selectedSuggestion >= len(a.suggestions) {
		a.selectedSuggestion = 0
	}
}

// acceptSuggestion completes the input on Tab. With a single candidate the
// whole suggestion is taken; otherwise Tab extends to the common prefix
// first, then takes the highlighted entry.
func (a AppView) acceptSuggestion() (tea.Model, tea.Cmd) {
	if len(a.suggestions) == 0 {
		return a, nil
	}

	if len(a.suggestions) == 1 {
		a.textarea.SetValue(a.suggestions[0].Text)
		a.textarea.CursorEnd()
		a.suggestions = nil
		a.selectedSuggestion = 0
		return a, nil
	}

	prefix := complete.CommonPrefix(a.suggestions)
	current := a.textarea.Value()
	if len(prefix) > len(current) && strings.HasPrefix(prefix, current) {
		a.textarea.SetValue(prefix)
		a.textarea.CursorEnd()
		a.refreshSuggestions()
		return a, nil
	}

	a.textarea.SetValue(a.suggestions[a.selectedSuggestion].Text)
	a.textarea.CursorEnd()
	a.suggestions = nil
	a.selectedSuggestion = 0
	return a, nil
}

// renderSuggestions draws the dropdown shown above the textarea. Empty
// string when there is nothing to suggest.
func (a AppView) renderSuggestions() string {
	if len(a.suggestions) == 0 {
		return ""
	}

	maxWidth := a.width - 4
	var lines []string
	for i, s := range a.suggestions {
		text := s.Text
		if len(text) > maxWidth {
			text = text[:maxWidth-3] + "..."
		}

		label := "  "
		if s.Kind == complete.KindCommand {
			label = "/ "
			if desc := commandDescription(s.Text); desc != "" {
				text += DimStyle.Render("  - " + desc)
			}
		}

		line := label + text
		if i == a.selectedSuggestion {
			line = SelectedStyle.Render("▶ " + text)
		}
		lines = append(lines, line)
	}

	box := lipgloss.NewStyle().
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Width(a.width)

	return box.Render(strings.Join(lines, "\n"))
}

func commandDescription(name string) string {
	for _, c := range complete.DefaultCommands {
		if c.Name == name {
			return c.Description
		}
	}
	return ""
}
