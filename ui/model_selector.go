package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	appmodel "parley/model"
)

func renderModelSelector(models []appmodel.ModelInfo, selectedIdx int, currentModel string, filterMode bool, filterInput textinput.Model, filteredModels []appmodel.ModelInfo, width, height int) string {
	modalWidth := width - 10
	if modalWidth > 80 {
		modalWidth = 80
	}
	modalHeight := height - 6

	// Title section (no borders)
	titleSection := lipgloss.NewStyle().
		Bold(true).
		Align(lipgloss.Center).
		Width(modalWidth).
		Render("Select Model")

	// Header: show filter input or count
	var header string
	if filterMode {
		header = filterInput.View()
	} else {
		displayList := models
		if len(filteredModels) > 0 {
			displayList = filteredModels
		}
		if len(models) == len(displayList) {
			header = fmt.Sprintf("%d models", len(models))
		} else {
			header = fmt.Sprintf("%d of %d models", len(displayList), len(models))
		}
	}

	headerSection := lipgloss.NewStyle().
		Foreground(dimColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(header)

	displayList := models
	if filterMode && len(filteredModels) > 0 {
		displayList = filteredModels
	}

	var modelLines []string
	maxLines := modalHeight - 8 // Reserve space for title, borders, header, footer

	if len(displayList) == 0 {
		emptyMsg := "No models available"
		if filterMode {
			emptyMsg = "No matches found"
		}
		modelLines = append(modelLines, lipgloss.NewStyle().
			Foreground(dimColor).
			Italic(true).
			Align(lipgloss.Center).
			Width(modalWidth).
			Render(emptyMsg))
	} else {
		startIdx := 0
		endIdx := len(displayList)

		// Scroll if needed
		if len(displayList) > maxLines {
			if selectedIdx < maxLines/2 {
				endIdx = maxLines
			} else if selectedIdx >= len(displayList)-maxLines/2 {
				startIdx = len(displayList) - maxLines
			} else {
				startIdx = selectedIdx - maxLines/2
				endIdx = startIdx + maxLines
			}
		}

		for i := startIdx; i < endIdx && i < len(displayList); i++ {
			model := displayList[i]

			indicator := "  "
			if i == selectedIdx {
				indicator = "▶ "
			}

			size := formatSize(model.Size)

			currentMarker := ""
			if model.Name == currentModel {
				currentMarker = " (current)"
			}

			providerSuffix := ""
			if model.Provider != "" {
				providerSuffix = fmt.Sprintf(" (%s)", model.Provider)
			}

			name := model.Name
			maxNameWidth := modalWidth - 20 // Reserve space for size
			if len(name)+len(providerSuffix) > maxNameWidth {
				name = name[:maxNameWidth-len(providerSuffix)-3] + "..."
			}

			spacing := modalWidth - len(indicator) - len(name) - len(providerSuffix) - len(currentMarker) - len(size) - 4
			if spacing < 1 {
				spacing = 1
			}

			line := fmt.Sprintf("%s%s%s%s%s%s",
				indicator,
				name,
				providerSuffix,
				currentMarker,
				strings.Repeat(" ", spacing),
				size,
			)

			lineStyle := lipgloss.NewStyle()
			if i == selectedIdx {
				lineStyle = lineStyle.Foreground(successColor).Bold(true)
			} else if model.Name == currentModel {
				lineStyle = lineStyle.Foreground(accentColor).Bold(true)
			}

			modelLines = append(modelLines, lipgloss.NewStyle().
				Width(modalWidth).
				Render(lineStyle.Render(line)))
		}
	}

	emptyLine := strings.Repeat(" ", modalWidth)
	modelLines = append([]string{emptyLine}, modelLines...)
	modelLines = append(modelLines, emptyLine)

	var footerText string
	if filterMode {
		footerText = FormatFooter("Type", "to filter", "Alt+J/K", "Navigate", "Enter", "Select", "Esc", "Cancel")
	} else {
		footerText = FormatFooter("/", "Filter", "j/k", "Navigate", "Enter", "Select", "Esc", "Exit")
	}
	footerSection := lipgloss.NewStyle().
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(footerText)

	sections := []string{titleSection, headerSection}
	sections = append(sections, modelLines...)
	sections = append(sections, footerSection)

	content := strings.Join(sections, "\n")

	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func (a AppView) handleModelSelectorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.modelFilterMode {
		return a.handleModelFilterKey(msg)
	}

	displayList := a.getModelList()

	switch msg.String() {
	case "esc":
		a.showModelSelector = false
		a.filteredModelList = nil
		return a, nil

	case "j", "down":
		if a.selectedModelIdx < len(displayList)-1 {
			a.selectedModelIdx++
		}
		return a, nil

	case "k", "up":
		if a.selectedModelIdx > 0 {
			a.selectedModelIdx--
		}
		return a, nil

	case "enter":
		if a.selectedModelIdx < len(displayList) {
			a.dataModel.SwitchModel(displayList[a.selectedModelIdx])
			a.orchestrator.SetProvider(a.dataModel.Provider)
			a.showModelSelector = false
			a.filteredModelList = nil
			return a, a.dataModel.AutoSaveChat()
		}
		return a, nil

	case "/":
		a.modelFilterMode = true
		a.modelFilterInput = textinput.New()
		a.modelFilterInput.Prompt = "Filter: "
		a.modelFilterInput.CharLimit = 64
		a.modelFilterInput.Focus()
		a.filteredModelList = nil
		return a, nil
	}

	return a, nil
}

func (a AppView) handleModelFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.modelFilterMode = false
		a.modelFilterInput.Blur()
		a.filteredModelList = nil
		a.selectedModelIdx = 0
		return a, nil

	case "enter":
		displayList := a.getModelList()
		if a.selectedModelIdx < len(displayList) {
			a.dataModel.SwitchModel(displayList[a.selectedModelIdx])
			a.orchestrator.SetProvider(a.dataModel.Provider)
			a.showModelSelector = false
			a.modelFilterMode = false
			a.modelFilterInput.Blur()
			a.filteredModelList = nil
			return a, a.dataModel.AutoSaveChat()
		}
		return a, nil

	case "alt+j":
		if a.selectedModelIdx < len(a.getModelList())-1 {
			a.selectedModelIdx++
		}
		return a, nil

	case "alt+k":
		if a.selectedModelIdx > 0 {
			a.selectedModelIdx--
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.modelFilterInput, cmd = a.modelFilterInput.Update(msg)
	a.filteredModelList = filterModels(a.modelList, a.modelFilterInput.Value())
	a.selectedModelIdx = 0
	return a, cmd
}

// filterModels fuzzy-matches model names against the query.
func filterModels(models []appmodel.ModelInfo, query string) []appmodel.ModelInfo {
	if query == "" {
		return nil
	}
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name
	}
	matches := fuzzy.Find(query, names)
	filtered := make([]appmodel.ModelInfo, 0, len(matches))
	for _, m := range matches {
		filtered = append(filtered, models[m.Index])
	}
	return filtered
}

// formatSize converts bytes to human-readable format. Hosted providers do
// not report size; return empty so the column collapses.
func formatSize(bytes int64) string {
	if bytes == 0 {
		return ""
	}

	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
